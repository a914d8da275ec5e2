// Package neighdb is a small in-memory reference implementation of
// routingcore.NeighborDatabase (C8), for the same reason pkg/topograph
// exists: something to wire the core to in tests and in cmd/olsrv2d's
// demo mode, standing in for wherever a real NHDP implementation would
// otherwise live.
package neighdb

import (
	"net/netip"

	"github.com/saces/oonf/pkg/routingcore"
)

// DB is a mutable store of neighbor records plus a routability ACL.
type DB struct {
	neighbors map[netip.Addr]*routingcore.Neighbor
	routable  func(netip.Addr) bool
}

// New builds an empty database. routable, if nil, accepts every address.
func New(routable func(netip.Addr) bool) *DB {
	if routable == nil {
		routable = func(netip.Addr) bool { return true }
	}
	return &DB{
		neighbors: make(map[netip.Addr]*routingcore.Neighbor),
		routable:  routable,
	}
}

// Put inserts or replaces the record for n.Originator.
func (d *DB) Put(n *routingcore.Neighbor) {
	d.neighbors[n.Originator] = n
}

// Remove drops the neighbor with the given originator, if present.
func (d *DB) Remove(originator netip.Addr) {
	delete(d.neighbors, originator)
}

func (d *DB) Neighbors() []*routingcore.Neighbor {
	out := make([]*routingcore.Neighbor, 0, len(d.neighbors))
	for _, n := range d.neighbors {
		out = append(out, n)
	}
	return out
}

func (d *DB) Routable(addr netip.Addr) bool {
	return d.routable(addr)
}
