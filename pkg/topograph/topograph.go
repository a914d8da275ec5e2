// Package topograph is a small in-memory reference implementation of
// routingcore.TopologyGraph (C8). It is not a protocol implementation — it
// never parses a TC message or runs any part of NHDP — it is the kind of
// collaborator a caller wires the core to once its own topology store
// (however it is populated) is ready to answer the same three questions.
package topograph

import (
	"net/netip"

	"github.com/saces/oonf/pkg/routingcore"
)

// Graph is a mutable store of nodes, edges, attachments, and endpoints,
// keyed by originator address and endpoint prefix so repeated calls to Node
// or Endpoint for the same identity always return the same *TCNode /
// *TCEndpoint (a stable pointer is required — routingcore keeps its
// per-run Dijkstra scratch state embedded in the TCTarget these wrap).
type Graph struct {
	nodes     map[netip.Addr]*routingcore.TCNode
	endpoints map[routingcore.Prefix]*routingcore.TCEndpoint
}

func New() *Graph {
	return &Graph{
		nodes:     make(map[netip.Addr]*routingcore.TCNode),
		endpoints: make(map[routingcore.Prefix]*routingcore.TCEndpoint),
	}
}

// Node returns the node for originator, creating it on first use.
func (g *Graph) Node(originator netip.Addr) *routingcore.TCNode {
	if n, ok := g.nodes[originator]; ok {
		return n
	}
	n := &routingcore.TCNode{
		Originator: originator,
		Target: &routingcore.TCTarget{
			Kind:   routingcore.TCTargetNode,
			Prefix: routingcore.PrefixFromAddr(originator),
		},
	}
	g.nodes[originator] = n
	return n
}

// Endpoint returns the endpoint for prefix, creating it on first use.
func (g *Graph) Endpoint(prefix routingcore.Prefix) *routingcore.TCEndpoint {
	if e, ok := g.endpoints[prefix]; ok {
		return e
	}
	e := &routingcore.TCEndpoint{
		Target: &routingcore.TCTarget{
			Kind:   routingcore.TCTargetEndpoint,
			Prefix: prefix,
		},
	}
	g.endpoints[prefix] = e
	return e
}

// Link adds (or updates, if one already exists to dst) a directed edge
// from src to dst carrying per-domain cost. virtual marks an edge that
// exists only to keep the graph connected (e.g. a mirrored NHDP link not
// yet confirmed by TC), never a candidate gateway itself.
func (g *Graph) Link(src, dst *routingcore.TCNode, virtual bool, cost [routingcore.MaxDomains]uint32) {
	for _, e := range src.Edges {
		if e.Dst == dst {
			e.Virtual = virtual
			e.Cost = cost
			return
		}
	}
	src.Edges = append(src.Edges, &routingcore.TCEdge{Dst: dst, Virtual: virtual, Cost: cost})
}

// Attach records that src advertises dst (an attached network or address)
// as reachable through itself.
func (g *Graph) Attach(src *routingcore.TCNode, dst *routingcore.TCEndpoint, cost [routingcore.MaxDomains]uint32, distance [routingcore.MaxDomains]uint8) {
	for _, a := range src.Attached {
		if a.Dst == dst {
			a.Cost = cost
			a.Distance = distance
			return
		}
	}
	src.Attached = append(src.Attached, &routingcore.TCAttachment{Dst: dst, Cost: cost, Distance: distance})
}

// RemoveNode drops node and every edge/attachment referencing it. Used
// when TC information ages out and a node is no longer advertised at all.
func (g *Graph) RemoveNode(originator netip.Addr) {
	n, ok := g.nodes[originator]
	if !ok {
		return
	}
	delete(g.nodes, originator)
	for _, other := range g.nodes {
		kept := other.Edges[:0]
		for _, e := range other.Edges {
			if e.Dst != n {
				kept = append(kept, e)
			}
		}
		other.Edges = kept
	}
}

func (g *Graph) Nodes() []*routingcore.TCNode {
	out := make([]*routingcore.TCNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

func (g *Graph) Endpoints() []*routingcore.TCEndpoint {
	out := make([]*routingcore.TCEndpoint, 0, len(g.endpoints))
	for _, e := range g.endpoints {
		out = append(out, e)
	}
	return out
}

func (g *Graph) NodeByOriginator(addr netip.Addr) (*routingcore.TCNode, bool) {
	n, ok := g.nodes[addr]
	return n, ok
}
