package main

import (
	"net/netip"

	"github.com/saces/oonf/pkg/neighdb"
	"github.com/saces/oonf/pkg/routingcore"
	"github.com/saces/oonf/pkg/topograph"
)

// seedDemoTopology builds a small four-router network with one attached
// network, standing in for what a running NHDP/TC implementation would
// otherwise populate. It exists so `olsrv2d run` has something to compute
// a routing table over without requiring a live mesh.
//
//	local (A) --- B --- C --- D
//	               \
//	                `-- 10.99.0.0/24 (attached)
func seedDemoTopology() (graph *topograph.Graph, neighbors *neighdb.DB, local netip.Addr) {
	a := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("10.0.0.2")
	c := netip.MustParseAddr("10.0.0.3")
	d := netip.MustParseAddr("10.0.0.4")

	graph = topograph.New()
	nodeA := graph.Node(a)
	nodeB := graph.Node(b)
	nodeC := graph.Node(c)
	nodeD := graph.Node(d)

	flat := func(cost uint32) (out [routingcore.MaxDomains]uint32) {
		for i := range out {
			out[i] = cost
		}
		return out
	}
	graph.Link(nodeA, nodeB, false, flat(1))
	graph.Link(nodeB, nodeA, false, flat(1))
	graph.Link(nodeB, nodeC, false, flat(1))
	graph.Link(nodeC, nodeB, false, flat(1))
	graph.Link(nodeC, nodeD, false, flat(1))
	graph.Link(nodeD, nodeC, false, flat(1))

	attached := routingcore.Prefix{Prefix: netip.MustParsePrefix("10.99.0.0/24")}
	ep := graph.Endpoint(attached)
	dist := func(d uint8) (out [routingcore.MaxDomains]uint8) {
		for i := range out {
			out[i] = d
		}
		return out
	}
	graph.Attach(nodeB, ep, flat(1), dist(1))

	neighbors = neighdb.New(nil)
	neighbors.Put(&routingcore.Neighbor{
		Symmetric:  1,
		Originator: b,
		Addresses:  []netip.Addr{b},
		Links: []*routingcore.Link{
			{IfAddr: b, IfIndex: 2},
		},
		Metric: metricTowards(b, 2, 1),
	})

	return graph, neighbors, a
}

func metricTowards(addr netip.Addr, ifIndex int, cost uint32) (out [routingcore.MaxDomains]routingcore.DomainMetric) {
	link := &routingcore.Link{IfAddr: addr, IfIndex: ifIndex}
	for i := range out {
		out[i] = routingcore.DomainMetric{In: cost, Out: cost, BestLink: link, BestLinkIfIndex: ifIndex}
	}
	return out
}
