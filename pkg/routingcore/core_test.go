package routingcore

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// domain0OnlyCost builds a per-domain cost array usable with TCEdge/TCAttachment
// where only domain 0 carries a finite cost, so a test graph's route only
// ever appears in the one domain under test.
func domain0OnlyCost(cost uint32) (out [MaxDomains]uint32) {
	for i := range out {
		out[i] = InfiniteMetric
	}
	out[0] = cost
	return out
}

func domain0OnlyDistance(d uint8) (out [MaxDomains]uint8) {
	out[0] = d
	return out
}

func domain0OnlyMetric(link *Link, cost uint32) (out [MaxDomains]DomainMetric) {
	for i := 1; i < MaxDomains; i++ {
		out[i] = DomainMetric{In: InfiniteMetric, Out: InfiniteMetric}
	}
	out[0] = DomainMetric{In: cost, Out: cost, BestLink: link, BestLinkIfIndex: link.IfIndex}
	return out
}

// TestRoutingCoreEndToEndInstallAndWithdraw drives RoutingCore through a
// full lifecycle: configure a domain, force an SPF run that installs a
// route, confirm its kernel add, snapshot it, then shut down and confirm
// the matching kernel remove and table teardown (spec.md §4, end to end).
func TestRoutingCoreEndToEndInstallAndWithdraw(t *testing.T) {
	local := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("10.0.0.2")

	graph := newFakeGraph()
	nodeLocal := graph.node(local)
	nodeB := graph.node(b)
	nodeLocal.Edges = append(nodeLocal.Edges, &TCEdge{Dst: nodeB, Cost: domain0OnlyCost(1)})

	linkB := &Link{IfAddr: b, IfIndex: 3}
	neigh := &fakeNeighDB{neighbors: []*Neighbor{
		{Symmetric: 1, Originator: b, Metric: domain0OnlyMetric(linkB, 1)},
	}}

	os := &fakeOSRouting{}
	timerSvc := newFakeTimerService()
	core := NewRoutingCore(graph, neigh, os, timerSvc, func(a netip.Addr) bool { return a == local })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- core.Run(ctx) }()

	core.SetDomainParameter(ctx, 0, DomainParams{Table: 254, Protocol: 100, Distance: 5})
	core.ForceUpdate(ctx, true)

	require.Len(t, os.calls, 1, "SPF must have issued exactly one kernel add, for B's one-hop route")
	assert.True(t, os.calls[0].add)
	assert.Equal(t, b, os.calls[0].route.Dst.Addr())
	os.last().done(context.Background(), nil)

	snap := core.Snapshot(ctx, 0)
	require.Len(t, snap, 1)
	assert.True(t, snap[0].StateCurrent)
	assert.Equal(t, uint8(5), snap[0].RouteCurrent.Metric)

	core.InitiateShutdown(ctx)
	require.Len(t, os.calls, 2, "shutdown must issue exactly one withdrawal for the installed route")
	assert.False(t, os.calls[1].add)
	os.last().done(context.Background(), nil)

	core.Cleanup(ctx)
	assert.Empty(t, core.Snapshot(ctx, 0), "cleanup must discard the table outright")

	cancel()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RoutingCore.Run did not stop after its context was cancelled")
	}
}

// TestRoutingCoreFilterRejectsBeforeInstall confirms a filter installed via
// AddFilter suppresses a kernel add entirely (C3 wired end to end).
func TestRoutingCoreFilterRejectsBeforeInstall(t *testing.T) {
	local := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("10.0.0.2")

	graph := newFakeGraph()
	nodeLocal := graph.node(local)
	nodeB := graph.node(b)
	nodeLocal.Edges = append(nodeLocal.Edges, &TCEdge{Dst: nodeB, Cost: domain0OnlyCost(1)})

	linkB := &Link{IfAddr: b, IfIndex: 3}
	neigh := &fakeNeighDB{neighbors: []*Neighbor{
		{Symmetric: 1, Originator: b, Metric: domain0OnlyMetric(linkB, 1)},
	}}

	os := &fakeOSRouting{}
	timerSvc := newFakeTimerService()
	core := NewRoutingCore(graph, neigh, os, timerSvc, func(a netip.Addr) bool { return a == local })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = core.Run(ctx) }()

	h := core.AddFilter(ctx, func(DomainIndex, KernelRoute) bool { return false })
	core.SetDomainParameter(ctx, 0, DomainParams{Table: 254, Protocol: 100})
	core.ForceUpdate(ctx, true)

	assert.Empty(t, os.calls, "a rejecting filter must prevent any kernel add")

	core.RemoveFilter(ctx, h)
	core.ForceUpdate(ctx, true)
	require.Len(t, os.calls, 1, "removing the filter must let the next run install the route")
}
