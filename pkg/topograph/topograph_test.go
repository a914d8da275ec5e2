package topograph

import (
	"net/netip"
	"testing"

	"github.com/saces/oonf/pkg/routingcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	require.NoError(t, err)
	return a
}

func TestGraphNodeIsStableAcrossCalls(t *testing.T) {
	g := New()
	a := addr(t, "10.0.0.1")
	n1 := g.Node(a)
	n2 := g.Node(a)
	assert.Same(t, n1, n2, "repeated Node calls for the same originator must return the same pointer")
}

func TestGraphLinkUpdatesExistingEdgeInPlace(t *testing.T) {
	g := New()
	src := g.Node(addr(t, "10.0.0.1"))
	dst := g.Node(addr(t, "10.0.0.2"))

	var cost1, cost2 [routingcore.MaxDomains]uint32
	cost1[0] = 10
	cost2[0] = 20

	g.Link(src, dst, false, cost1)
	g.Link(src, dst, true, cost2)

	require.Len(t, src.Edges, 1, "relinking the same pair must update, not duplicate, the edge")
	assert.True(t, src.Edges[0].Virtual)
	assert.Equal(t, uint32(20), src.Edges[0].Cost[0])
}

func TestGraphRemoveNodePrunesIncomingEdges(t *testing.T) {
	g := New()
	a := g.Node(addr(t, "10.0.0.1"))
	b := g.Node(addr(t, "10.0.0.2"))
	var cost [routingcore.MaxDomains]uint32
	g.Link(a, b, false, cost)

	g.RemoveNode(addr(t, "10.0.0.2"))

	_, ok := g.NodeByOriginator(addr(t, "10.0.0.2"))
	assert.False(t, ok)
	assert.Empty(t, a.Edges, "an edge into a removed node must be dropped")
}

func TestGraphEndpointIsStableAcrossCalls(t *testing.T) {
	g := New()
	p := routingcore.PrefixFromAddr(addr(t, "10.1.0.0"))
	e1 := g.Endpoint(p)
	e2 := g.Endpoint(p)
	assert.Same(t, e1, e2)
}
