package routingcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingEntryTableUpsertIsIdempotent(t *testing.T) {
	table := newRoutingEntryTable()
	p := mustPrefix(t, "10.0.0.0/24")

	e1 := table.upsert(0, p)
	e2 := table.upsert(0, p)
	assert.Same(t, e1, e2)
	assert.Equal(t, InfinitePath, e1.Cost)
	assert.Equal(t, p, e1.RouteNew.Dst)
}

func TestRoutingEntryTableIterIsStableKeyOrder(t *testing.T) {
	table := newRoutingEntryTable()
	table.upsert(0, mustPrefix(t, "10.0.2.0/24"))
	table.upsert(0, mustPrefix(t, "10.0.0.0/24"))
	table.upsert(0, mustPrefix(t, "10.0.1.0/24"))

	entries := table.iter(0)
	require.Len(t, entries, 3)
	assert.Equal(t, "10.0.0.0/24", entries[0].Destination.String())
	assert.Equal(t, "10.0.1.0/24", entries[1].Destination.String())
	assert.Equal(t, "10.0.2.0/24", entries[2].Destination.String())
}

func TestRoutingEntryTableRemove(t *testing.T) {
	table := newRoutingEntryTable()
	p := mustPrefix(t, "10.0.0.0/24")
	e := table.upsert(0, p)

	table.remove(e)
	assert.Nil(t, table.find(0, p))
	assert.Empty(t, table.iter(0))
}

func TestRoutingEntryTableRemovePanicsWhileQueued(t *testing.T) {
	table := newRoutingEntryTable()
	e := table.upsert(0, mustPrefix(t, "10.0.0.0/24"))
	e.queued = true

	assert.Panics(t, func() { table.remove(e) })
}

func TestRoutingEntryTableDomainsAreIndependent(t *testing.T) {
	table := newRoutingEntryTable()
	p := mustPrefix(t, "10.0.0.0/24")
	table.upsert(0, p)
	assert.Nil(t, table.find(1, p))
	assert.False(t, table.empty())
}
