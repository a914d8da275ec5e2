package routingcore

import "sort"

// routingEntryTable is C2: a per-domain ordered map from destination
// prefix to RoutingEntry. C2 is the sole owner of every RoutingEntry
// (spec.md §3, Ownership).
type routingEntryTable struct {
	byDomain [MaxDomains]map[Prefix]*RoutingEntry
	// order keeps each domain's keys sorted by Prefix.Less so iter()
	// has a stable, deterministic order (spec.md §4.2).
	order [MaxDomains][]Prefix
}

func newRoutingEntryTable() *routingEntryTable {
	t := &routingEntryTable{}
	for i := range t.byDomain {
		t.byDomain[i] = make(map[Prefix]*RoutingEntry)
	}
	return t
}

// find is a pure lookup; it returns nil if no entry exists.
func (t *routingEntryTable) find(d DomainIndex, p Prefix) *RoutingEntry {
	return t.byDomain[d][p]
}

// upsert returns the existing entry for (d, p) or creates a fresh one with
// Cost=InfinitePath, both State* false, and route_new/route_current
// destinations and families seeded from p (spec.md §4.2).
func (t *routingEntryTable) upsert(d DomainIndex, p Prefix) *RoutingEntry {
	if e, ok := t.byDomain[d][p]; ok {
		return e
	}
	e := &RoutingEntry{
		DomainIndex: d,
		Destination: p,
		Cost:        InfinitePath,
	}
	e.RouteNew.Dst = p
	e.RouteCurrent.Dst = p
	t.byDomain[d][p] = e
	t.insertOrder(d, p)
	return e
}

func (t *routingEntryTable) insertOrder(d DomainIndex, p Prefix) {
	keys := t.order[d]
	i := sort.Search(len(keys), func(i int) bool { return !keys[i].Less(p) })
	keys = append(keys, Prefix{})
	copy(keys[i+1:], keys[i:])
	keys[i] = p
	t.order[d] = keys
}

func (t *routingEntryTable) removeOrder(d DomainIndex, p Prefix) {
	keys := t.order[d]
	i := sort.Search(len(keys), func(i int) bool { return !keys[i].Less(p) })
	if i < len(keys) && keys[i] == p {
		t.order[d] = append(keys[:i], keys[i+1:]...)
	}
}

// remove unlinks and releases entry e. It is a programming error to call
// this while e is queued on C6 (spec.md §3, Ownership); callers must check
// e.queued first.
func (t *routingEntryTable) remove(e *RoutingEntry) {
	if e.queued {
		panic("routingcore: remove of an entry still queued on the kernel reconciliation queue")
	}
	delete(t.byDomain[e.DomainIndex], e.Destination)
	t.removeOrder(e.DomainIndex, e.Destination)
}

// iter returns every entry of domain d in stable key order.
func (t *routingEntryTable) iter(d DomainIndex) []*RoutingEntry {
	keys := t.order[d]
	out := make([]*RoutingEntry, len(keys))
	for i, k := range keys {
		out[i] = t.byDomain[d][k]
	}
	return out
}

func (t *routingEntryTable) empty() bool {
	for i := range t.byDomain {
		if len(t.byDomain[i]) > 0 {
			return false
		}
	}
	return true
}
