package routingcore

// Filter is a predicate over a candidate kernel route, evaluated during
// SPF reconciliation (spec.md §4.3). It returns true to accept the
// candidate, false to drop it.
type Filter func(domain DomainIndex, candidate KernelRoute) bool

// FilterHandle identifies a filter previously added to a RoutingCore's
// chain, so it can be removed later without relying on function identity.
type FilterHandle int

type filterEntry struct {
	handle FilterHandle
	fn     Filter
}

// filterChain is C3: an ordered, front-to-back list of Filters.
type filterChain struct {
	entries []filterEntry
	nextID  FilterHandle
}

// add appends filter to the end of the chain and returns a handle that
// identifies it for a later remove.
func (c *filterChain) add(f Filter) FilterHandle {
	c.nextID++
	h := c.nextID
	c.entries = append(c.entries, filterEntry{handle: h, fn: f})
	return h
}

// remove deletes the filter identified by h, if present.
func (c *filterChain) remove(h FilterHandle) {
	for i, e := range c.entries {
		if e.handle == h {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// accept evaluates the chain front-to-back; a candidate is accepted only
// if every filter accepts it.
func (c *filterChain) accept(domain DomainIndex, candidate KernelRoute) bool {
	for _, e := range c.entries {
		if !e.fn(domain, candidate) {
			return false
		}
	}
	return true
}
