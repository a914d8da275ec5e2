package routingcore

import (
	"net/netip"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// KernelRoute is the content of a route as the kernel facade (C8) sees it:
// either the intended route (route_new) or the last successfully
// committed one (route_current). An unspecified Gateway means "on-link".
type KernelRoute struct {
	Dst      Prefix
	IfIndex  int
	Gateway  netip.Addr // zero value (IsValid()==false) means on-link
	SrcIP    netip.Addr // zero value means "not set"
	Table    int
	Protocol int
	Metric   uint8
}

// SingleHop reports whether r would install an on-link route.
func (r KernelRoute) SingleHop() bool {
	return !r.Gateway.IsValid()
}

// Equal does a full content comparison, used by the reconcile step to
// decide whether a recomputed route_new actually differs from the
// installed route_current (spec.md §9, Open Question: the source's
// reconcile check compares a memcpy return value to zero and therefore
// never skips; this repo honors P5 instead and does a real content
// comparison).
func (r KernelRoute) Equal(o KernelRoute) bool {
	return cmp.Equal(r, o,
		cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
		cmp.Comparer(func(a, b Prefix) bool { return a == b }))
}

// entryState is the per-entry kernel state machine (spec.md §4.6).
type entryState uint8

const (
	stateAbsent entryState = iota
	stateInstalling
	stateInstalled
	stateReplacing
	stateRemoving
	stateGone
)

func (s entryState) String() string {
	switch s {
	case stateAbsent:
		return "absent"
	case stateInstalling:
		return "installing"
	case stateInstalled:
		return "installed"
	case stateReplacing:
		return "replacing"
	case stateRemoving:
		return "removing"
	case stateGone:
		return "gone"
	default:
		return "unknown"
	}
}

// RoutingEntry is one record per (domain, prefix) — spec.md §3. Created by
// the SPF engine the first time a destination is reachable; mutated only
// by SPF (state_new, route_new, cost) and by kernel callbacks (state_current,
// route_current, or destruction on final remove).
type RoutingEntry struct {
	DomainIndex DomainIndex
	Destination Prefix

	Cost uint32 // InfinitePath means "no path known"

	RouteNew     KernelRoute
	RouteCurrent KernelRoute

	StateNew     bool
	StateCurrent bool
	InProcessing bool

	state entryState

	// queued is true while the entry has a pending C6 enqueue that
	// hasn't been dispatched yet; it prevents remove() from destroying an
	// entry that is still reachable from the queue (spec.md §3,
	// Ownership).
	queued bool

	// pendingOp is the opaque token minted when an add or remove is
	// issued, resolved back to this entry by the kernel queue's operation
	// table. Design Note "Embedded callback structures".
	pendingOp uuid.UUID
}

// reachable reports whether the most recent SPF round produced a path.
func (e *RoutingEntry) reachable() bool { return e.StateNew }

// installed reports whether the kernel currently holds this route.
func (e *RoutingEntry) installed() bool { return e.StateCurrent }
