// Package routingcore implements a link-state routing core in the OLSRv2
// family: it turns a topology-graph/neighbor-database snapshot into kernel
// routes via Dijkstra SPF, reconciles them against the kernel through a
// single-in-flight-operation state machine, and rate-limits recomputation.
//
// The core is single-threaded by design (spec.md §5): every public method
// submits a closure onto one internal command channel drained by Run, so
// none of C1 through C7's state is ever touched from two goroutines at
// once and no internal locking is needed.
package routingcore

import (
	"context"
	"net/netip"

	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
)

// RoutingCore is the facade a caller drives: feed it topology and neighbor
// changes, ask it to recompute, and read back the routing table it
// maintains. Construct with NewRoutingCore; start its loop with Run inside
// a dgroup.Group so it shares the process's lifecycle (Design Note
// "Global state" — exactly one RoutingCore per process is assumed, same as
// the C original's single static routing database).
type RoutingCore struct {
	domains *domainParameterStore
	table   *routingEntryTable
	chain   *filterChain
	kq      *kernelQueue
	spf     *spfEngine
	rate    *rateLimiter

	osRouting OSRouting
	timerSvc  TimerService

	cmds         chan func(context.Context)
	shuttingDown bool
}

// NewRoutingCore wires C1 through C8 together. topo and neigh are consulted
// fresh on every SPF run; osRouting and timerSvc are the only collaborators
// the core calls asynchronously, and both are wrapped so their callbacks
// are always delivered back onto the core's own command loop.
func NewRoutingCore(topo TopologyGraph, neigh NeighborDatabase, osRouting OSRouting, timerSvc TimerService, isLocal LocalOriginatorChecker) *RoutingCore {
	c := &RoutingCore{
		domains:   &domainParameterStore{},
		table:     newRoutingEntryTable(),
		chain:     &filterChain{},
		timerSvc:  timerSvc,
		cmds:      make(chan func(context.Context), 64),
	}
	c.osRouting = &serializingOSRouting{inner: osRouting, core: c}
	c.kq = newKernelQueue(c.osRouting, c.table.remove)
	c.spf = newSPFEngine(topo, neigh, c.table, c.chain, c.domains, c.kq, isLocal)
	c.rate = newRateLimiter(timerSvc, DefaultRateLimit, func() bool { return c.shuttingDown }, c.runAllDomains, func(fn func(context.Context)) { c.cmds <- fn })
	return c
}

// SetLocalIPv4 sets the address used to populate route_new.src_ip for
// domains with UseSrcIPInRoute set (spec.md §4.5). A zero Addr disables it.
func (c *RoutingCore) SetLocalIPv4(ctx context.Context, addr netip.Addr) {
	c.submit(ctx, func(context.Context) { c.spf.localIPv4 = addr })
}

// Run drains the command queue until ctx is cancelled. It is meant to be
// started with dgroup's g.Go, the way the rest of this codebase runs its
// long-lived components.
func (c *RoutingCore) Run(ctx context.Context) error {
	dlog.Debug(ctx, "Routing core started")
	for {
		select {
		case <-ctx.Done():
			dlog.Debug(ctx, "Routing core stopped")
			return nil
		case cmd := <-c.cmds:
			cmd(ctx)
		}
	}
}

// submit runs fn on the command loop and blocks until it has completed (or
// ctx is done first). Every exported method below is a thin wrapper around
// submit, which is what makes the rest of this package safe to write as if
// it only ever ran on one goroutine.
func (c *RoutingCore) submit(ctx context.Context, fn func(context.Context)) {
	done := make(chan struct{})
	select {
	case c.cmds <- func(ctx context.Context) { fn(ctx); close(done) }:
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (c *RoutingCore) runAllDomains(ctx context.Context) {
	for d := DomainIndex(0); d < MaxDomains; d++ {
		c.spf.run(ctx, d)
	}
	c.kq.drain(ctx)
}

// SetDomainParameter installs p for domain d (spec.md §4.1). A change to an
// already-configured domain tears down every route currently owned by it
// before scheduling a fresh SPF run after ParameterChangeDelay, since the
// kernel route identity (table, protocol) a route carries can only change
// by removing and re-adding it, never by mutating it in place.
func (c *RoutingCore) SetDomainParameter(ctx context.Context, d DomainIndex, p DomainParams) {
	c.submit(ctx, func(ctx context.Context) {
		if !c.domains.set(d, p) {
			return
		}
		for _, e := range c.table.iter(d) {
			if e.StateNew {
				e.StateNew = false
				c.kq.enqueue(e)
			}
		}
		c.kq.drain(ctx)
		c.rate.scheduleChangeDelay(ParameterChangeDelay)
	})
}

// AddFilter appends f to the filter chain (C3) and returns a handle usable
// with RemoveFilter.
func (c *RoutingCore) AddFilter(ctx context.Context, f Filter) FilterHandle {
	var h FilterHandle
	c.submit(ctx, func(context.Context) { h = c.chain.add(f) })
	return h
}

// RemoveFilter removes a previously added filter. Removing an unknown or
// already-removed handle is a no-op.
func (c *RoutingCore) RemoveFilter(ctx context.Context, h FilterHandle) {
	c.submit(ctx, func(context.Context) { c.chain.remove(h) })
}

// OnNHDPUpdate records that the neighbor database or topology graph
// changed and schedules a coalesced SPF run (spec.md §4.7). It never runs
// SPF synchronously — repeated bursts of neighbor churn collapse into one
// recomputation per rate-limit window.
func (c *RoutingCore) OnNHDPUpdate(ctx context.Context) {
	c.submit(ctx, func(ctx context.Context) { c.rate.triggerUpdate(ctx) })
}

// ForceUpdate runs SPF immediately unless the rate-limit window is still
// open, in which case skipWait decides whether to wait it out (false) or
// jump the queue (true). Mirrors spec.md §4.7's force_update.
func (c *RoutingCore) ForceUpdate(ctx context.Context, skipWait bool) {
	c.submit(ctx, func(ctx context.Context) { c.rate.forceUpdate(ctx, skipWait) })
}

// InitiateShutdown asks every currently-installed route to be withdrawn
// (spec.md §4.6, "any state → Removing on shutdown"). It does not wait for
// the kernel to confirm the withdrawals; call Cleanup after InitiateShutdown
// to tear down whatever remains regardless of outcome.
func (c *RoutingCore) InitiateShutdown(ctx context.Context) {
	c.submit(ctx, func(ctx context.Context) {
		c.shuttingDown = true
		for d := DomainIndex(0); d < MaxDomains; d++ {
			for _, e := range c.table.iter(d) {
				if !e.StateCurrent {
					continue
				}
				e.StateNew = false
				c.kq.interruptIfInFlight(e)
				e.state = stateInstalled
				c.kq.enqueue(e)
			}
		}
		c.kq.drain(ctx)
		c.rate.stop()
	})
}

// Cleanup forcibly tears down everything still outstanding after
// InitiateShutdown's withdrawals had a chance to run: it forgets (rather
// than interrupts-and-waits-for) every still-pending kernel operation, per
// Design Note "Forgetting after cleanup", then discards the routing table
// and filter chain outright. Call this once, last, during process exit.
func (c *RoutingCore) Cleanup(ctx context.Context) {
	c.submit(ctx, func(ctx context.Context) {
		for op := range c.kq.pendingOps {
			c.kq.forget(op)
			c.osRouting.Interrupt(op)
		}
		for d := range c.table.byDomain {
			for _, e := range c.table.byDomain[d] {
				e.queued = false
			}
			c.table.byDomain[d] = make(map[Prefix]*RoutingEntry)
			c.table.order[d] = nil
		}
		c.chain.entries = nil
	})
}

// Snapshot returns a point-in-time copy of every routing entry domain d
// currently holds, in the table's stable key order. Safe to call from any
// goroutine; it runs on the command loop like everything else.
func (c *RoutingCore) Snapshot(ctx context.Context, d DomainIndex) []RoutingEntry {
	var out []RoutingEntry
	c.submit(ctx, func(context.Context) {
		for _, e := range c.table.iter(d) {
			out = append(out, *e)
		}
	})
	return out
}

// serializingOSRouting wraps a caller-supplied OSRouting so its completion
// callback is always delivered back onto the core's command loop, even
// when the real implementation invokes it from its own goroutine (e.g. an
// os/exec child process or a netlink reader).
type serializingOSRouting struct {
	inner OSRouting
	core  *RoutingCore
}

func (s *serializingOSRouting) Set(ctx context.Context, op uuid.UUID, route KernelRoute, add bool, blocking bool, done RouteResultFunc) error {
	return s.inner.Set(ctx, op, route, add, blocking, func(_ context.Context, err error) {
		s.core.cmds <- func(ctx context.Context) { done(ctx, err) }
	})
}

func (s *serializingOSRouting) Interrupt(op uuid.UUID) {
	s.inner.Interrupt(op)
}
