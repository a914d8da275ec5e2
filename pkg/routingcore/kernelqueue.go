package routingcore

import (
	"container/list"
	"context"
	stderrors "errors"

	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// kernelQueue is C6: the ordered queue of pending kernel add/remove
// actions, plus the per-entry kernel state machine it drives (spec.md
// §4.6). Head/tail insertion order guarantees single-hop routes are added
// before the multi-hop routes that may use them as a gateway, and removed
// after them (spec.md §8 P4).
type kernelQueue struct {
	list       *list.List // of *RoutingEntry
	pendingOps map[uuid.UUID]*RoutingEntry

	osRouting OSRouting
	onGone    func(*RoutingEntry) // releases the entry from C2
}

func newKernelQueue(osRouting OSRouting, onGone func(*RoutingEntry)) *kernelQueue {
	return &kernelQueue{
		list:       list.New(),
		pendingOps: make(map[uuid.UUID]*RoutingEntry),
		osRouting:  osRouting,
		onGone:     onGone,
	}
}

// enqueue places e on the queue per the position table in spec.md §4.6:
// single-hop inserts and multi-hop removes go to the head; multi-hop
// inserts and single-hop removes go to the tail.
func (q *kernelQueue) enqueue(e *RoutingEntry) {
	if e.queued {
		return
	}
	e.queued = true
	var head bool
	if e.StateNew {
		head = e.RouteNew.SingleHop()
	} else {
		head = !e.RouteCurrent.SingleHop()
	}
	if head {
		q.list.PushFront(e)
	} else {
		q.list.PushBack(e)
	}
}

// drain dequeues every entry currently on the queue, in order, and issues
// exactly one kernel operation per entry according to its current state
// (spec.md §4.6 table). Entries with an operation already in flight are
// left untouched; the completion callback will finalize them, and a later
// SPF round re-enqueues them if SPF still disagrees with the outcome.
func (q *kernelQueue) drain(ctx context.Context) {
	for {
		front := q.list.Front()
		if front == nil {
			return
		}
		q.list.Remove(front)
		e := front.Value.(*RoutingEntry)
		e.queued = false

		switch e.state {
		case stateAbsent:
			if e.StateNew {
				q.issueAdd(ctx, e)
			}
		case stateInstalled:
			if !e.StateNew {
				q.issueRemove(ctx, e, stateRemoving)
			} else if !e.RouteNew.Equal(e.RouteCurrent) {
				q.issueRemove(ctx, e, stateReplacing)
			}
			// else: SPF re-picked the identical route; P5 means this
			// entry should not have been enqueued at all, but treating
			// it as a no-op here keeps drain() robust regardless.
		default:
			// Installing/Replacing/Removing/Gone: an operation is
			// already in flight for this entry (invariant I3); the
			// completion callback owns the next transition.
		}
	}
}

func (q *kernelQueue) issueAdd(ctx context.Context, e *RoutingEntry) {
	e.state = stateInstalling
	e.InProcessing = true
	op := uuid.New()
	e.pendingOp = op
	q.pendingOps[op] = e

	dlog.Infof(ctx, "Set route %s for %s/%d", e.RouteNew.Gateway, e.Destination, e.DomainIndex)
	done := func(ctx context.Context, err error) { q.onOpDone(ctx, op, err) }
	if err := q.osRouting.Set(ctx, op, e.RouteNew, true, false, done); err != nil {
		q.onOpDone(ctx, op, err)
	}
}

func (q *kernelQueue) issueRemove(ctx context.Context, e *RoutingEntry, next entryState) {
	e.state = next
	e.InProcessing = true
	op := uuid.New()
	e.pendingOp = op
	q.pendingOps[op] = e

	dlog.Infof(ctx, "Remove route %s for %s/%d", e.RouteCurrent.Gateway, e.Destination, e.DomainIndex)
	done := func(ctx context.Context, err error) { q.onOpDone(ctx, op, err) }
	if err := q.osRouting.Set(ctx, op, e.RouteCurrent, false, false, done); err != nil {
		q.onOpDone(ctx, op, err)
	}
}

// onOpDone is the single completion entry point for every kernel
// operation, resolving the opaque op token back to an entry through
// pendingOps rather than a pointer embedded in the callback argument
// (Design Note "Embedded callback structures"). An unknown token is a
// silent no-op: the entry was already torn down by RoutingCore.Cleanup, which
// forgets an op before interrupting it for exactly this reason (Design
// Note "Forgetting after cleanup").
func (q *kernelQueue) onOpDone(ctx context.Context, op uuid.UUID, err error) {
	e, ok := q.pendingOps[op]
	if !ok {
		return
	}
	delete(q.pendingOps, op)
	if e.pendingOp == op {
		e.pendingOp = uuid.Nil
		e.InProcessing = false
	}

	if stderrors.Is(err, ErrInterrupted) {
		// Silent: the interrupter is responsible for any follow-up
		// (spec.md §7, error kind 5).
		return
	}

	switch e.state {
	case stateInstalling:
		q.finishAdd(ctx, e, err)
	case stateReplacing:
		q.finishReplaceRemove(ctx, e, err)
	case stateRemoving:
		q.finishRemove(ctx, e, err)
	}
}

func (q *kernelQueue) finishAdd(ctx context.Context, e *RoutingEntry, err error) {
	if err == nil {
		dlog.Infof(ctx, "Successfully set route for %s/%d", e.Destination, e.DomainIndex)
		e.StateCurrent = true
		e.RouteCurrent = e.RouteNew
		e.state = stateInstalled
		return
	}
	dlog.Warnf(ctx, "Error while adding route for %s/%d: %v", e.Destination, e.DomainIndex, err)
	if !e.StateCurrent {
		e.state = stateGone
		q.onGone(e)
	}
	// else: a prior successful install remains in place untouched.
}

func (q *kernelQueue) finishReplaceRemove(ctx context.Context, e *RoutingEntry, err error) {
	if err == nil || stderrors.Is(err, unix.ESRCH) {
		if stderrors.Is(err, unix.ESRCH) {
			dlog.Debugf(ctx, "Route %s/%d was already gone", e.Destination, e.DomainIndex)
		} else {
			dlog.Infof(ctx, "Successfully removed route for %s/%d", e.Destination, e.DomainIndex)
		}
		e.StateCurrent = false
		q.issueAdd(ctx, e)
		return
	}
	dlog.Warnf(ctx, "Error while removing route for %s/%d: %v", e.Destination, e.DomainIndex, err)
	// The replace's add leg is only ever issued after this remove
	// completes (§5 O1 forbids issuing it earlier), so there is nothing
	// in flight left to interrupt; the entry simply stays installed and
	// is retried on the next SPF round.
	e.state = stateInstalled
}

func (q *kernelQueue) finishRemove(ctx context.Context, e *RoutingEntry, err error) {
	if err == nil || stderrors.Is(err, unix.ESRCH) {
		if stderrors.Is(err, unix.ESRCH) {
			dlog.Debugf(ctx, "Route %s/%d was already gone", e.Destination, e.DomainIndex)
		} else {
			dlog.Infof(ctx, "Successfully removed route for %s/%d", e.Destination, e.DomainIndex)
		}
		e.StateCurrent = false
		e.state = stateGone
		q.onGone(e)
		return
	}
	dlog.Warnf(ctx, "Error while removing route for %s/%d: %v", e.Destination, e.DomainIndex, err)
	e.state = stateInstalled
}

// interruptIfInFlight cancels e's in-flight operation, if any. The
// interrupted callback can arrive after Interrupt returns (RoutingCore's
// serializingOSRouting always redelivers it through the command loop), and
// possibly after a newer operation was issued for e; onOpDone then leaves
// e.InProcessing to that newer operation.
func (q *kernelQueue) interruptIfInFlight(e *RoutingEntry) {
	if e.InProcessing {
		q.osRouting.Interrupt(e.pendingOp)
	}
}

// forget removes op's callback association without interrupting it,
// so a later (or concurrent) completion is silently absorbed — the
// "null the callback pointer first" discipline from Design Note
// "Forgetting after cleanup", reimplemented as a lookup miss instead of a
// use-after-free hazard.
func (q *kernelQueue) forget(op uuid.UUID) {
	delete(q.pendingOps, op)
}

func (q *kernelQueue) empty() bool {
	return q.list.Len() == 0
}
