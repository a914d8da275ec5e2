package routingcore

import (
	"context"
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeOSRouting records every Set call and lets a test finish (or
// interrupt) each one explicitly, modelling an asynchronous kernel shim.
type fakeOSRouting struct {
	calls []fakeCall
}

type fakeCall struct {
	op    uuid.UUID
	route KernelRoute
	add   bool
	done  RouteResultFunc
}

func (f *fakeOSRouting) Set(_ context.Context, op uuid.UUID, route KernelRoute, add bool, _ bool, done RouteResultFunc) error {
	f.calls = append(f.calls, fakeCall{op: op, route: route, add: add, done: done})
	return nil
}

func (f *fakeOSRouting) Interrupt(op uuid.UUID) {
	for _, c := range f.calls {
		if c.op == op {
			c.done(context.Background(), ErrInterrupted)
			return
		}
	}
}

func (f *fakeOSRouting) last() fakeCall { return f.calls[len(f.calls)-1] }

func TestKernelQueueFreshInstallIssuesAddAndInstalls(t *testing.T) {
	os := &fakeOSRouting{}
	var goneCalled bool
	kq := newKernelQueue(os, func(*RoutingEntry) { goneCalled = true })

	e := &RoutingEntry{StateNew: true, RouteNew: KernelRoute{Table: 254}}
	kq.enqueue(e)
	kq.drain(context.Background())

	require.Len(t, os.calls, 1)
	assert.True(t, os.calls[0].add)
	assert.Equal(t, stateInstalling, e.state)

	os.last().done(context.Background(), nil)
	assert.Equal(t, stateInstalled, e.state)
	assert.True(t, e.StateCurrent)
	assert.False(t, goneCalled)
}

func TestKernelQueueFreshInstallFailureDestroysEntry(t *testing.T) {
	os := &fakeOSRouting{}
	var goneCalled bool
	kq := newKernelQueue(os, func(*RoutingEntry) { goneCalled = true })

	e := &RoutingEntry{StateNew: true, RouteNew: KernelRoute{Table: 254}}
	kq.enqueue(e)
	kq.drain(context.Background())

	os.last().done(context.Background(), assert.AnError)
	assert.Equal(t, stateGone, e.state)
	assert.True(t, goneCalled)
}

func TestKernelQueueReplaceWaitsForRemoveBeforeIssuingAdd(t *testing.T) {
	os := &fakeOSRouting{}
	kq := newKernelQueue(os, func(*RoutingEntry) {})

	e := &RoutingEntry{
		state:        stateInstalled,
		StateCurrent: true,
		StateNew:     true,
		RouteCurrent: KernelRoute{Table: 254, Gateway: mustAddr(t, "10.0.0.2")},
		RouteNew:     KernelRoute{Table: 254, Gateway: mustAddr(t, "10.0.0.3")},
	}
	kq.enqueue(e)
	kq.drain(context.Background())

	require.Len(t, os.calls, 1, "only the remove leg may be issued up front")
	assert.False(t, os.calls[0].add)
	assert.Equal(t, stateReplacing, e.state)

	os.last().done(context.Background(), nil)
	require.Len(t, os.calls, 2, "the add leg is issued only after the remove completes")
	assert.True(t, os.calls[1].add)
	assert.Equal(t, stateInstalling, e.state)
	assert.False(t, e.StateCurrent)

	os.last().done(context.Background(), nil)
	assert.Equal(t, stateInstalled, e.state)
	assert.True(t, e.StateCurrent)
	assert.Equal(t, e.RouteNew, e.RouteCurrent)
}

func TestKernelQueueReplaceRemoveErrorKeepsOldRouteInstalled(t *testing.T) {
	os := &fakeOSRouting{}
	kq := newKernelQueue(os, func(*RoutingEntry) {})

	e := &RoutingEntry{
		state:        stateInstalled,
		StateCurrent: true,
		StateNew:     true,
		RouteCurrent: KernelRoute{Table: 254, Gateway: mustAddr(t, "10.0.0.2")},
		RouteNew:     KernelRoute{Table: 254, Gateway: mustAddr(t, "10.0.0.3")},
	}
	kq.enqueue(e)
	kq.drain(context.Background())

	os.last().done(context.Background(), assert.AnError)
	assert.Equal(t, stateInstalled, e.state)
	assert.True(t, e.StateCurrent, "the old route is assumed to still be installed")
	assert.Len(t, os.calls, 1, "no add should be issued after a failed remove")
}

func TestKernelQueueFinalRemoveESRCHIsTreatedAsSuccess(t *testing.T) {
	os := &fakeOSRouting{}
	var goneCalled bool
	kq := newKernelQueue(os, func(*RoutingEntry) { goneCalled = true })

	e := &RoutingEntry{
		state:        stateInstalled,
		StateCurrent: true,
		StateNew:     false,
		RouteCurrent: KernelRoute{Table: 254},
	}
	kq.enqueue(e)
	kq.drain(context.Background())
	require.Len(t, os.calls, 1)
	assert.False(t, os.calls[0].add)

	os.last().done(context.Background(), unix.ESRCH)
	assert.Equal(t, stateGone, e.state)
	assert.True(t, goneCalled)
}

func TestKernelQueueInterruptedCallbackIsSilent(t *testing.T) {
	os := &fakeOSRouting{}
	kq := newKernelQueue(os, func(*RoutingEntry) {})

	e := &RoutingEntry{StateNew: true, RouteNew: KernelRoute{Table: 254}}
	kq.enqueue(e)
	kq.drain(context.Background())

	kq.interruptIfInFlight(e)
	assert.Equal(t, stateInstalling, e.state, "an interrupted callback must not change entry state itself")
	assert.False(t, e.InProcessing)
}

func TestKernelQueueEnqueuePositionPolicy(t *testing.T) {
	os := &fakeOSRouting{}
	kq := newKernelQueue(os, func(*RoutingEntry) {})

	singleHopAdd := &RoutingEntry{StateNew: true, RouteNew: KernelRoute{}} // on-link: head
	multiHopAdd := &RoutingEntry{StateNew: true, RouteNew: KernelRoute{Gateway: mustAddr(t, "10.0.0.2")}} // tail

	kq.enqueue(multiHopAdd)
	kq.enqueue(singleHopAdd)

	front := kq.list.Front().Value.(*RoutingEntry)
	assert.Same(t, singleHopAdd, front, "single-hop inserts must jump to the head of the queue")
}

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	return netip.MustParseAddr(s)
}
