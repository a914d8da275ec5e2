package routingcore

import (
	"context"
	"time"

	"github.com/datawire/dlib/dlog"
)

// rateLimiter is C7: a one-shot timer plus a pending flag that coalesces
// recomputation requests so SPF never runs more often than once per
// window (spec.md §4.7, §8 S6).
type rateLimiter struct {
	timerSvc TimerService
	timer    *Timer
	window   time.Duration
	pending  bool

	shuttingDown func() bool
	runSPF       func(ctx context.Context)
}

// newRateLimiter builds the rate limiter. dispatch redelivers the timer's
// Fire callback onto the owning RoutingCore's command loop — TimerService
// implementations are free to fire from any goroutine, and this is the one
// place that boundary gets crossed back into single-threaded territory.
func newRateLimiter(timerSvc TimerService, window time.Duration, shuttingDown func() bool, runSPF func(ctx context.Context), dispatch func(func(context.Context))) *rateLimiter {
	rl := &rateLimiter{
		timerSvc:     timerSvc,
		window:       window,
		shuttingDown: shuttingDown,
		runSPF:       runSPF,
	}
	rl.timer = NewTimer("dijkstra-rate-limit")
	rl.timer.Fire = func(ctx context.Context) { dispatch(rl.onTimerFired) }
	return rl
}

// triggerUpdate sets pending; if the timer is not armed, arms it for the
// next scheduler tick so SPF runs as soon as control returns to the loop.
func (rl *rateLimiter) triggerUpdate(ctx context.Context) {
	rl.pending = true
	if !rl.timerSvc.IsActive(rl.timer) {
		rl.timerSvc.Set(rl.timer, immediateDelay)
	}
	dlog.Debug(ctx, "Trigger routing update")
}

// forceUpdate runs SPF now, unless shutting down or (absent skipWait) the
// rate-limit window is still open, in which case it only records pending
// and defers to the timer callback.
func (rl *rateLimiter) forceUpdate(ctx context.Context, skipWait bool) {
	if rl.shuttingDown() {
		return
	}
	if rl.timerSvc.IsActive(rl.timer) {
		if !skipWait {
			rl.pending = true
			dlog.Debug(ctx, "Delay Dijkstra")
			return
		}
		rl.timerSvc.Stop(rl.timer)
	}

	dlog.Debug(ctx, "Run Dijkstra")
	rl.runSPF(ctx)

	// make sure dijkstra is not called too often
	rl.timerSvc.Set(rl.timer, rl.window)
}

// scheduleChangeDelay rearms the timer for the fixed parameter-change delay
// and marks an SPF pending for when it fires (spec.md §4.1).
func (rl *rateLimiter) scheduleChangeDelay(delay time.Duration) {
	rl.timerSvc.Set(rl.timer, delay)
	rl.pending = true
}

// onTimerFired is the rate-limit timer's callback.
func (rl *rateLimiter) onTimerFired(ctx context.Context) {
	if rl.pending {
		rl.pending = false
		rl.forceUpdate(ctx, false)
	}
}

func (rl *rateLimiter) stop() {
	rl.timerSvc.Stop(rl.timer)
}
