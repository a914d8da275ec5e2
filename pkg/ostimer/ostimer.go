// Package ostimer is a reference routingcore.TimerService built on
// time.AfterFunc, the same "sleep forever, Reset to a short delay on
// demand" idiom pkg/client/cache's file watcher uses for its debounce
// timer.
package ostimer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/saces/oonf/pkg/routingcore"
)

// Service maps each *routingcore.Timer it is asked to arm to a live
// time.Timer, created lazily on first use and then only ever Reset.
type Service struct {
	ctx context.Context

	mu     sync.Mutex
	timers map[*routingcore.Timer]*entry
}

type entry struct {
	t      *time.Timer
	active bool
}

// New builds a Service whose fired callbacks run with ctx. ctx should be
// the same long-lived context the owning RoutingCore.Run was started with.
func New(ctx context.Context) *Service {
	return &Service{ctx: ctx, timers: make(map[*routingcore.Timer]*entry)}
}

func (s *Service) Set(timer *routingcore.Timer, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[timer]
	if !ok {
		e = &entry{t: time.AfterFunc(time.Duration(math.MaxInt64), func() { s.fire(timer) })}
		s.timers[timer] = e
	}
	e.active = true
	e.t.Reset(delay)
}

func (s *Service) Stop(timer *routingcore.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.timers[timer]; ok {
		e.t.Stop()
		e.active = false
	}
}

func (s *Service) IsActive(timer *routingcore.Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[timer]
	return ok && e.active
}

func (s *Service) fire(timer *routingcore.Timer) {
	s.mu.Lock()
	e, ok := s.timers[timer]
	if ok {
		e.active = false
	}
	s.mu.Unlock()

	select {
	case <-s.ctx.Done():
		return
	default:
		timer.Fire(s.ctx)
	}
}
