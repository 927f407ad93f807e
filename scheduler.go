package rx

import (
	"time"

	"github.com/AnatoleLucet/rx/internal"
)

// Scheduler runs deferred and periodic work for timed operators. It is the
// only clock the pipeline reads.
type Scheduler interface {
	// Schedule runs task after delay, and every delay after that when
	// repeating. Disposing the handle before the task fires prevents it; a
	// task already running is not interrupted.
	Schedule(delay time.Duration, repeating bool, task func()) Disposable

	Now() time.Time
}

var wall Scheduler = wallScheduler{}

// DefaultScheduler returns the real-time scheduler. Tasks run on timer
// goroutines, never before their delay has elapsed.
func DefaultScheduler() Scheduler {
	return wall
}

type wallScheduler struct {
	clock internal.WallClock
}

func (s wallScheduler) Schedule(delay time.Duration, repeating bool, task func()) Disposable {
	return wrapOwner(s.clock.Schedule(delay, repeating, task))
}

func (s wallScheduler) Now() time.Time {
	return s.clock.Now()
}

// VirtualScheduler is a Scheduler whose clock only moves when Advance is
// called. Tasks run synchronously inside Advance, which makes timed pipelines
// deterministic in tests.
type VirtualScheduler struct {
	clock *internal.VirtualClock
}

// NewVirtualScheduler starts a virtual clock at start.
func NewVirtualScheduler(start time.Time) *VirtualScheduler {
	return &VirtualScheduler{clock: internal.NewVirtualClock(start)}
}

func (s *VirtualScheduler) Schedule(delay time.Duration, repeating bool, task func()) Disposable {
	return wrapOwner(s.clock.Schedule(delay, repeating, task))
}

func (s *VirtualScheduler) Now() time.Time {
	return s.clock.Now()
}

// Advance moves the clock forward, running every task falling due.
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.clock.Advance(d)
}

// Pending returns the number of tasks waiting to run.
func (s *VirtualScheduler) Pending() int {
	return s.clock.Pending()
}

type options struct {
	scheduler Scheduler
}

// Option configures a Signal factory.
type Option func(*options)

// WithScheduler makes the factory and the operators derived from its Signal
// use sched.
func WithScheduler(sched Scheduler) Option {
	return func(o *options) {
		o.scheduler = sched
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Tick emits 0, 1, 2, ... every period until disposed. A non-positive period
// yields Never.
func Tick(period time.Duration, opts ...Option) *Signal[int64] {
	o := newOptions(opts)
	if period <= 0 {
		return Never[int64]().On(o.scheduler)
	}

	s := &Signal[int64]{scheduler: o.scheduler}
	s.subscribe = scope(func(obs Observer[int64], d Disposable) Disposable {
		obs = guard(obs, d)

		var mu internal.ReentrantMutex
		var n int64
		return d.And(s.clock().Schedule(period, true, func() {
			mu.Lock()
			defer mu.Unlock()
			obs.Accept(n)
			n++
		}))
	})
	return s
}

// After emits 0 once delay has elapsed, then completes.
func After(delay time.Duration, opts ...Option) *Signal[int64] {
	o := newOptions(opts)

	s := &Signal[int64]{scheduler: o.scheduler}
	s.subscribe = scope(func(obs Observer[int64], d Disposable) Disposable {
		obs = guard(obs, d)

		return d.And(s.clock().Schedule(delay, false, func() {
			obs.Accept(0)
			obs.Complete()
		}))
	})
	return s
}
