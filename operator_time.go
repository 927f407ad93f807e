package rx

import (
	"time"

	"github.com/AnatoleLucet/rx/internal"
	"github.com/pkg/errors"
)

// Debounce emits a value only once window has passed without a newer one.
// A pending value is flushed when upstream completes.
func (s *Signal[V]) Debounce(window time.Duration) *Signal[V] {
	if window <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		sched := s.clock()

		var (
			mu      internal.ReentrantMutex
			pending V
			has     bool
			timer   Disposable
		)

		flush := func() {
			if !has {
				return
			}
			v := pending
			var zero V
			pending, has = zero, false
			o.Accept(v)
		}

		return s.run(&funcObserver[V]{
			next: func(v V) {
				mu.Lock()
				defer mu.Unlock()

				if timer != nil {
					timer.Dispose()
				}
				pending, has = v, true

				var t Disposable
				t = sched.Schedule(window, false, func() {
					mu.Lock()
					defer mu.Unlock()

					// a newer value rescheduled
					if timer != t {
						return
					}
					timer = nil
					flush()
				})
				timer = t
				d.And(t)
			},
			err: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				o.Error(err)
			},
			complete: func() {
				mu.Lock()
				defer mu.Unlock()

				if timer != nil {
					timer.Dispose()
					timer = nil
				}
				flush()
				o.Complete()
			},
		}, d)
	})
}

// Throttle emits a value only if window has passed since the last emitted
// one. The first value always passes; the ones in between are dropped.
func (s *Signal[V]) Throttle(window time.Duration) *Signal[V] {
	if window <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		sched := s.clock()

		var last time.Time
		var has bool

		return s.run(&funcObserver[V]{
			next: func(v V) {
				now := sched.Now()
				if has && now.Before(last.Add(window)) {
					return
				}
				last, has = now, true
				o.Accept(v)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// SkipFor drops the values arriving within dur of subscribing.
func (s *Signal[V]) SkipFor(dur time.Duration) *Signal[V] {
	if dur <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		sched := s.clock()
		deadline := sched.Now().Add(dur)

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if sched.Now().Before(deadline) {
					return
				}
				o.Accept(v)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// TakeFor forwards values for dur after subscribing, then completes and
// disposes upstream. A non-positive dur completes right away.
func (s *Signal[V]) TakeFor(dur time.Duration) *Signal[V] {
	if dur <= 0 {
		return derive(s, completeNow[V])
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		out := serialize(&mu, o)

		d.And(s.clock().Schedule(dur, false, func() {
			out.Complete()
			d.Dispose()
		}))

		return s.run(out, d)
	})
}

// Timeout fails with ErrTimeout when dur passes without a value, counting
// from the subscription and then from every value.
func (s *Signal[V]) Timeout(dur time.Duration) *Signal[V] {
	if dur <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		sched := s.clock()

		var mu internal.ReentrantMutex
		var timer Disposable

		arm := func() {
			if timer != nil {
				timer.Dispose()
			}

			var t Disposable
			t = sched.Schedule(dur, false, func() {
				mu.Lock()
				defer mu.Unlock()

				if timer != t {
					return
				}
				o.Error(errors.Wrapf(ErrTimeout, "no value within %s", dur))
				d.Dispose()
			})
			timer = t
			d.And(t)
		}

		mu.Lock()
		arm()
		mu.Unlock()

		return s.run(serialize[V](&mu, &funcObserver[V]{
			next: func(v V) {
				arm()
				o.Accept(v)
			},
			err: o.Error,
			complete: func() {
				if timer != nil {
					timer.Dispose()
				}
				o.Complete()
			},
		}), d)
	})
}

// Delay shifts every value by dur, keeping their order. Completion waits for
// the delayed values; errors pass through at once and drop them.
func (s *Signal[V]) Delay(dur time.Duration) *Signal[V] {
	if dur <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		line := newTimeline(s.clock(), o, d)

		return s.run(&funcObserver[V]{
			next:     func(v V) { line.push(v, dur) },
			err:      line.fail,
			complete: line.complete,
		}, d)
	})
}

// Interval spaces the values at least period apart, queuing the ones arriving
// early. Each subscription paces on its own; use PaceWith to share a pace.
func (s *Signal[V]) Interval(period time.Duration) *Signal[V] {
	if period <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		return s.PaceWith(NewPacer(period)).run(o, d)
	})
}

// PaceWith emits the values on the slots handed out by p. Every Signal and
// subscription sharing p shares its rate, served in the order values arrive.
func (s *Signal[V]) PaceWith(p *Pacer) *Signal[V] {
	if p == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		sched := s.clock()
		line := newTimeline(sched, o, d)

		return s.run(&funcObserver[V]{
			next: func(v V) {
				line.push(v, p.reserve(sched.Now()))
			},
			err:      line.fail,
			complete: line.complete,
		}, d)
	})
}

// BufferFor collects values into windows lasting dur. A window opens with the
// first value after the previous one was emitted, so no empty windows are
// emitted. The open window is flushed on completion. A non-positive dur
// yields Never.
func BufferFor[V any](s *Signal[V], dur time.Duration) *Signal[[]V] {
	if dur <= 0 {
		return derive(s, completeNow[[]V])
	}

	return derive(s, func(o Observer[[]V], d Disposable) Disposable {
		sched := s.clock()

		var (
			mu     internal.ReentrantMutex
			window []V
			timer  Disposable
		)

		flush := func() {
			if timer != nil {
				timer.Dispose()
				timer = nil
			}
			if len(window) == 0 {
				return
			}
			full := window
			window = nil
			o.Accept(full)
		}

		return s.run(&funcObserver[V]{
			next: func(v V) {
				mu.Lock()
				defer mu.Unlock()

				window = append(window, v)
				if timer != nil {
					return
				}

				var t Disposable
				t = sched.Schedule(dur, false, func() {
					mu.Lock()
					defer mu.Unlock()

					if timer == t {
						flush()
					}
				})
				timer = t
				d.And(t)
			},
			err: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				o.Error(err)
			},
			complete: func() {
				mu.Lock()
				defer mu.Unlock()
				flush()
				o.Complete()
			},
		}, d)
	})
}

type timed[V any] struct {
	value V
	due   time.Time
}

// timeline emits values at their due time in the order they were pushed.
// Due times handed to push must not decrease.
type timeline[V any] struct {
	mu    internal.ReentrantMutex
	sched Scheduler
	out   Observer[V]
	d     Disposable

	queue     *internal.Queue[timed[V]]
	completed bool
}

func newTimeline[V any](sched Scheduler, out Observer[V], d Disposable) *timeline[V] {
	return &timeline[V]{
		sched: sched,
		out:   out,
		d:     d,
		queue: internal.NewQueue[timed[V]](),
	}
}

func (t *timeline[V]) push(v V, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if delay <= 0 && t.queue.Len() == 0 {
		t.out.Accept(v)
		return
	}

	t.queue.Enqueue(timed[V]{value: v, due: t.sched.Now().Add(delay)})
	t.d.And(t.sched.Schedule(delay, false, t.drain))
}

func (t *timeline[V]) drain() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.sched.Now()
	for !t.d.IsDisposed() {
		item, ok := t.queue.DequeueIf(func(item timed[V]) bool {
			return !item.due.After(now)
		})
		if !ok {
			break
		}
		t.out.Accept(item.value)
	}

	if t.completed && t.queue.Len() == 0 {
		t.out.Complete()
	}
}

func (t *timeline[V]) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed = true
	if t.queue.Len() == 0 {
		t.out.Complete()
	}
}

func (t *timeline[V]) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.queue.Clear()
	t.out.Error(err)
}
