package rx

import (
	"github.com/AnatoleLucet/rx/internal"
	"go.uber.org/atomic"
)

// Pair is one output of Combine and CombineLatest.
type Pair[A, B any] struct {
	First  A
	Second B
}

func schedulerOf(signals ...interface{ clockOrNil() Scheduler }) Scheduler {
	for _, s := range signals {
		if sched := s.clockOrNil(); sched != nil {
			return sched
		}
	}
	return nil
}

func firstScheduler[V any](sources []*Signal[V]) Scheduler {
	for _, src := range sources {
		if sched := src.clockOrNil(); sched != nil {
			return sched
		}
	}
	return nil
}

func (s *Signal[V]) clockOrNil() Scheduler {
	if s == nil {
		return nil
	}
	return s.scheduler
}

// Merge interleaves the values of s and others. See the Merge function.
func (s *Signal[V]) Merge(others ...*Signal[V]) *Signal[V] {
	return Merge(append([]*Signal[V]{s}, others...)...)
}

// Merge interleaves the values of every source as they arrive. It completes
// once all sources completed and fails as soon as one fails.
func Merge[V any](sources ...*Signal[V]) *Signal[V] {
	if len(sources) == 0 {
		return Never[V]()
	}

	out := &Signal[V]{scheduler: firstScheduler(sources)}

	out.subscribe = scope(func(o Observer[V], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)
		remaining := len(sources)

		for _, src := range sources {
			if d.IsDisposed() {
				break
			}

			src.run(&funcObserver[V]{
				next: down.Accept,
				err: func(err error) {
					down.Error(err)
					d.Dispose()
				},
				complete: func() {
					mu.Lock()
					defer mu.Unlock()

					remaining--
					if remaining == 0 {
						o.Complete()
					}
				},
			}, child(d))
		}
		return d
	})
	return out
}

// loop runs step until no more runs were requested, so sources completing
// synchronously resubscribe iteratively instead of growing the stack.
type loop struct {
	wip atomic.Int64
}

func (l *loop) run(step func()) {
	if l.wip.Inc() != 1 {
		return
	}

	for {
		step()
		if l.wip.Dec() == 0 {
			return
		}
	}
}

// Concat emits the values of s, then those of each of others in turn.
func (s *Signal[V]) Concat(others ...*Signal[V]) *Signal[V] {
	return Concat(append([]*Signal[V]{s}, others...)...)
}

// Concat emits every value of a source before subscribing to the next one.
func Concat[V any](sources ...*Signal[V]) *Signal[V] {
	if len(sources) == 0 {
		return Never[V]()
	}

	out := &Signal[V]{scheduler: firstScheduler(sources)}

	out.subscribe = scope(func(o Observer[V], d Disposable) Disposable {
		var l loop
		index := 0

		var next func()
		next = func() {
			if d.IsDisposed() {
				return
			}
			if index == len(sources) {
				o.Complete()
				return
			}

			src := sources[index]
			index++

			c := child(d)
			src.run(&funcObserver[V]{
				next: o.Accept,
				err:  o.Error,
				complete: func() {
					c.Dispose()
					l.run(next)
				},
			}, c)
		}

		l.run(next)
		return d
	})
	return out
}

// Combine pairs the values of a and b by position. Values wait in a per-side
// queue for their counterpart. It completes once a completed side has no
// queued value left.
func Combine[A, B any](a *Signal[A], b *Signal[B]) *Signal[Pair[A, B]] {
	out := &Signal[Pair[A, B]]{scheduler: schedulerOf(a, b)}

	out.subscribe = scope(func(o Observer[Pair[A, B]], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)

		left := internal.NewQueue[A]()
		right := internal.NewQueue[B]()
		var leftDone, rightDone bool

		emit := func() {
			for left.Len() > 0 && right.Len() > 0 {
				x, _ := left.Dequeue()
				y, _ := right.Dequeue()
				down.Accept(Pair[A, B]{First: x, Second: y})
			}

			if (leftDone && left.Len() == 0) || (rightDone && right.Len() == 0) {
				down.Complete()
				d.Dispose()
			}
		}

		fail := func(err error) {
			down.Error(err)
			d.Dispose()
		}

		a.run(&funcObserver[A]{
			next: func(v A) {
				mu.Lock()
				defer mu.Unlock()
				left.Enqueue(v)
				emit()
			},
			err: fail,
			complete: func() {
				mu.Lock()
				defer mu.Unlock()
				leftDone = true
				emit()
			},
		}, child(d))

		b.run(&funcObserver[B]{
			next: func(v B) {
				mu.Lock()
				defer mu.Unlock()
				right.Enqueue(v)
				emit()
			},
			err: fail,
			complete: func() {
				mu.Lock()
				defer mu.Unlock()
				rightDone = true
				emit()
			},
		}, child(d))

		return d
	})
	return out
}

// CombineLatest emits the latest value of each side every time one of them
// produces, once both have produced at least once. It completes when both
// sides completed, or when a side completes without ever producing.
func CombineLatest[A, B any](a *Signal[A], b *Signal[B]) *Signal[Pair[A, B]] {
	out := &Signal[Pair[A, B]]{scheduler: schedulerOf(a, b)}

	out.subscribe = scope(func(o Observer[Pair[A, B]], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)

		var (
			latest              Pair[A, B]
			hasLeft, hasRight   bool
			leftDone, rightDone bool
		)

		emit := func() {
			if hasLeft && hasRight {
				down.Accept(latest)
			}
		}

		done := func() {
			if (leftDone && rightDone) || (leftDone && !hasLeft) || (rightDone && !hasRight) {
				down.Complete()
				d.Dispose()
			}
		}

		fail := func(err error) {
			down.Error(err)
			d.Dispose()
		}

		a.run(&funcObserver[A]{
			next: func(v A) {
				mu.Lock()
				defer mu.Unlock()
				latest.First, hasLeft = v, true
				emit()
			},
			err: fail,
			complete: func() {
				mu.Lock()
				defer mu.Unlock()
				leftDone = true
				done()
			},
		}, child(d))

		b.run(&funcObserver[B]{
			next: func(v B) {
				mu.Lock()
				defer mu.Unlock()
				latest.Second, hasRight = v, true
				emit()
			},
			err: fail,
			complete: func() {
				mu.Lock()
				defer mu.Unlock()
				rightDone = true
				done()
			},
		}, child(d))

		return d
	})
	return out
}

// FlatMap subscribes to the Signal fn returns for every value and merges
// their values. It completes once s and every inner Signal completed.
func FlatMap[V, R any](s *Signal[V], fn func(V) *Signal[R]) *Signal[R] {
	return derive(s, func(o Observer[R], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)

		// the outer subscription counts as one
		active := 1
		finish := func() {
			mu.Lock()
			defer mu.Unlock()

			active--
			if active == 0 {
				down.Complete()
			}
		}

		fail := func(err error) {
			down.Error(err)
			d.Dispose()
		}

		return s.run(&funcObserver[V]{
			next: func(v V) {
				var inner *Signal[R]
				if fn != nil {
					var err error
					if inner, err = apply(fn, v); err != nil {
						fail(err)
						return
					}
				}

				mu.Lock()
				active++
				mu.Unlock()

				c := child(d)
				inner.run(&funcObserver[R]{
					next: down.Accept,
					err:  fail,
					complete: func() {
						c.Dispose()
						finish()
					},
				}, c)
			},
			err:      fail,
			complete: finish,
		}, d)
	})
}

// FlatMapLatest is FlatMap keeping only the newest inner Signal: a new value
// disposes the previous inner subscription.
func FlatMapLatest[V, R any](s *Signal[V], fn func(V) *Signal[R]) *Signal[R] {
	return derive(s, func(o Observer[R], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)

		var (
			current     Disposable
			generation  uint64
			innerActive bool
			outerDone   bool
		)

		fail := func(err error) {
			down.Error(err)
			d.Dispose()
		}

		return s.run(&funcObserver[V]{
			next: func(v V) {
				var inner *Signal[R]
				if fn != nil {
					var err error
					if inner, err = apply(fn, v); err != nil {
						fail(err)
						return
					}
				}

				mu.Lock()
				defer mu.Unlock()

				if current != nil {
					current.Dispose()
				}
				generation++
				gen := generation
				innerActive = true

				c := child(d)
				current = c
				inner.run(&funcObserver[R]{
					next: func(r R) {
						mu.Lock()
						defer mu.Unlock()
						if gen == generation {
							down.Accept(r)
						}
					},
					err: fail,
					complete: func() {
						mu.Lock()
						defer mu.Unlock()

						c.Dispose()
						if gen != generation {
							return
						}
						innerActive = false
						if outerDone {
							down.Complete()
						}
					},
				}, c)
			},
			err: fail,
			complete: func() {
				mu.Lock()
				defer mu.Unlock()

				outerDone = true
				if !innerActive {
					down.Complete()
				}
			},
		}, d)
	})
}

// Sample emits the latest value each time trigger produces, if a new one
// arrived since the previous sample. A trigger error fails the signal.
func (s *Signal[V]) Sample(trigger Trigger) *Signal[V] {
	if trigger == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)

		var latest V
		var fresh bool

		trigger.trigger(func() {
			mu.Lock()
			defer mu.Unlock()

			if fresh {
				fresh = false
				down.Accept(latest)
			}
		}, func(err error) {
			if err != nil {
				down.Error(err)
				d.Dispose()
			}
		}, child(d))

		return s.run(&funcObserver[V]{
			next: func(v V) {
				mu.Lock()
				defer mu.Unlock()
				latest, fresh = v, true
			},
			err:      down.Error,
			complete: down.Complete,
		}, d)
	})
}

// TakeUntil forwards values until trigger produces, then completes.
func (s *Signal[V]) TakeUntil(trigger Trigger) *Signal[V] {
	if trigger == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)

		trigger.trigger(func() {
			down.Complete()
			d.Dispose()
		}, func(err error) {
			if err != nil {
				down.Error(err)
				d.Dispose()
			}
		}, child(d))

		return s.run(down, d)
	})
}

// SkipUntil drops values until trigger produces.
func (s *Signal[V]) SkipUntil(trigger Trigger) *Signal[V] {
	if trigger == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)
		var open atomic.Bool

		c := child(d)
		trigger.trigger(func() {
			open.Store(true)
			c.Dispose()
		}, func(err error) {
			if err != nil {
				down.Error(err)
				d.Dispose()
			}
		}, c)

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if open.Load() {
					down.Accept(v)
				}
			},
			err:      down.Error,
			complete: down.Complete,
		}, d)
	})
}

// SkipWhen drops values while the latest value of gate is true.
func (s *Signal[V]) SkipWhen(gate *Signal[bool]) *Signal[V] {
	return s.gated(gate, false)
}

// TakeWhen forwards values only while the latest value of gate is true.
// Nothing passes before gate produces.
func (s *Signal[V]) TakeWhen(gate *Signal[bool]) *Signal[V] {
	if gate == nil {
		return derive(s, completeNow[V])
	}
	return s.gated(gate, true)
}

func (s *Signal[V]) gated(gate *Signal[bool], pass bool) *Signal[V] {
	if gate == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var mu internal.ReentrantMutex
		down := serialize(&mu, o)
		var latest atomic.Bool

		gate.run(&funcObserver[bool]{
			next: latest.Store,
			err: func(err error) {
				down.Error(err)
				d.Dispose()
			},
		}, child(d))

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if latest.Load() == pass {
					down.Accept(v)
				}
			},
			err:      down.Error,
			complete: down.Complete,
		}, d)
	})
}
