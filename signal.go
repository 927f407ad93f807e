// Package rx is a push based reactive pipeline: a Signal describes a stream of
// values ending in completion or error, operators derive new Signals from it,
// and every subscription returns one Disposable unwinding the whole chain.
package rx

import (
	"context"
	"sync"

	"github.com/AnatoleLucet/rx/internal"
)

// Signal is an immutable recipe for a sequence of values over time.
// Subscribing runs the recipe once; every subscription owns its own state.
type Signal[V any] struct {
	subscribe func(Observer[V], Disposable) Disposable

	// used by timed operators downstream, nil means DefaultScheduler
	scheduler Scheduler
}

// New creates a Signal from a subscribe function. It receives the observer to
// push into and the subscription's Disposable, which sources emitting in a
// loop should check; it returns that Disposable, optionally extended with And.
func New[V any](fn func(observer Observer[V], d Disposable) Disposable) *Signal[V] {
	if fn == nil {
		return Never[V]()
	}

	return &Signal[V]{
		subscribe: scope(func(o Observer[V], d Disposable) Disposable {
			return fn(guard(o, d), d)
		}),
	}
}

// Create creates a Signal from any push source: fn attaches observer to the
// source and returns what detaches it.
func Create[V any](fn func(observer Observer[V]) Disposable) *Signal[V] {
	if fn == nil {
		return Never[V]()
	}

	return New(func(o Observer[V], d Disposable) Disposable {
		return d.And(fn(o))
	})
}

// Of emits the given values in order, then completes.
func Of[V any](values ...V) *Signal[V] {
	return New(func(o Observer[V], d Disposable) Disposable {
		for _, v := range values {
			if d.IsDisposed() {
				return d
			}
			o.Accept(v)
		}
		o.Complete()
		return d
	})
}

// Range emits count integers starting at start.
func Range(start, count int) *Signal[int] {
	return New(func(o Observer[int], d Disposable) Disposable {
		for i := 0; i < count; i++ {
			if d.IsDisposed() {
				return d
			}
			o.Accept(start + i)
		}
		o.Complete()
		return d
	})
}

// Never emits nothing and completes right away. It holds no state, so every
// call may share it.
func Never[V any]() *Signal[V] {
	return &Signal[V]{subscribe: completeNow[V]}
}

func completeNow[V any](o Observer[V], d Disposable) Disposable {
	o.Complete()
	return d
}

// Fail emits err and nothing else.
func Fail[V any](err error) *Signal[V] {
	return New(func(o Observer[V], d Disposable) Disposable {
		o.Error(err)
		return d
	})
}

// To subscribes observer and returns the Disposable of the subscription.
func (s *Signal[V]) To(observer Observer[V]) Disposable {
	d := NewDisposable()
	if observer == nil {
		observer = NewObserver[V](nil, nil, nil)
	}
	return s.run(guard(observer, d), d)
}

// Subscribe consumes values only. Errors go to the error handler.
func (s *Signal[V]) Subscribe(next func(V)) Disposable {
	return s.To(NewObserver(next, nil, nil))
}

// SubscribeAll consumes all three channels. nil callbacks are allowed, see NewObserver.
func (s *Signal[V]) SubscribeAll(next func(V), err func(error), complete func()) Disposable {
	return s.To(NewObserver(next, err, complete))
}

// Collect subscribes and blocks until the signal terminates or ctx is done,
// returning every value received so far. The subscription runs on its own
// goroutine, so a source emitting synchronously forever still stops on ctx.
func (s *Signal[V]) Collect(ctx context.Context) ([]V, error) {
	var mu sync.Mutex
	values := make([]V, 0)
	done := make(chan error, 1)

	d := NewDisposable()
	o := guard(NewObserver(func(v V) {
		mu.Lock()
		values = append(values, v)
		mu.Unlock()
	}, func(err error) {
		done <- err
	}, func() {
		done <- nil
	}), d)
	go s.run(o, d)

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		d.Dispose()
		err = ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]V{}, values...), err
}

// On returns the same Signal with sched driving the timed operators derived
// from it.
func (s *Signal[V]) On(sched Scheduler) *Signal[V] {
	if s == nil {
		return Never[V]().On(sched)
	}
	return &Signal[V]{subscribe: s.subscribe, scheduler: sched}
}

func (s *Signal[V]) clock() Scheduler {
	if s != nil && s.scheduler != nil {
		return s.scheduler
	}
	return DefaultScheduler()
}

// run attaches o under d. Panics in the subscribe function become an Error.
func (s *Signal[V]) run(o Observer[V], d Disposable) Disposable {
	if s == nil || s.subscribe == nil {
		o.Complete()
		return d
	}
	if d.IsDisposed() {
		return d
	}

	var result Disposable
	if err := internal.Protect(func() { result = s.subscribe(o, d) }); err != nil {
		o.Error(err)
	}

	if result != nil {
		d.And(result)
	}
	return d
}

func derive[V, R any](parent *Signal[V], fn func(Observer[R], Disposable) Disposable) *Signal[R] {
	var sched Scheduler
	if parent != nil {
		sched = parent.scheduler
	}
	return &Signal[R]{subscribe: scope(fn), scheduler: sched}
}

// scope runs every subscription of a stage under its own child of the
// downstream Disposable. A stage ending early disposes itself and what lies
// upstream of it; stages downstream keep their timers and inner
// subscriptions until they terminate themselves.
func scope[V any](fn func(Observer[V], Disposable) Disposable) func(Observer[V], Disposable) Disposable {
	return func(o Observer[V], d Disposable) Disposable {
		c := child(d)
		c.And(fn(o, c))
		return d
	}
}

// Trigger is a companion signal of any element type, used only for the
// timing of its values and its termination. Every *Signal satisfies it.
type Trigger interface {
	trigger(next func(), done func(error), d Disposable) Disposable
}

func (s *Signal[V]) trigger(next func(), done func(error), d Disposable) Disposable {
	return s.run(&funcObserver[V]{
		next:     func(V) { next() },
		err:      done,
		complete: func() { done(nil) },
	}, d)
}
