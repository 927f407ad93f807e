package rx

import "github.com/AnatoleLucet/rx/internal"

// Observer is the three-channel consumer every pipeline stage ends in.
// A subscription calls Error or Complete at most once, and never calls Accept
// after either.
type Observer[V any] interface {
	Accept(value V)
	Error(err error)
	Complete()
}

// NewObserver builds an Observer from callbacks. Any of them may be nil; a nil
// next or complete is a no-op, while an error reaching a nil err callback goes
// to the error handler instead of being dropped.
func NewObserver[V any](next func(V), err func(error), complete func()) Observer[V] {
	return &funcObserver[V]{next: next, err: err, complete: complete}
}

type funcObserver[V any] struct {
	next     func(V)
	err      func(error)
	complete func()
}

func (o *funcObserver[V]) Accept(v V) {
	if o.next != nil {
		o.next(v)
	}
}

func (o *funcObserver[V]) Error(err error) {
	if o.err == nil {
		uncaught(err)
		return
	}
	o.err(err)
}

func (o *funcObserver[V]) Complete() {
	if o.complete != nil {
		o.complete()
	}
}

// subscriber guards an observer for one subscription: it lets through at most
// one terminal call, drops everything after termination or disposal, turns a
// panic in Accept into an Error, and disposes the subscription once terminated.
// Calls are serialized, so a source pushing from several goroutines still
// never delivers after its terminal call.
type subscriber[V any] struct {
	mu   internal.ReentrantMutex
	down Observer[V]
	d    Disposable
	done bool
}

func guard[V any](o Observer[V], d Disposable) *subscriber[V] {
	if s, ok := o.(*subscriber[V]); ok && s.d == d {
		return s
	}
	return &subscriber[V]{down: o, d: d}
}

func (s *subscriber[V]) Accept(v V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done || s.d.IsDisposed() {
		return
	}
	if err := internal.Protect(func() { s.down.Accept(v) }); err != nil {
		s.Error(err)
	}
}

func (s *subscriber[V]) Error(err error) {
	s.terminate(func() { s.down.Error(err) })
}

func (s *subscriber[V]) Complete() {
	s.terminate(s.down.Complete)
}

func (s *subscriber[V]) terminate(fn func()) {
	s.mu.Lock()
	if s.done || s.d.IsDisposed() {
		s.mu.Unlock()
		return
	}
	s.done = true

	perr := internal.Protect(fn)
	s.mu.Unlock()

	if perr != nil {
		uncaught(perr)
	}
	s.d.Dispose()
}

// serialized delivers to down under a goroutine-reentrant lock so sources
// running on different goroutines never call down concurrently.
type serialized[V any] struct {
	mu   *internal.ReentrantMutex
	down Observer[V]
}

func serialize[V any](mu *internal.ReentrantMutex, down Observer[V]) *serialized[V] {
	return &serialized[V]{mu: mu, down: down}
}

func (s *serialized[V]) Accept(v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down.Accept(v)
}

func (s *serialized[V]) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down.Error(err)
}

func (s *serialized[V]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down.Complete()
}
