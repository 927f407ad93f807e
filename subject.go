package rx

import "github.com/AnatoleLucet/rx/internal"

// Subject is a hot source that is also an Observer: values pushed into it
// reach every current subscriber of its Signal. Subscribers arriving after
// termination receive the terminal event right away.
type Subject[V any] struct {
	mu        internal.ReentrantMutex
	observers internal.Listeners[Observer[V]]

	done bool
	err  error
}

func NewSubject[V any]() *Subject[V] {
	return &Subject[V]{}
}

func (s *Subject[V]) Accept(v V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}
	for _, o := range s.observers.Snapshot() {
		o.Accept(v)
	}
}

func (s *Subject[V]) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}
	s.done, s.err = true, err
	for _, o := range s.observers.Clear() {
		o.Error(err)
	}
}

func (s *Subject[V]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}
	s.done = true
	for _, o := range s.observers.Clear() {
		o.Complete()
	}
}

// Signal subscribes to the values pushed from now on.
func (s *Subject[V]) Signal() *Signal[V] {
	return New(func(o Observer[V], d Disposable) Disposable {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.done {
			if s.err != nil {
				o.Error(s.err)
			} else {
				o.Complete()
			}
			return d
		}

		return d.And(DisposeFunc(s.observers.Add(o)))
	})
}

// Observed returns the number of live subscriptions.
func (s *Subject[V]) Observed() int {
	return s.observers.Len()
}
