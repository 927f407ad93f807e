package internal

import "sync"

// Listeners is a copy-on-write registry: Snapshot never observes a list that
// is being modified, so callers can iterate while others add or remove.
type Listeners[T any] struct {
	mu    sync.Mutex
	items []*listener[T]
}

type listener[T any] struct {
	value T
}

// Add registers v and returns the function removing this registration.
func (l *Listeners[T]) Add(v T) (remove func()) {
	entry := &listener[T]{value: v}

	l.mu.Lock()
	next := make([]*listener[T], len(l.items), len(l.items)+1)
	copy(next, l.items)
	l.items = append(next, entry)
	l.mu.Unlock()

	return func() { l.remove(entry) }
}

func (l *Listeners[T]) remove(entry *listener[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, item := range l.items {
		if item != entry {
			continue
		}

		next := make([]*listener[T], 0, len(l.items)-1)
		next = append(next, l.items[:i]...)
		l.items = append(next, l.items[i+1:]...)
		return
	}
}

// Snapshot returns the registered values in registration order.
func (l *Listeners[T]) Snapshot() []T {
	l.mu.Lock()
	items := l.items
	l.mu.Unlock()

	values := make([]T, len(items))
	for i, item := range items {
		values[i] = item.value
	}
	return values
}

func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Clear drops every registration and returns what was registered.
func (l *Listeners[T]) Clear() []T {
	l.mu.Lock()
	items := l.items
	l.items = nil
	l.mu.Unlock()

	values := make([]T, len(items))
	for i, item := range items {
		values[i] = item.value
	}
	return values
}
