package internal

import (
	"sync"

	"go.uber.org/atomic"
)

// ReentrantMutex is a mutex the holding goroutine may lock again.
// Observers that push back into their own source from inside a callback run
// on the goroutine that already holds the lock, so they must not block.
type ReentrantMutex struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (m *ReentrantMutex) Lock() {
	id := goroutineID()
	if m.owner.Load() == id {
		m.depth++
		return
	}

	m.mu.Lock()
	m.owner.Store(id)
	m.depth = 1
}

func (m *ReentrantMutex) Unlock() {
	m.depth--
	if m.depth > 0 {
		return
	}

	m.owner.Store(0)
	m.mu.Unlock()
}
