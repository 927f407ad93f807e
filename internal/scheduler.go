package internal

import (
	"sync"
	"time"
)

// WallClock schedules tasks on real time with time.AfterFunc.
type WallClock struct{}

func (WallClock) Now() time.Time {
	return time.Now()
}

// Schedule runs task once after delay, or every delay when repeating.
// Repeating deadlines are computed from the first start so they do not drift.
// A non-positive period cannot repeat and runs once.
func (WallClock) Schedule(delay time.Duration, repeating bool, task func()) *Owner {
	owner := NewOwner()
	if delay < 0 {
		delay = 0
	}
	repeating = repeating && delay > 0

	var (
		mu    sync.Mutex
		timer *time.Timer
		runs  int64
	)
	start := time.Now()

	var fire func()
	fire = func() {
		if owner.IsDisposed() {
			return
		}

		task()

		if !repeating {
			owner.Dispose()
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if owner.IsDisposed() {
			return
		}
		runs++
		next := start.Add(time.Duration(runs+1) * delay)
		timer = time.AfterFunc(time.Until(next), fire)
	}

	mu.Lock()
	timer = time.AfterFunc(delay, fire)
	mu.Unlock()

	owner.OnCleanup(func() error {
		mu.Lock()
		timer.Stop()
		mu.Unlock()
		return nil
	})

	return owner
}

// VirtualClock is a manually advanced clock: tasks only run inside Advance,
// on the calling goroutine, in due-time order.
type VirtualClock struct {
	mu    sync.Mutex
	now   time.Time
	tasks *TaskHeap
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		now:   start,
		tasks: NewTaskHeap(),
	}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Schedule(delay time.Duration, repeating bool, task func()) *Owner {
	owner := NewOwner()
	if delay < 0 {
		delay = 0
	}

	t := &Task{Run: task, Owner: owner}
	if repeating && delay > 0 {
		t.Period = delay
	}

	c.mu.Lock()
	t.Due = c.now.Add(delay)
	c.tasks.Insert(t)
	c.mu.Unlock()

	owner.OnCleanup(func() error {
		c.mu.Lock()
		c.tasks.Remove(t)
		c.mu.Unlock()
		return nil
	})

	return owner
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by running tasks run too if they fall due before the end.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	deadline := c.now.Add(d)

	for {
		t := c.tasks.Peek()
		if t == nil || t.Due.After(deadline) {
			break
		}
		c.tasks.PopMin()

		if t.Due.After(c.now) {
			c.now = t.Due
		}
		if t.Period > 0 {
			t.Due = t.Due.Add(t.Period)
			c.tasks.Insert(t)
		}
		c.mu.Unlock()

		if !t.Owner.IsDisposed() {
			t.Run()
		}
		if t.Period == 0 {
			t.Owner.Dispose()
		}

		c.mu.Lock()
	}

	c.now = deadline
	c.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (c *VirtualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.Len()
}
