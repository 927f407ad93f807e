package internal

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Owner holds the release logic of one subscription: cleanup functions and
// child owners, run in the order they were added when the owner is disposed.
type Owner struct {
	mu       sync.Mutex
	disposed atomic.Bool

	head *ownerEntry
	tail *ownerEntry

	// the parent this owner is linked into, and its entry there
	parent *Owner
	self   *ownerEntry
}

type ownerEntry struct {
	cleanup func() error
	child   *Owner

	// set under the list owner's lock once the entry left the list
	removed bool

	prev *ownerEntry
	next *ownerEntry
}

func NewOwner() *Owner {
	return &Owner{}
}

func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

// OnCleanup registers fn to run on disposal.
// If the owner is already disposed, fn runs right away and its error is returned.
func (o *Owner) OnCleanup(fn func() error) error {
	if fn == nil {
		return nil
	}

	o.mu.Lock()
	if o.disposed.Load() {
		o.mu.Unlock()
		return runCleanup(fn)
	}
	o.push(&ownerEntry{cleanup: fn})
	o.mu.Unlock()

	return nil
}

// AddChild links child so that disposing o disposes child too.
// A child disposed on its own unlinks itself and leaves its siblings alone.
func (o *Owner) AddChild(child *Owner) error {
	if child == nil || child == o {
		return nil
	}

	child.mu.Lock()
	if child.disposed.Load() {
		child.mu.Unlock()
		return nil
	}
	if child.parent != nil {
		// already owned elsewhere, only cascade
		child.mu.Unlock()
		return o.OnCleanup(child.Dispose)
	}
	entry := &ownerEntry{child: child}
	child.parent = o
	child.self = entry
	child.mu.Unlock()

	o.mu.Lock()
	if o.disposed.Load() {
		o.mu.Unlock()
		return child.Dispose()
	}
	if !entry.removed {
		o.push(entry)
	}
	o.mu.Unlock()

	return nil
}

// Dispose runs every cleanup and disposes every child, in insertion order.
// Panics are recovered per entry so one failing teardown never blocks the
// others; all failures are returned combined. Only the first call does work.
func (o *Owner) Dispose() error {
	if !o.disposed.CompareAndSwap(false, true) {
		return nil
	}

	o.mu.Lock()
	entries := make([]*ownerEntry, 0, 4)
	for e := o.head; e != nil; e = e.next {
		e.removed = true
		entries = append(entries, e)
	}
	o.head, o.tail = nil, nil
	parent, self := o.parent, o.self
	o.parent, o.self = nil, nil
	o.mu.Unlock()

	if parent != nil {
		parent.unlink(self)
	}

	var err error
	for _, e := range entries {
		if e.child != nil {
			err = multierr.Append(err, e.child.Dispose())
			continue
		}
		err = multierr.Append(err, runCleanup(e.cleanup))
	}

	return err
}

// Len returns the number of live entries, mostly useful to check for leaks.
func (o *Owner) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for e := o.head; e != nil; e = e.next {
		n++
	}
	return n
}

func (o *Owner) push(e *ownerEntry) {
	if o.tail == nil {
		o.head = e
		o.tail = e
		return
	}

	e.prev = o.tail
	o.tail.next = e
	o.tail = e
}

func (o *Owner) unlink(e *ownerEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// an entry that was never pushed is only flagged, AddChild skips it
	if e == nil || e.removed {
		return
	}
	e.removed = true

	if e.prev != nil {
		e.prev.next = e.next
	} else if o.head == e {
		o.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if o.tail == e {
		o.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func runCleanup(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Recovered(r)
		}
	}()

	return fn()
}
