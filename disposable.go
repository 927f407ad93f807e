package rx

import (
	"io"

	"github.com/AnatoleLucet/rx/internal"
)

// Disposable represents work that must be undone: timers, child
// subscriptions, listener registrations.
type Disposable interface {
	// Dispose releases the resources. Only the first call does anything.
	Dispose()

	IsDisposed() bool

	// And adds other so that it is disposed after everything added before it,
	// and returns the receiver. nil is ignored. If the receiver is already
	// disposed, other is disposed right away.
	And(other Disposable) Disposable
}

// NewDisposable creates an empty composite disposable.
func NewDisposable() Disposable {
	return &disposable{owner: internal.NewOwner()}
}

// DisposeFunc wraps fn in a disposable running it at most once.
func DisposeFunc(fn func()) Disposable {
	d := &disposable{owner: internal.NewOwner()}
	if fn != nil {
		d.owner.OnCleanup(func() error {
			fn()
			return nil
		})
	}
	return d
}

// DisposeCloser closes c on disposal. A Close error goes to the error handler.
func DisposeCloser(c io.Closer) Disposable {
	d := &disposable{owner: internal.NewOwner()}
	if c != nil {
		d.owner.OnCleanup(c.Close)
	}
	return d
}

// EmptyDisposable returns the shared no-op disposable, the identity of And.
func EmptyDisposable() Disposable {
	return empty
}

var empty Disposable = emptyDisposable{}

type emptyDisposable struct{}

func (emptyDisposable) Dispose() {}

func (emptyDisposable) IsDisposed() bool { return false }

func (emptyDisposable) And(other Disposable) Disposable {
	if other == nil {
		return empty
	}
	return other
}

type disposable struct {
	owner *internal.Owner
}

func wrapOwner(owner *internal.Owner) *disposable {
	return &disposable{owner: owner}
}

func (d *disposable) Dispose() {
	if err := d.owner.Dispose(); err != nil {
		uncaught(err)
	}
}

func (d *disposable) IsDisposed() bool {
	return d.owner.IsDisposed()
}

func (d *disposable) And(other Disposable) Disposable {
	var err error

	switch o := other.(type) {
	case nil, emptyDisposable:
	case *disposable:
		if o != nil {
			err = d.owner.AddChild(o.owner)
		}
	default:
		err = d.owner.OnCleanup(func() error {
			o.Dispose()
			return nil
		})
	}

	if err != nil {
		uncaught(err)
	}
	return d
}

// child creates a disposable linked under d, used for per-attempt or
// per-inner subscriptions that end before the chain does.
func child(d Disposable) Disposable {
	c := NewDisposable()
	d.And(c)
	return c
}

// Len of the composite; tests use it to catch leaked children.
func (d *disposable) size() int {
	return d.owner.Len()
}
