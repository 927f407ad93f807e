package rx

import (
	"github.com/AnatoleLucet/rx/internal"
	"github.com/pkg/errors"
)

// apply runs a user callback, turning a panic into an error.
func apply[A, R any](fn func(A) R, a A) (r R, err error) {
	err = internal.Protect(func() { r = fn(a) })
	return r, err
}

// Map transforms every value with fn. A nil fn passes values through.
func (s *Signal[V]) Map(fn func(V) V) *Signal[V] {
	if fn == nil {
		return s
	}
	return Map(s, fn)
}

// Map transforms every value of s with fn. With a nil fn each value is passed
// through as R when its dynamic type allows it, otherwise the subscription
// fails with ErrIncompatible.
func Map[V, R any](s *Signal[V], fn func(V) R) *Signal[R] {
	return derive(s, func(o Observer[R], d Disposable) Disposable {
		return s.run(&funcObserver[V]{
			next: func(v V) {
				if fn == nil {
					passAs(o, v)
					return
				}

				r, err := apply(fn, v)
				if err != nil {
					o.Error(err)
					return
				}
				o.Accept(r)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

func passAs[V, R any](o Observer[R], v V) {
	if any(v) == nil {
		var zero R
		o.Accept(zero)
		return
	}

	r, ok := any(v).(R)
	if !ok {
		o.Error(errors.Wrapf(ErrIncompatible, "%T is not %T", v, r))
		return
	}
	o.Accept(r)
}

// Filter drops the values failing pred. A nil pred passes everything.
func (s *Signal[V]) Filter(pred func(V) bool) *Signal[V] {
	if pred == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		return s.run(&funcObserver[V]{
			next: func(v V) {
				ok, err := apply(pred, v)
				if err != nil {
					o.Error(err)
					return
				}
				if ok {
					o.Accept(v)
				}
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// Peek calls fn with every value before passing it on.
func (s *Signal[V]) Peek(fn func(V)) *Signal[V] {
	if fn == nil {
		return s
	}

	return s.Filter(func(v V) bool {
		fn(v)
		return true
	})
}

// Distinct drops every value already seen by this subscription.
func (s *Signal[V]) Distinct() *Signal[V] {
	return derive(s, func(o Observer[V], d Disposable) Disposable {
		seen := internal.NewSet()

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if seen.Add(v) {
					o.Accept(v)
				}
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// Diff drops a value equal to the one right before it.
func (s *Signal[V]) Diff() *Signal[V] {
	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var prev V
		var has bool

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if has && internal.Equal(prev, v) {
					return
				}
				prev, has = v, true
				o.Accept(v)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// Skip drops the first n values.
func (s *Signal[V]) Skip(n int) *Signal[V] {
	if n <= 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		skipped := 0

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if skipped < n {
					skipped++
					return
				}
				o.Accept(v)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// SkipWhile drops values while pred holds; from the first failing value on
// everything passes.
func (s *Signal[V]) SkipWhile(pred func(V) bool) *Signal[V] {
	if pred == nil {
		return s
	}

	return s.SkipUntilFunc(func(v V) bool { return !pred(v) })
}

// SkipUntilFunc drops values until pred holds, the matching value included
// in the output.
func (s *Signal[V]) SkipUntilFunc(pred func(V) bool) *Signal[V] {
	if pred == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		open := false

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if !open {
					ok, err := apply(pred, v)
					if err != nil {
						o.Error(err)
						return
					}
					open = ok
				}
				if open {
					o.Accept(v)
				}
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// Take forwards the first n values then completes and disposes upstream.
// A non-positive n completes without subscribing upstream.
func (s *Signal[V]) Take(n int) *Signal[V] {
	if n <= 0 {
		return derive(s, completeNow[V])
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		taken := 0

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if taken >= n {
					return
				}
				taken++
				o.Accept(v)
				if taken == n {
					o.Complete()
					d.Dispose()
				}
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// First is Take(1).
func (s *Signal[V]) First() *Signal[V] {
	return s.Take(1)
}

// TakeWhile forwards values while pred holds and completes at the first
// value failing it.
func (s *Signal[V]) TakeWhile(pred func(V) bool) *Signal[V] {
	if pred == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		return s.run(&funcObserver[V]{
			next: func(v V) {
				ok, err := apply(pred, v)
				if err != nil {
					o.Error(err)
					return
				}
				if !ok {
					o.Complete()
					d.Dispose()
					return
				}
				o.Accept(v)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// TakeUntilFunc forwards values until pred holds; the matching value is
// forwarded, then the signal completes.
func (s *Signal[V]) TakeUntilFunc(pred func(V) bool) *Signal[V] {
	if pred == nil {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		return s.run(&funcObserver[V]{
			next: func(v V) {
				ok, err := apply(pred, v)
				if err != nil {
					o.Error(err)
					return
				}
				o.Accept(v)
				if ok {
					o.Complete()
					d.Dispose()
				}
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// Last emits only the final value, on completion.
func (s *Signal[V]) Last() *Signal[V] {
	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var last V
		var has bool

		return s.run(&funcObserver[V]{
			next: func(v V) {
				last, has = v, true
			},
			err: o.Error,
			complete: func() {
				if has {
					o.Accept(last)
				}
				o.Complete()
			},
		}, d)
	})
}

// StartWith emits values before anything from upstream.
func (s *Signal[V]) StartWith(values ...V) *Signal[V] {
	if len(values) == 0 {
		return s
	}

	return derive(s, func(o Observer[V], d Disposable) Disposable {
		for _, v := range values {
			if d.IsDisposed() {
				return d
			}
			o.Accept(v)
		}
		return s.run(o, d)
	})
}

// Scan emits the running accumulation of fn over the values, starting from
// seed. The seed itself is not emitted. A nil fn keeps the accumulator as is.
func Scan[V, A any](s *Signal[V], seed A, fn func(acc A, value V) A) *Signal[A] {
	return derive(s, func(o Observer[A], d Disposable) Disposable {
		acc := seed

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if fn != nil {
					err := internal.Protect(func() { acc = fn(acc, v) })
					if err != nil {
						o.Error(err)
						return
					}
				}
				o.Accept(acc)
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}

// Reduce emits the final accumulation of fn over the values on completion.
func Reduce[V, A any](s *Signal[V], seed A, fn func(acc A, value V) A) *Signal[A] {
	return Scan(s, seed, fn).Last().StartWithOnEmpty(seed)
}

// StartWithOnEmpty emits fallback when upstream completes without a value.
func (s *Signal[V]) StartWithOnEmpty(fallback V) *Signal[V] {
	return derive(s, func(o Observer[V], d Disposable) Disposable {
		empty := true

		return s.run(&funcObserver[V]{
			next: func(v V) {
				empty = false
				o.Accept(v)
			},
			err: o.Error,
			complete: func() {
				if empty {
					o.Accept(fallback)
				}
				o.Complete()
			},
		}, d)
	})
}

// Buffer groups consecutive values into non-overlapping slices of size.
func Buffer[V any](s *Signal[V], size int) *Signal[[]V] {
	return BufferSkip(s, size, size)
}

// BufferSkip opens a new window every interval values and emits each window
// once it holds size values: BufferSkip(s, 2, 1) over 1..5 yields [1 2] [2 3]
// [3 4] [4 5]. Windows still short of size at completion are dropped.
// Non-positive size or interval count as 1.
func BufferSkip[V any](s *Signal[V], size, interval int) *Signal[[]V] {
	if size <= 0 {
		size = 1
	}
	if interval <= 0 {
		interval = 1
	}

	return derive(s, func(o Observer[[]V], d Disposable) Disposable {
		var windows [][]V
		index := 0

		return s.run(&funcObserver[V]{
			next: func(v V) {
				if index%interval == 0 {
					windows = append(windows, make([]V, 0, size))
				}
				index++

				for i := range windows {
					windows[i] = append(windows[i], v)
				}
				for len(windows) > 0 && len(windows[0]) >= size {
					full := windows[0]
					windows = windows[1:]
					o.Accept(full)
				}
			},
			err:      o.Error,
			complete: o.Complete,
		}, d)
	})
}
