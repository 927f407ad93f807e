package rx

import "time"

// policy decides what happens when one attempt terminates. err is nil on
// completion. Returning true means the policy took over, usually by calling
// again now or later; false lets the terminal event through.
type policy func(err error) bool

// redo subscribes to s and resubscribes as the per-subscription policy made by
// newPolicy asks. Every attempt runs under its own child Disposable so a
// finished attempt releases its resources before the next one starts.
func redo[V any](s *Signal[V], newPolicy func(o Observer[V], d Disposable, again func()) policy) *Signal[V] {
	return derive(s, func(o Observer[V], d Disposable) Disposable {
		var (
			l       loop
			decide  policy
			attempt func()
			step    func()
		)
		again := func() { l.run(func() { step() }) }

		attempt = func() {
			if d.IsDisposed() {
				return
			}

			c := child(d)
			s.run(&funcObserver[V]{
				next: o.Accept,
				err: func(err error) {
					c.Dispose()
					if !decide(err) {
						o.Error(err)
					}
				},
				complete: func() {
					c.Dispose()
					if !decide(nil) {
						o.Complete()
					}
				},
			}, c)
		}

		// the policy is built inside the loop so an again called while
		// building it is queued behind the first attempt
		step = func() {
			step = attempt
			decide = newPolicy(o, d, again)
			attempt()
		}

		again()
		return d
	})
}

// after runs again once delay has passed, or right away for a non-positive
// delay. The timer belongs to d.
func after(sched Scheduler, d Disposable, delay time.Duration, again func()) {
	if delay <= 0 {
		again()
		return
	}
	d.And(sched.Schedule(delay, false, again))
}

// Repeat resubscribes every time s completes, until disposed.
func (s *Signal[V]) Repeat() *Signal[V] {
	return s.repeat(-1, 0)
}

// RepeatN resubscribes n times after s completes, so s runs n+1 times.
func (s *Signal[V]) RepeatN(n int) *Signal[V] {
	if n <= 0 {
		return s
	}
	return s.repeat(n, 0)
}

// RepeatAfter is RepeatN waiting delay before each resubscription.
// A negative n repeats forever.
func (s *Signal[V]) RepeatAfter(n int, delay time.Duration) *Signal[V] {
	if n == 0 {
		return s
	}
	return s.repeat(n, delay)
}

func (s *Signal[V]) repeat(n int, delay time.Duration) *Signal[V] {
	return redo(s, func(_ Observer[V], d Disposable, again func()) policy {
		count := 0

		return func(err error) bool {
			if err != nil || (n >= 0 && count >= n) {
				return false
			}
			count++
			after(s.clock(), d, delay, again)
			return true
		}
	})
}

// Retry resubscribes every time s fails, until disposed.
func (s *Signal[V]) Retry() *Signal[V] {
	return s.retry(-1, 0)
}

// RetryN resubscribes at most n times after errors; the error of the last
// attempt goes downstream.
func (s *Signal[V]) RetryN(n int) *Signal[V] {
	if n <= 0 {
		return s
	}
	return s.retry(n, 0)
}

// RetryAfter is RetryN waiting delay before each resubscription.
// A negative n retries forever.
func (s *Signal[V]) RetryAfter(n int, delay time.Duration) *Signal[V] {
	if n == 0 {
		return s
	}
	return s.retry(n, delay)
}

func (s *Signal[V]) retry(n int, delay time.Duration) *Signal[V] {
	return redo(s, func(_ Observer[V], d Disposable, again func()) policy {
		count := 0

		return func(err error) bool {
			if err == nil || (n >= 0 && count >= n) {
				return false
			}
			count++
			after(s.clock(), d, delay, again)
			return true
		}
	})
}

// RetryWhen hands the errors of s to fn as a Signal and resubscribes every
// time the Trigger fn returns produces. When that Trigger completes or fails,
// so does the result.
func (s *Signal[V]) RetryWhen(fn func(errs *Signal[error]) Trigger) *Signal[V] {
	if fn == nil {
		return s
	}

	return redo(s, func(o Observer[V], d Disposable, again func()) policy {
		errs := NewSubject[error]()

		t, err := apply(fn, errs.Signal().On(s.scheduler))
		if err != nil {
			o.Error(err)
			d.Dispose()
			return func(error) bool { return true }
		}
		if t == nil {
			return func(error) bool { return false }
		}

		t.trigger(again, func(err error) {
			if err != nil {
				o.Error(err)
			} else {
				o.Complete()
			}
			d.Dispose()
		}, child(d))

		return func(err error) bool {
			if err == nil {
				return false
			}
			errs.Accept(err)
			return true
		}
	})
}
