package rx

import "github.com/AnatoleLucet/rx/internal"

// Variable is a single observable slot. Writes notify the observers
// synchronously, in registration order. Once fixed, a Variable ignores every
// write and its observers complete.
//
//	name := rx.VariableOf("x")
//	name.Let("pinned")
//	name.Set("ignored")
//	name.Get() // "pinned"
type Variable[V any] struct {
	mu internal.ReentrantMutex

	value   V
	present bool
	fixed   bool
	version uint64

	observers internal.Listeners[Observer[V]]
}

// VariableOf creates a Variable holding v.
func VariableOf[V any](v V) *Variable[V] {
	return &Variable[V]{value: v, present: true}
}

// EmptyVariable creates a Variable holding nothing yet.
func EmptyVariable[V any]() *Variable[V] {
	return &Variable[V]{}
}

// Get returns the current value, the zero value when there is none.
func (v *Variable[V]) Get() V {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Or returns the current value, or fallback when there is none.
func (v *Variable[V]) Or(fallback V) V {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.present {
		return fallback
	}
	return v.value
}

func (v *Variable[V]) IsPresent() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.present
}

func (v *Variable[V]) IsFixed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fixed
}

// Set replaces the value and returns the previous one. On a fixed Variable it
// does nothing and returns the fixed value.
func (v *Variable[V]) Set(value V) V {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fixed {
		return v.value
	}
	return v.write(value, false)
}

// Let is Set, then fixes the Variable.
func (v *Variable[V]) Let(value V) V {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fixed {
		return v.value
	}
	return v.write(value, true)
}

// SetIf sets value only if pred holds for the current value. It returns the
// previous value and whether the write happened.
func (v *Variable[V]) SetIf(pred func(V) bool, value V) (V, bool) {
	return v.writeIf(pred, value, false)
}

// LetIf is SetIf fixing the Variable when the write happens.
func (v *Variable[V]) LetIf(pred func(V) bool, value V) (V, bool) {
	return v.writeIf(pred, value, true)
}

func (v *Variable[V]) writeIf(pred func(V) bool, value V, pin bool) (V, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fixed || (pred != nil && !pred(v.value)) {
		return v.value, false
	}
	return v.write(value, pin), true
}

// Update replaces the value with fn applied to it and returns the result.
func (v *Variable[V]) Update(fn func(V) V) V {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fixed || fn == nil {
		return v.value
	}

	next := fn(v.value)
	v.write(next, false)
	return next
}

// Fix pins the current value. Observers complete.
func (v *Variable[V]) Fix() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fixed {
		return
	}
	v.fixed = true
	for _, o := range v.observers.Clear() {
		o.Complete()
	}
}

// write must hold mu.
func (v *Variable[V]) write(value V, pin bool) V {
	prev := v.value
	v.value, v.present = value, true
	v.fixed = v.fixed || pin
	v.version++
	version := v.version

	for _, o := range v.observers.Snapshot() {
		// an observer wrote again, the rest already saw the newer value
		if v.version != version {
			break
		}
		o.Accept(value)
	}

	if pin {
		for _, o := range v.observers.Clear() {
			o.Complete()
		}
	}
	return prev
}

// Observe emits every value written from now on. It completes when the
// Variable is fixed.
func (v *Variable[V]) Observe() *Signal[V] {
	return v.observe(false)
}

// ObserveNow is Observe starting with the current value, if any.
func (v *Variable[V]) ObserveNow() *Signal[V] {
	return v.observe(true)
}

func (v *Variable[V]) observe(now bool) *Signal[V] {
	return New(func(o Observer[V], d Disposable) Disposable {
		v.mu.Lock()
		defer v.mu.Unlock()

		if now && v.present {
			o.Accept(v.value)
		}
		if v.fixed {
			o.Complete()
			return d
		}

		return d.And(DisposeFunc(v.observers.Add(o)))
	})
}

// Observed returns the number of live subscriptions.
func (v *Variable[V]) Observed() int {
	return v.observers.Len()
}
