package rx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect[V any](t *testing.T, s *Signal[V]) *recorder[V] {
	t.Helper()
	rec := &recorder[V]{}
	s.To(rec)
	return rec
}

func TestMap(t *testing.T) {
	t.Run("transforms values", func(t *testing.T) {
		rec := collect(t, Map(Of(1, 2), func(v int) string {
			return string(rune('a' + v))
		}))

		assert.Equal(t, []string{"b", "c"}, rec.Values())
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("nil mapper passes compatible values", func(t *testing.T) {
		rec := collect(t, Map[any, int](Of[any](1, 2, "three", 4), nil))

		assert.Equal(t, []int{1, 2}, rec.Values())
		assert.ErrorIs(t, rec.Err(), ErrIncompatible)
	})

	t.Run("nil method mapper is a passthrough", func(t *testing.T) {
		s := Of(1)
		assert.Same(t, s, s.Map(nil))
	})

	t.Run("panicking mapper fails the subscription", func(t *testing.T) {
		emitted := 0
		source := New(func(o Observer[int], d Disposable) Disposable {
			for i := 0; i < 5; i++ {
				if d.IsDisposed() {
					return d
				}
				emitted++
				o.Accept(i)
			}
			o.Complete()
			return d
		})

		rec := collect(t, source.Map(func(v int) int {
			if v == 1 {
				panic("mapper")
			}
			return v
		}))

		assert.Equal(t, []int{0}, rec.Values())
		assert.ErrorIs(t, rec.Err(), ErrPanic)
		assert.Equal(t, 0, rec.Completed())
		assert.Equal(t, 2, emitted)
	})
}

func TestFilter(t *testing.T) {
	t.Run("filter", func(t *testing.T) {
		rec := collect(t, Range(0, 6).Filter(func(v int) bool { return v%2 == 0 }))
		assert.Equal(t, []int{0, 2, 4}, rec.Values())
	})

	t.Run("peek", func(t *testing.T) {
		log := []int{}
		rec := collect(t, Of(1, 2).Peek(func(v int) { log = append(log, v) }))

		assert.Equal(t, []int{1, 2}, log)
		assert.Equal(t, []int{1, 2}, rec.Values())
	})

	t.Run("distinct", func(t *testing.T) {
		rec := collect(t, Of(1, 2, 1, 3, 2).Distinct())
		assert.Equal(t, []int{1, 2, 3}, rec.Values())
	})

	t.Run("distinct compares slices deeply", func(t *testing.T) {
		rec := collect(t, Of([]int{1}, []int{1}, []int{2}).Distinct())
		assert.Equal(t, [][]int{{1}, {2}}, rec.Values())
	})

	t.Run("diff drops repeats in a row", func(t *testing.T) {
		rec := collect(t, Of(1, 1, 2, 2, 1).Diff())
		assert.Equal(t, []int{1, 2, 1}, rec.Values())
	})
}

func TestSkipTake(t *testing.T) {
	t.Run("skip then take", func(t *testing.T) {
		rec := collect(t, Range(0, 10).Skip(2).Take(3))

		assert.Equal(t, []int{2, 3, 4}, rec.Values())
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("take disposes upstream", func(t *testing.T) {
		emitted := 0
		source := New(func(o Observer[int], d Disposable) Disposable {
			for i := 0; i < 100; i++ {
				if d.IsDisposed() {
					return d
				}
				emitted++
				o.Accept(i)
			}
			o.Complete()
			return d
		})

		rec := collect(t, source.Take(2))

		assert.Equal(t, []int{0, 1}, rec.Values())
		assert.Equal(t, 2, emitted)
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("take zero never subscribes", func(t *testing.T) {
		subscribed := false
		source := New(func(o Observer[int], d Disposable) Disposable {
			subscribed = true
			return d
		})

		rec := collect(t, source.Take(0))

		assert.False(t, subscribed)
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("first and last", func(t *testing.T) {
		assert.Equal(t, []int{1}, collect(t, Of(1, 2, 3).First()).Values())
		assert.Equal(t, []int{3}, collect(t, Of(1, 2, 3).Last()).Values())
		assert.Empty(t, collect(t, Never[int]().Last()).Values())
	})

	t.Run("take while", func(t *testing.T) {
		rec := collect(t, Of(1, 2, 3, 4, 1).TakeWhile(func(v int) bool { return v < 3 }))

		assert.Equal(t, []int{1, 2}, rec.Values())
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("take until func keeps the match", func(t *testing.T) {
		rec := collect(t, Of(1, 2, 3, 4).TakeUntilFunc(func(v int) bool { return v == 3 }))

		assert.Equal(t, []int{1, 2, 3}, rec.Values())
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("skip until func keeps the match", func(t *testing.T) {
		rec := collect(t, Of(1, 2, 3, 4, 1).SkipUntilFunc(func(v int) bool { return v == 3 }))
		assert.Equal(t, []int{3, 4, 1}, rec.Values())
	})

	t.Run("skip while", func(t *testing.T) {
		rec := collect(t, Of(1, 2, 3, 1).SkipWhile(func(v int) bool { return v < 3 }))
		assert.Equal(t, []int{3, 1}, rec.Values())
	})

	t.Run("invalid arguments degrade to passthrough", func(t *testing.T) {
		s := Of(1, 2)

		assert.Same(t, s, s.Skip(-1))
		assert.Same(t, s, s.Filter(nil))
		assert.Same(t, s, s.TakeWhile(nil))
		assert.Same(t, s, s.Debounce(0))
		assert.Same(t, s, s.Throttle(-1))
	})
}

func TestAccumulate(t *testing.T) {
	sum := func(acc, v int) int { return acc + v }

	t.Run("start with", func(t *testing.T) {
		rec := collect(t, Of(3).StartWith(1, 2))
		assert.Equal(t, []int{1, 2, 3}, rec.Values())
	})

	t.Run("scan", func(t *testing.T) {
		rec := collect(t, Scan(Of(1, 2, 3), 0, sum))
		assert.Equal(t, []int{1, 3, 6}, rec.Values())
	})

	t.Run("reduce", func(t *testing.T) {
		assert.Equal(t, []int{6}, collect(t, Reduce(Of(1, 2, 3), 0, sum)).Values())
		assert.Equal(t, []int{10}, collect(t, Reduce(Never[int](), 10, sum)).Values())
	})
}

func TestBuffer(t *testing.T) {
	t.Run("sliding windows", func(t *testing.T) {
		rec := collect(t, BufferSkip(Of(1, 2, 3, 4, 5), 2, 1))

		assert.Equal(t, [][]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}}, rec.Values())
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("non overlapping windows drop the partial one", func(t *testing.T) {
		rec := collect(t, Buffer(Of(1, 2, 3, 4, 5), 2))
		assert.Equal(t, [][]int{{1, 2}, {3, 4}}, rec.Values())
	})

	t.Run("gaps between windows", func(t *testing.T) {
		rec := collect(t, BufferSkip(Of(1, 2, 3, 4, 5, 6), 2, 3))
		assert.Equal(t, [][]int{{1, 2}, {4, 5}}, rec.Values())
	})

	t.Run("invalid sizes degrade to one", func(t *testing.T) {
		rec := collect(t, BufferSkip(Of(1, 2), 0, -3))
		assert.Equal(t, [][]int{{1}, {2}}, rec.Values())
	})
}
