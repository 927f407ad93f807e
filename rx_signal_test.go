package rx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	t.Run("of emits then completes", func(t *testing.T) {
		rec := &recorder[int]{}
		d := Of(1, 2, 3).To(rec)

		assert.Equal(t, []int{1, 2, 3}, rec.Values())
		assert.Equal(t, 1, rec.Completed())
		assert.True(t, d.IsDisposed())
	})

	t.Run("range", func(t *testing.T) {
		rec := &recorder[int]{}
		Range(5, 3).To(rec)

		assert.Equal(t, []int{5, 6, 7}, rec.Values())
	})

	t.Run("never completes without values", func(t *testing.T) {
		rec := &recorder[int]{}
		Never[int]().To(rec)

		assert.Empty(t, rec.Values())
		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("nil signal behaves as never", func(t *testing.T) {
		var s *Signal[int]
		rec := &recorder[int]{}
		s.To(rec)

		assert.Equal(t, 1, rec.Completed())
	})

	t.Run("fail", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recorder[int]{}
		Fail[int](boom).To(rec)

		assert.Equal(t, boom, rec.Err())
		assert.Equal(t, 0, rec.Completed())
	})

	t.Run("at most one terminal call", func(t *testing.T) {
		rec := &recorder[int]{}
		New(func(o Observer[int], d Disposable) Disposable {
			o.Complete()
			o.Complete()
			o.Accept(1)
			o.Error(errors.New("late"))
			return d
		}).To(rec)

		assert.Empty(t, rec.Values())
		assert.Equal(t, 1, rec.Completed())
		assert.Equal(t, 0, rec.errors)
	})

	t.Run("dispose stops delivery", func(t *testing.T) {
		log := []int{}
		input := NewSubject[int]()

		d := input.Signal().Subscribe(func(v int) { log = append(log, v) })
		input.Accept(1)
		d.Dispose()
		input.Accept(2)

		assert.Equal(t, []int{1}, log)
		assert.Equal(t, 0, input.Observed())
	})

	t.Run("create releases the source", func(t *testing.T) {
		log := []string{}

		Create(func(o Observer[string]) Disposable {
			o.Accept("value")
			o.Complete()
			return DisposeFunc(func() { log = append(log, "released") })
		}).Subscribe(func(v string) { log = append(log, v) })

		assert.Equal(t, []string{"value", "released"}, log)
	})

	t.Run("panic in source becomes an error", func(t *testing.T) {
		rec := &recorder[int]{}
		New(func(o Observer[int], d Disposable) Disposable {
			panic("boom")
		}).To(rec)

		assert.ErrorIs(t, rec.Err(), ErrPanic)

		var perr *PanicError
		require.ErrorAs(t, rec.Err(), &perr)
		assert.Equal(t, "boom", perr.Value)
		assert.NotEmpty(t, perr.StackTrace)
	})

	t.Run("panic in next is routed to error", func(t *testing.T) {
		var got error
		input := NewSubject[int]()

		d := input.Signal().SubscribeAll(func(int) {
			panic("consumer")
		}, func(err error) {
			got = err
		}, nil)

		input.Accept(1)

		assert.ErrorIs(t, got, ErrPanic)
		assert.True(t, d.IsDisposed())
		assert.Equal(t, 0, input.Observed())
	})

	t.Run("missing error callback reaches the handler", func(t *testing.T) {
		var got error
		SetErrorHandler(func(err error) { got = err })
		t.Cleanup(func() { SetErrorHandler(nil) })

		boom := errors.New("boom")
		Fail[int](boom).Subscribe(nil)

		assert.Equal(t, boom, got)
	})

	t.Run("collect", func(t *testing.T) {
		values, err := Of(1, 2).Collect(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, values)
	})

	t.Run("collect stops with the context", func(t *testing.T) {
		input := NewSubject[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		values, err := input.Signal().Collect(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Empty(t, values)
		assert.Eventually(t, func() bool { return input.Observed() == 0 }, time.Second, time.Millisecond)
	})

	t.Run("collect stops an endless synchronous source", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()

		values, err := Of(1).Repeat().Collect(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotEmpty(t, values)
	})

	t.Run("no value after a terminal call from another goroutine", func(t *testing.T) {
		var (
			mu        sync.Mutex
			completed bool
			late      int
			wg        sync.WaitGroup
		)

		Create(func(o Observer[int]) Disposable {
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						o.Accept(j)
					}
				}()
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				o.Complete()
			}()
			return nil
		}).SubscribeAll(func(int) {
			mu.Lock()
			defer mu.Unlock()
			if completed {
				late++
			}
		}, nil, func() {
			mu.Lock()
			defer mu.Unlock()
			completed = true
		})
		wg.Wait()

		assert.True(t, completed)
		assert.Zero(t, late)
	})

	t.Run("on keeps the source", func(t *testing.T) {
		sched := NewVirtualScheduler(epoch)
		s := Of(1).On(sched)

		assert.Equal(t, Scheduler(sched), s.clock())
		assert.Equal(t, DefaultScheduler(), Of(1).clock())

		values, err := s.Collect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int{1}, values)
	})

	t.Run("subscriptions do not share state", func(t *testing.T) {
		s := Of(1, 1, 2).Distinct()

		first, _ := s.Collect(context.Background())
		second, _ := s.Collect(context.Background())

		assert.Equal(t, []int{1, 2}, first)
		assert.Equal(t, []int{1, 2}, second)
	})
}
