// Package fswatch feeds file system notifications into a Signal.
package fswatch

import (
	"github.com/AnatoleLucet/rx"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Watch emits the events of paths, files or directories (not recursive).
// Every subscription runs its own watcher, closed on dispose. Failing to
// watch a path fails the subscription.
func Watch(paths ...string) *rx.Signal[fsnotify.Event] {
	return rx.New(func(o rx.Observer[fsnotify.Event], d rx.Disposable) rx.Disposable {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			o.Error(errors.Wrap(err, "fswatch: create watcher"))
			return d
		}

		for _, path := range paths {
			if err := w.Add(path); err != nil {
				err = errors.Wrapf(err, "fswatch: watch %s", path)
				o.Error(multierr.Append(err, w.Close()))
				return d
			}
		}

		go forward(w, o)
		return d.And(rx.DisposeCloser(w))
	})
}

func forward(w *fsnotify.Watcher, o rx.Observer[fsnotify.Event]) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			o.Accept(event)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				rx.Logger().Warn("fswatch: events dropped", zap.Error(err))
				continue
			}
			o.Error(errors.Wrap(err, "fswatch"))
			return
		}
	}
}

// Has returns a predicate keeping the events carrying op, for Filter.
func Has(op fsnotify.Op) func(fsnotify.Event) bool {
	return func(e fsnotify.Event) bool {
		return e.Has(op)
	}
}
