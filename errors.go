package rx

import (
	"github.com/AnatoleLucet/rx/internal"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	// ErrTimeout is sent by Timeout when no value arrives in time.
	ErrTimeout = errors.New("rx: timeout")

	// ErrIncompatible is sent by Map with a nil mapper when a value cannot be
	// passed through as the target type.
	ErrIncompatible = errors.New("rx: incompatible value")

	// ErrPanic matches every error built from a recovered panic, whether it
	// came from a source, an operator callback or a subscriber.
	ErrPanic = internal.ErrPanic
)

// PanicError carries the recovered value and the stack at the point of recovery.
type PanicError = internal.PanicError

var errorHandler = atomic.NewPointer[func(error)](nil)

// SetErrorHandler replaces the handler receiving errors that have nowhere
// else to go: errors reaching a subscriber without an error callback, panics
// inside error callbacks and teardown failures. nil restores the default,
// which logs the error.
func SetErrorHandler(fn func(error)) {
	if fn == nil {
		errorHandler.Store(nil)
		return
	}
	errorHandler.Store(&fn)
}

func uncaught(err error) {
	if err == nil {
		return
	}

	if fn := errorHandler.Load(); fn != nil {
		if perr := internal.Protect(func() { (*fn)(err) }); perr != nil {
			Logger().Error("rx: error handler panicked", zap.Error(perr), zap.NamedError("original", err))
		}
		return
	}

	Logger().Error("rx: unhandled error", zap.Error(err))
}
