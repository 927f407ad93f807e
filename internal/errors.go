package internal

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// ErrPanic matches every error built from a recovered panic.
var ErrPanic = errors.New("panic")

type PanicError struct {
	Value      any
	StackTrace []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Recovered turns a recovered panic value into an error.
func Recovered(r any) error {
	return errors.WithStack(&PanicError{
		Value:      r,
		StackTrace: debug.Stack(),
	})
}

// Protect runs fn and converts a panic into an error.
func Protect(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Recovered(r)
		}
	}()

	fn()
	return nil
}
