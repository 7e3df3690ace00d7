package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and returns it as an error
// It captures the stack trace for debugging
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	stackTrace := string(debug.Stack())
	return ErrInternal.
		WithCause(err).
		WithDetail("panic", true).
		WithDetail("stack_trace", stackTrace).
		AsFatal()
}

// Guard runs fn and converts a panic raised inside it into a fatal error,
// so that a misbehaving goroutine ends the run instead of crashing it.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverPanic(r)
		}
	}()
	return fn()
}
