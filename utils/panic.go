package utils

import (
	go_errors "github.com/go-errors/errors"
)

// Runs cb and converts any panic into an error carrying the stack of
// the panic site. Errors returned by cb are passed through unchanged.
func CatchPanic(cb func() error) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = go_errors.Wrap(r, 2)
		}
	}()

	return cb()
}

// Returns the stack of a recovered panic if there is one, or an empty
// string for ordinary errors.
func PanicStack(err error) string {
	stack_err, ok := err.(*go_errors.Error)
	if !ok {
		return ""
	}
	return stack_err.ErrorStack()
}
