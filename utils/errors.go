package utils

import (
	"github.com/pkg/errors"
)

var (
	// Returned when an identity can not be resolved in the tree.
	NotFoundError = errors.New("NotFoundError")

	InvalidArgError    = errors.New("InvalidArgError")
	InvalidConfigError = errors.New("InvalidConfigError")
)

// Wrap an error with a formatted message. The original error is still
// visible to errors.Is() and errors.Cause().
func Wrap(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

func IsNotFound(err error) bool {
	return errors.Is(err, NotFoundError)
}
