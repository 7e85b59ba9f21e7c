package utils

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCatchPanic(t *testing.T) {
	err := CatchPanic(func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	assert.Error(t, err)
	assert.Contains(t, PanicStack(err), "panic_test.go")

	err = CatchPanic(func() error {
		return NotFoundError
	})
	assert.Equal(t, NotFoundError, err)
	assert.Equal(t, "", PanicStack(err))

	assert.NoError(t, CatchPanic(func() error { return nil }))
}

func TestWrap(t *testing.T) {
	err := Wrap(NotFoundError, "process %v", "1.2")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "process 1.2: NotFoundError", err.Error())
	assert.False(t, IsNotFound(errors.New("other")))
}

type nilable struct{}

func TestIsNil(t *testing.T) {
	var typed *nilable
	var iface interface{} = typed

	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(iface))
	assert.True(t, IsNil(map[string]int(nil)))
	assert.False(t, IsNil(&nilable{}))
	assert.False(t, IsNil(0))
}
