package utils

import (
	"reflect"
)

// We need to do this check because Go does not allow comparison to
// nil with interfaces holding typed nil pointers.
func IsNil(v interface{}) bool {
	if v == nil {
		return true
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return value.IsNil()
	}
	return false
}
