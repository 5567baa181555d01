// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package optional provides a value wrapper that tells "absent" apart from "set".

It is used for partial-update payloads, where an omitted field must leave the
stored value untouched while an explicit empty value must overwrite it.

JSON decoding marks a field as set whenever the key is present. An explicit
null only counts as set when T can hold nil (a pointer, slice, map or
interface), where it means "clear". For any other T a null is treated as if
the key were omitted, so {"hidden": null} never overwrites a flag with false.
*/
package optional

import (
	"encoding/json"
	"reflect"
)

// Value holds an optional T.
type Value[T any] struct {
	value T
	set   bool
}

// Some returns a set [Value] holding v.
func Some[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// None returns an absent [Value].
func None[T any]() Value[T] {
	return Value[T]{}
}

// IsSet reports whether a value was supplied.
func (o Value[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it was supplied.
func (o Value[T]) Get() (T, bool) {
	return o.value, o.set
}

// UnmarshalJSON implements [json.Unmarshaler].
//
// It is only invoked when the key is present in the payload.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		var zero T
		o.value = zero
		o.set = nullable[T]()
		return nil
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.set = true
	return nil
}

func nullable[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}
