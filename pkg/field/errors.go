// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package field

import (
	"errors"
	"fmt"
)

var (
	// ErrNotNumeric is wrapped by CoercionError when text does not parse as an integer.
	ErrNotNumeric = errors.New("value is not numeric")

	// ErrOutOfRange is wrapped by CoercionError when a number does not fit in int64.
	ErrOutOfRange = errors.New("value out of int64 range")

	// ErrUnsupportedType is wrapped by CoercionError when no cast exists for the value's type.
	ErrUnsupportedType = errors.New("unsupported value type")
)

// CoercionError is returned when a field's cast cannot interpret a value.
type CoercionError struct {
	Field string
	Kind  Kind
	Value any
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %q: cannot coerce %v (%T) to %s: %v", e.Field, e.Value, e.Value, e.Kind, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// TypeMismatchError is returned when a map field is assigned a non-map value.
type TypeMismatchError struct {
	Field string
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: must use a map with string keys, got %T", e.Field, e.Value)
}

// named fills in the field name of a coercion failure.
func named(err error, name string) error {
	switch e := err.(type) {
	case *CoercionError:
		e.Field = name
	case *TypeMismatchError:
		e.Field = name
	}
	return err
}
