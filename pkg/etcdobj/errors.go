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

package etcdobj

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"etcdobj/pkg/field"
	"etcdobj/pkg/object"
)

var (
	// ErrKeyNotFound matches every *KeyNotFoundError.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAtomicUnsupported is returned by SaveAtomic when the client has no Commit.
	ErrAtomicUnsupported = errors.New("client does not support atomic commits")
)

// KeyNotFoundError is returned by clients when a key is absent. The adapter
// propagates it unchanged.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// ClientCapabilityError is returned by NewServer when the client lacks
// required operations.
type ClientCapabilityError struct {
	Missing []string
}

func (e *ClientCapabilityError) Error() string {
	return "client is missing required operations: " + strings.Join(e.Missing, ", ")
}

// errorType labels an error for metrics.
func errorType(err error) string {
	var (
		coercion *field.CoercionError
		mismatch *field.TypeMismatchError
		unknown  *object.UnknownFieldError
	)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	case errors.As(err, &coercion):
		return "coercion"
	case errors.As(err, &mismatch):
		return "type_mismatch"
	case errors.As(err, &unknown):
		return "unknown_field"
	case errors.Is(err, ErrAtomicUnsupported):
		return "unsupported"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "store"
	}
}
