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

package etcdv3

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RequestError wraps a failed etcd request with its gRPC code.
type RequestError struct {
	Op   string
	Key  string
	Code codes.Code
	Err  error
}

func newRequestError(op, key string, err error) *RequestError {
	return &RequestError{Op: op, Key: key, Code: codeOf(err), Err: err}
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("etcd %s %s: %s (%s)", e.Op, e.Key, rpctypes.ErrorDesc(e.Err), e.Code)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the request may succeed if issued again.
func (e *RequestError) Retryable() bool {
	switch e.Code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func codeOf(err error) codes.Code {
	var etcdErr rpctypes.EtcdError
	switch {
	case errors.As(err, &etcdErr):
		return etcdErr.Code()
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return status.Code(err)
	}
}
