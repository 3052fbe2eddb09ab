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

// Package etcdobj saves composite objects to, and reads them from, a
// key-value store client. The client is injected; this package only
// requires it to write, get and delete single keys.
package etcdobj

import "context"

// Response is the stored value of one key.
type Response struct {
	Key      string
	Value    string
	Revision int64
}

// KV is one key and its textual value.
type KV struct {
	Key   string
	Value string
}

// Writer stores value under key.
type Writer interface {
	Write(ctx context.Context, key, value string) error
}

// Getter fetches a key. Absent keys return a *KeyNotFoundError.
type Getter interface {
	Get(ctx context.Context, key string) (*Response, error)
}

// Deleter removes a key.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Client is the capability set required by Server.
type Client interface {
	Writer
	Getter
	Deleter
}

// Committer writes all kvs in a single store transaction.
type Committer interface {
	Commit(ctx context.Context, kvs []KV) error
}

// Lister returns every key under prefix, sorted by key.
type Lister interface {
	List(ctx context.Context, prefix string) ([]*Response, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientFactory builds a client from opaque, client-specific options.
type ClientFactory func(opts map[string]any) (any, error)
