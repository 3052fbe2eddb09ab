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

// Package memstore is an in-memory store client for etcdobj. Keys are kept
// ordered in a B-tree so prefix listing behaves like an etcd range read.
package memstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"etcdobj/pkg/etcdobj"

	"github.com/google/btree"
)

var (
	// ErrEmptyKey is returned when an empty key is provided.
	ErrEmptyKey = errors.New("memstore: empty key is not allowed")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("memstore: store is closed")
)

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// tree orders items by key
	tree *btree.BTree

	// rev is bumped once per write, delete or commit
	rev int64

	closed bool
}

type item struct {
	key            string
	value          string
	createRevision int64
	modRevision    int64
	version        int64
}

// Less implements btree.Item.
func (it *item) Less(other btree.Item) bool {
	return it.key < other.(*item).key
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tree: btree.New(32),
	}
}

func (s *Store) check(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyKey
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// put must be called with mu held.
func (s *Store) put(key, value string, rev int64) {
	it := &item{key: key, value: value, createRevision: rev, modRevision: rev, version: 1}
	if prev := s.tree.Get(&item{key: key}); prev != nil {
		p := prev.(*item)
		it.createRevision = p.createRevision
		it.version = p.version + 1
	}
	s.tree.ReplaceOrInsert(it)
}

// Write stores value under key.
func (s *Store) Write(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, key); err != nil {
		return err
	}
	s.rev++
	s.put(key, value, s.rev)
	return nil
}

// Get returns the value of key, or *etcdobj.KeyNotFoundError.
func (s *Store) Get(ctx context.Context, key string) (*etcdobj.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, key); err != nil {
		return nil, err
	}
	found := s.tree.Get(&item{key: key})
	if found == nil {
		return nil, &etcdobj.KeyNotFoundError{Key: key}
	}
	it := found.(*item)
	return &etcdobj.Response{Key: it.key, Value: it.value, Revision: it.modRevision}, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, key); err != nil {
		return err
	}
	if s.tree.Delete(&item{key: key}) != nil {
		s.rev++
	}
	return nil
}

// List returns every key that starts with prefix, in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]*etcdobj.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, prefix); err != nil {
		return nil, err
	}
	var out []*etcdobj.Response
	s.tree.AscendGreaterOrEqual(&item{key: prefix}, func(i btree.Item) bool {
		it := i.(*item)
		if !strings.HasPrefix(it.key, prefix) {
			return false
		}
		out = append(out, &etcdobj.Response{Key: it.key, Value: it.value, Revision: it.modRevision})
		return true
	})
	return out, nil
}

// Commit applies all kvs under one revision, or none of them.
func (s *Store) Commit(ctx context.Context, kvs []etcdobj.KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	for _, kv := range kvs {
		if kv.Key == "" {
			return ErrEmptyKey
		}
	}
	if len(kvs) == 0 {
		return nil
	}

	s.rev++
	for _, kv := range kvs {
		s.put(kv.Key, kv.Value, s.rev)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Keys returns all keys in order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, s.tree.Len())
	s.tree.Ascend(func(i btree.Item) bool {
		keys = append(keys, i.(*item).key)
		return true
	})
	return keys
}

// Revision returns the current store revision.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Close releases the store. Later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.tree.Clear(false)
	return nil
}
