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
	"io"
	"strings"
	"time"

	"etcdobj/pkg/field"
	"etcdobj/pkg/log"
	"etcdobj/pkg/metrics"
	"etcdobj/pkg/object"

	"github.com/google/uuid"
)

const (
	opSave       = "save"
	opSaveAtomic = "save_atomic"
	opRead       = "read"
	opDelete     = "delete"
)

// Server maps objects onto the keys of an injected client. It performs no
// locking; use it from one goroutine or synchronize externally.
type Server struct {
	client       Client
	logger       *log.Logger
	metrics      *metrics.Metrics
	discoverMaps bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The global logger is used by default.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMapDiscovery makes Read list every key under each map field's prefix,
// so members the object did not know about are loaded too. The client must
// implement Lister.
func WithMapDiscovery() Option {
	return func(s *Server) {
		s.discoverMaps = true
	}
}

// NewServer validates that client can write, get and delete, and takes
// ownership of it.
func NewServer(client any, opts ...Option) (*Server, error) {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	s.logger = s.logger.Named("etcdobj").With(log.Component("store_adapter"))

	var missing []string
	if _, ok := client.(Writer); !ok {
		missing = append(missing, "write")
	}
	if _, ok := client.(Getter); !ok {
		missing = append(missing, "get")
	}
	if _, ok := client.(Deleter); !ok {
		missing = append(missing, "delete")
	}
	if _, ok := client.(Lister); s.discoverMaps && !ok {
		missing = append(missing, "list")
	}
	if len(missing) > 0 {
		return nil, &ClientCapabilityError{Missing: missing}
	}

	s.client = client.(Client)
	return s, nil
}

// Open builds a client with factory, forwarding clientOpts unchanged, and
// wraps it in a Server.
func Open(factory ClientFactory, clientOpts map[string]any, opts ...Option) (*Server, error) {
	client, err := factory(clientOpts)
	if err != nil {
		return nil, err
	}
	s, err := NewServer(client, opts...)
	if err != nil {
		if c, ok := client.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return s, nil
}

// Client returns the validated client.
func (s *Server) Client() Client {
	return s.client
}

// Ping checks the store if the client implements Pinger. Other clients are
// assumed reachable.
func (s *Server) Ping(ctx context.Context) error {
	if p, ok := s.client.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the client if it implements io.Closer.
func (s *Server) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Save writes every rendered entry of obj, in render order. Writes are not
// atomic: on failure, entries already written stay written.
func (s *Server) Save(ctx context.Context, obj *object.Object) (*object.Object, error) {
	start := time.Now()
	logger := s.opLogger(opSave, obj)

	rendered := obj.Render()
	for i, e := range rendered {
		if err := s.client.Write(ctx, e.Key, field.FormatValue(e.Value)); err != nil {
			logger.Warn("write failed",
				log.KeyString(e.Key),
				log.Int("written", i),
				log.Err(err))
			s.finish(opSave, start, i, err)
			return nil, err
		}
	}

	logger.Debug("object saved", log.Count(len(rendered)))
	s.finish(opSave, start, len(rendered), nil)
	return obj, nil
}

// SaveAtomic writes every rendered entry of obj in one store transaction.
// It returns ErrAtomicUnsupported when the client cannot commit batches.
func (s *Server) SaveAtomic(ctx context.Context, obj *object.Object) (*object.Object, error) {
	start := time.Now()
	logger := s.opLogger(opSaveAtomic, obj)

	committer, ok := s.client.(Committer)
	if !ok {
		s.finish(opSaveAtomic, start, 0, ErrAtomicUnsupported)
		return nil, ErrAtomicUnsupported
	}

	rendered := obj.Render()
	kvs := make([]KV, len(rendered))
	for i, e := range rendered {
		kvs[i] = KV{Key: e.Key, Value: field.FormatValue(e.Value)}
	}
	if err := committer.Commit(ctx, kvs); err != nil {
		logger.Warn("commit failed", log.Count(len(kvs)), log.Err(err))
		s.finish(opSaveAtomic, start, 0, err)
		return nil, err
	}

	logger.Debug("object committed", log.Count(len(kvs)))
	s.finish(opSaveAtomic, start, len(kvs), nil)
	return obj, nil
}

// Read fetches every rendered key of obj and assigns the stored values back
// through the object's coercion. Map members are set under their sub-key.
// A missing key fails the read with the client's *KeyNotFoundError.
func (s *Server) Read(ctx context.Context, obj *object.Object) (*object.Object, error) {
	start := time.Now()
	logger := s.opLogger(opRead, obj)

	rendered := obj.Render()
	for i, e := range rendered {
		resp, err := s.client.Get(ctx, e.Key)
		if err != nil {
			logger.Warn("get failed", log.KeyString(e.Key), log.Err(err))
			s.finish(opRead, start, i, err)
			return nil, err
		}
		if resp == nil {
			err := &KeyNotFoundError{Key: e.Key}
			logger.Warn("get returned no response", log.KeyString(e.Key))
			s.finish(opRead, start, i, err)
			return nil, err
		}
		if err := assign(obj, e, resp.Value); err != nil {
			logger.Warn("stored value rejected",
				log.KeyString(e.Key),
				log.FieldName(e.Name),
				log.Value(resp.Value),
				log.Err(err))
			s.finish(opRead, start, i, err)
			return nil, err
		}
	}

	count := len(rendered)
	if s.discoverMaps {
		n, err := s.discover(ctx, obj, rendered)
		if err != nil {
			logger.Warn("map discovery failed", log.Err(err))
			s.finish(opRead, start, count, err)
			return nil, err
		}
		count += n
	}

	logger.Debug("object read", log.Count(count))
	s.finish(opRead, start, count, nil)
	return obj, nil
}

// Delete removes every rendered key of obj.
func (s *Server) Delete(ctx context.Context, obj *object.Object) (*object.Object, error) {
	start := time.Now()
	logger := s.opLogger(opDelete, obj)

	rendered := obj.Render()
	for i, e := range rendered {
		if err := s.client.Delete(ctx, e.Key); err != nil {
			logger.Warn("delete failed", log.KeyString(e.Key), log.Err(err))
			s.finish(opDelete, start, i, err)
			return nil, err
		}
	}

	logger.Debug("object deleted", log.Count(len(rendered)))
	s.finish(opDelete, start, len(rendered), nil)
	return obj, nil
}

// assign writes one fetched value back into obj.
func assign(obj *object.Object, e field.Entry, value string) error {
	if e.Dir {
		prefix := "/" + obj.Namespace() + "/" + e.Name + "/"
		return obj.SetEntry(e.Name, strings.TrimPrefix(e.Key, prefix), value)
	}

	// Unset int fields are stored as the empty string.
	if f, ok := obj.Field(e.Name); ok && value == "" && f.Kind() == field.KindInt {
		f.Reset()
		return nil
	}
	return obj.Set(e.Name, value)
}

// discover loads the stored members of obj's map fields that were not among
// the already fetched entries, and returns how many it loaded.
func (s *Server) discover(ctx context.Context, obj *object.Object, fetched []field.Entry) (int, error) {
	lister := s.client.(Lister)
	seen := make(map[string]struct{}, len(fetched))
	for _, e := range fetched {
		seen[e.Key] = struct{}{}
	}

	n := 0
	for _, f := range obj.Fields() {
		if f.Kind() != field.KindMap {
			continue
		}
		prefix := "/" + obj.Namespace() + "/" + f.Name() + "/"
		resps, err := lister.List(ctx, prefix)
		if err != nil {
			return n, err
		}
		for _, resp := range resps {
			if resp == nil {
				continue
			}
			if _, ok := seen[resp.Key]; ok {
				continue
			}
			sub := strings.TrimPrefix(resp.Key, prefix)
			if sub == "" {
				continue
			}
			if err := obj.SetEntry(f.Name(), sub, resp.Value); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Server) opLogger(op string, obj *object.Object) *log.Logger {
	return s.logger.With(
		log.Operation(op),
		log.Namespace(obj.Namespace()),
		log.OpID(uuid.NewString()),
	)
}

func (s *Server) finish(op string, start time.Time, entries int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.RecordError(op, errorType(err))
	}
	s.metrics.RecordOperation(op, status, time.Since(start))
	s.metrics.RecordEntries(op, entries)
}
