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

package etcdobj_test

import (
	"context"
	"errors"
	"testing"

	"etcdobj/pkg/etcdobj"
	"etcdobj/pkg/field"
	"etcdobj/pkg/log"
	"etcdobj/pkg/memstore"
	"etcdobj/pkg/metrics"
	"etcdobj/pkg/object"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testingSchema = object.MustNewSchema("testing", field.Int("anint"))

	exampleSchema = object.MustNewSchema("example",
		field.Int("anint"),
		field.Text("astr"),
		field.Map("adict"),
	)
)

// recordingClient records every call and serves reads from values.
type recordingClient struct {
	writes  []etcdobj.KV
	gets    []string
	deletes []string
	values  map[string]string
	failOn  string
}

func (c *recordingClient) Write(ctx context.Context, key, value string) error {
	if key == c.failOn {
		return errors.New("connection refused")
	}
	c.writes = append(c.writes, etcdobj.KV{Key: key, Value: value})
	return nil
}

func (c *recordingClient) Get(ctx context.Context, key string) (*etcdobj.Response, error) {
	c.gets = append(c.gets, key)
	v, ok := c.values[key]
	if !ok {
		return nil, &etcdobj.KeyNotFoundError{Key: key}
	}
	return &etcdobj.Response{Key: key, Value: v}, nil
}

func (c *recordingClient) Delete(ctx context.Context, key string) error {
	c.deletes = append(c.deletes, key)
	return nil
}

type writeOnly struct{}

func (writeOnly) Write(ctx context.Context, key, value string) error { return nil }

type noDelete struct{ writeOnly }

func (noDelete) Get(ctx context.Context, key string) (*etcdobj.Response, error) { return nil, nil }

func newServer(t *testing.T, client any, opts ...etcdobj.Option) *etcdobj.Server {
	t.Helper()
	opts = append([]etcdobj.Option{etcdobj.WithLogger(log.NewNop())}, opts...)
	s, err := etcdobj.NewServer(client, opts...)
	require.NoError(t, err)
	return s
}

func TestNewServerVerifiesClient(t *testing.T) {
	client := &recordingClient{}
	s := newServer(t, client)
	assert.Same(t, client, s.Client())

	tests := []struct {
		name    string
		client  any
		missing []string
	}{
		{"map", map[string]any{}, []string{"write", "get", "delete"}},
		{"nil", nil, []string{"write", "get", "delete"}},
		{"write only", writeOnly{}, []string{"get", "delete"}},
		{"no delete", noDelete{}, []string{"delete"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := etcdobj.NewServer(tt.client)
			var ce *etcdobj.ClientCapabilityError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.missing, ce.Missing)
			for _, m := range tt.missing {
				assert.Contains(t, err.Error(), m)
			}
		})
	}
}

func TestNewServerMapDiscoveryNeedsLister(t *testing.T) {
	_, err := etcdobj.NewServer(&recordingClient{}, etcdobj.WithMapDiscovery())
	var ce *etcdobj.ClientCapabilityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"list"}, ce.Missing)
}

func TestSave(t *testing.T) {
	client := &recordingClient{}
	s := newServer(t, client)

	obj := testingSchema.MustNew(map[string]any{"anint": 10})
	got, err := s.Save(context.Background(), obj)
	require.NoError(t, err)
	assert.Same(t, obj, got)

	assert.Equal(t, []etcdobj.KV{{Key: "/testing/anint", Value: "10"}}, client.writes)
}

func TestSaveWritesInRenderOrder(t *testing.T) {
	client := &recordingClient{}
	s := newServer(t, client)

	obj := exampleSchema.MustNew(map[string]any{
		"anint": "10",
		"astr":  200,
		"adict": map[string]any{"test": "value", "second": "one"},
	})
	_, err := s.Save(context.Background(), obj)
	require.NoError(t, err)

	assert.Equal(t, []etcdobj.KV{
		{Key: "/example/anint", Value: "10"},
		{Key: "/example/astr", Value: "200"},
		{Key: "/example/adict/second", Value: "one"},
		{Key: "/example/adict/test", Value: "value"},
	}, client.writes)
}

func TestSaveHasNoRollback(t *testing.T) {
	client := &recordingClient{failOn: "/example/astr"}
	s := newServer(t, client)

	obj := exampleSchema.MustNew(map[string]any{"anint": 1, "astr": "x"})
	got, err := s.Save(context.Background(), obj)
	require.Error(t, err)
	assert.Nil(t, got)

	assert.Equal(t, []etcdobj.KV{{Key: "/example/anint", Value: "1"}}, client.writes)
	assert.Empty(t, client.deletes)
}

func TestRead(t *testing.T) {
	client := &recordingClient{values: map[string]string{"/testing/anint": "10"}}
	s := newServer(t, client)

	obj, err := s.Read(context.Background(), testingSchema.MustNew(map[string]any{"anint": 1}))
	require.NoError(t, err)

	assert.Equal(t, []string{"/testing/anint"}, client.gets)
	n, ok := obj.Int("anint")
	require.True(t, ok)
	assert.Equal(t, int64(10), n)
}

func TestReadMissingKey(t *testing.T) {
	s := newServer(t, &recordingClient{})

	_, err := s.Read(context.Background(), testingSchema.MustNew(nil))
	assert.ErrorIs(t, err, etcdobj.ErrKeyNotFound)

	var nf *etcdobj.KeyNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "/testing/anint", nf.Key)
}

func TestReadRejectsBadStoredValue(t *testing.T) {
	client := &recordingClient{values: map[string]string{"/testing/anint": "ten"}}
	s := newServer(t, client)

	obj := testingSchema.MustNew(map[string]any{"anint": 1})
	_, err := s.Read(context.Background(), obj)

	var ce *field.CoercionError
	require.ErrorAs(t, err, &ce)
	n, _ := obj.Int("anint")
	assert.Equal(t, int64(1), n)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newServer(t, store)

	schema := object.MustNewSchema("rt", field.Int("n"), field.Text("s"), field.Generic("g"))
	orig := schema.MustNew(map[string]any{"n": "42", "s": 3.5, "g": "raw"})
	_, err := s.Save(ctx, orig)
	require.NoError(t, err)

	read, err := s.Read(ctx, schema.MustNew(nil))
	require.NoError(t, err)

	for _, name := range schema.FieldNames() {
		want, _ := orig.Get(name)
		got, _ := read.Get(name)
		assert.Equal(t, want, got, name)
	}
	n, ok := read.Int("n")
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestRoundTripUnsetInt(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newServer(t, store)

	_, err := s.Save(ctx, testingSchema.MustNew(nil))
	require.NoError(t, err)

	resp, err := store.Get(ctx, "/testing/anint")
	require.NoError(t, err)
	assert.Equal(t, "", resp.Value)

	read, err := s.Read(ctx, testingSchema.MustNew(map[string]any{"anint": 5}))
	require.NoError(t, err)
	f, _ := read.Field("anint")
	assert.False(t, f.IsSet())
}

func TestReadMapMembers(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newServer(t, store)

	orig := exampleSchema.MustNew(map[string]any{
		"anint": 10,
		"astr":  "200",
		"adict": map[string]any{"test": "value", "second": "one"},
	})
	_, err := s.Save(ctx, orig)
	require.NoError(t, err)

	// The object must know the member keys to read them.
	target := exampleSchema.MustNew(map[string]any{"adict": map[string]any{"test": "", "second": ""}})
	read, err := s.Read(ctx, target)
	require.NoError(t, err)

	m, ok := read.Map("adict")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"test": "value", "second": "one"}, m)
	assert.Equal(t, orig.Render(), read.Render())
}

func TestReadWithMapDiscovery(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newServer(t, store, etcdobj.WithMapDiscovery())

	schema := object.MustNewSchema("disc", field.Text("name"), field.Map("labels", field.WithEntryKind("replicas", field.KindInt)))
	_, err := s.Save(ctx, schema.MustNew(map[string]any{
		"name":   "web",
		"labels": map[string]any{"tier": "frontend", "replicas": 3, "nested/key": "x"},
	}))
	require.NoError(t, err)

	read, err := s.Read(ctx, schema.MustNew(nil))
	require.NoError(t, err)

	m, ok := read.Map("labels")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"tier": "frontend", "replicas": int64(3), "nested/key": "x"}, m)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newServer(t, store)

	obj := exampleSchema.MustNew(map[string]any{"anint": 1, "astr": "a", "adict": map[string]any{"k": "v"}})
	_, err := s.Save(ctx, obj)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "/other/key", "kept"))

	got, err := s.Delete(ctx, obj)
	require.NoError(t, err)
	assert.Same(t, obj, got)
	assert.Equal(t, []string{"/other/key"}, store.Keys())
}

func TestSaveAtomic(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newServer(t, store)

	obj := exampleSchema.MustNew(map[string]any{"anint": 1, "astr": "a", "adict": map[string]any{"k": "v"}})
	_, err := s.SaveAtomic(ctx, obj)
	require.NoError(t, err)

	assert.Equal(t, int64(1), store.Revision())
	assert.Equal(t, []string{"/example/adict/k", "/example/anint", "/example/astr"}, store.Keys())

	_, err = newServer(t, &recordingClient{}).SaveAtomic(ctx, obj)
	assert.ErrorIs(t, err, etcdobj.ErrAtomicUnsupported)
}

func TestMetricsAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.New(prometheus.NewRegistry())
	s, err := etcdobj.NewServer(&recordingClient{},
		etcdobj.WithLogger(log.NewFromZap(zap.New(core))),
		etcdobj.WithMetrics(m))
	require.NoError(t, err)

	_, err = s.Save(context.Background(), exampleSchema.MustNew(map[string]any{"anint": 1}))
	require.NoError(t, err)
	_, err = s.Read(context.Background(), testingSchema.MustNew(nil))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationTotal.WithLabelValues("save")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EntriesTotal.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("read", "key_not_found")))

	assert.Equal(t, 1, logs.FilterMessage("object saved").Len())
	failed := logs.FilterMessage("get failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "/testing/anint", failed[0].ContextMap()["key"])
	assert.Equal(t, "testing", failed[0].ContextMap()["namespace"])
	assert.Equal(t, "read", failed[0].ContextMap()["operation"])
}

func TestOpen(t *testing.T) {
	var forwarded map[string]any
	store := memstore.New()
	factory := func(opts map[string]any) (any, error) {
		forwarded = opts
		return store, nil
	}

	opts := map[string]any{"port": 2379}
	s, err := etcdobj.Open(factory, opts, etcdobj.WithLogger(log.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, opts, forwarded)
	assert.Same(t, store, s.Client())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, store.Write(context.Background(), "/k", "v"), memstore.ErrClosed)

	_, err = etcdobj.Open(func(map[string]any) (any, error) { return writeOnly{}, nil }, nil)
	var ce *etcdobj.ClientCapabilityError
	assert.ErrorAs(t, err, &ce)

	boom := errors.New("dial failed")
	_, err = etcdobj.Open(func(map[string]any) (any, error) { return nil, boom }, nil)
	assert.ErrorIs(t, err, boom)
}

func TestPing(t *testing.T) {
	store := memstore.New()
	srv := newServer(t, store)
	require.NoError(t, srv.Ping(context.Background()))

	require.NoError(t, srv.Close())
	assert.ErrorIs(t, srv.Ping(context.Background()), memstore.ErrClosed)

	// Clients without Ping are assumed reachable.
	srv = newServer(t, &recordingClient{})
	assert.NoError(t, srv.Ping(context.Background()))
}

// nilResponseClient answers every Get and List with no response and no error.
type nilResponseClient struct{ writeOnly }

func (nilResponseClient) Get(ctx context.Context, key string) (*etcdobj.Response, error) {
	return nil, nil
}

func (nilResponseClient) Delete(ctx context.Context, key string) error { return nil }

func (nilResponseClient) List(ctx context.Context, prefix string) ([]*etcdobj.Response, error) {
	return []*etcdobj.Response{nil}, nil
}

func TestReadNilResponse(t *testing.T) {
	s := newServer(t, nilResponseClient{})

	got, err := s.Read(context.Background(), testingSchema.MustNew(nil))
	assert.Nil(t, got)
	var notFound *etcdobj.KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "/testing/anint", notFound.Key)
}

func TestDiscoverySkipsNilResponses(t *testing.T) {
	s := newServer(t, nilResponseClient{}, etcdobj.WithMapDiscovery())
	schema := object.MustNewSchema("onlymap", field.Map("m"))

	read, err := s.Read(context.Background(), schema.MustNew(nil))
	require.NoError(t, err)
	_, ok := read.Map("m")
	assert.False(t, ok)
}

func TestDiscoveryCountsOnlyNewMembers(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	m := metrics.New(prometheus.NewRegistry())
	s := newServer(t, store, etcdobj.WithMapDiscovery(), etcdobj.WithMetrics(m))

	schema := object.MustNewSchema("disc", field.Text("name"), field.Map("labels"))
	_, err := s.Save(ctx, schema.MustNew(map[string]any{
		"name":   "web",
		"labels": map[string]any{"a": "1", "b": "2"},
	}))
	require.NoError(t, err)

	// name and labels/a are rendered; only labels/b is discovered.
	read, err := s.Read(ctx, schema.MustNew(map[string]any{"labels": map[string]any{"a": ""}}))
	require.NoError(t, err)

	labels, ok := read.Map("labels")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, labels)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EntriesTotal.WithLabelValues("read")))
}

func TestRejectedValueIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	client := &recordingClient{values: map[string]string{"/testing/anint": "ten"}}
	s := newServer(t, client, etcdobj.WithLogger(log.NewFromZap(zap.New(core))))

	_, err := s.Read(context.Background(), testingSchema.MustNew(nil))
	require.Error(t, err)

	entries := logs.FilterMessage("stored value rejected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "anint", fields["field"])
	assert.Equal(t, "ten", fields["value"])
	assert.Equal(t, "store_adapter", fields["component"])
}
