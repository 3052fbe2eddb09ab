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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"etcdobj/pkg/etcdobj"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Dir   bool   `json:"dir"`
	Name  string `json:"name"`
}

func decode(t *testing.T, out string) []entry {
	t.Helper()
	var entries []entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	return entries
}

func TestRender(t *testing.T) {
	out, err := run(t, "render", "--anint", "10", "--astr", "200", "--adict", "test=value,second=one")
	require.NoError(t, err)

	assert.Equal(t, []entry{
		{Key: "/example/anint", Value: float64(10), Name: "anint"},
		{Key: "/example/astr", Value: "200", Name: "astr"},
		{Key: "/example/adict/second", Value: "one", Dir: true, Name: "adict"},
		{Key: "/example/adict/test", Value: "value", Dir: true, Name: "adict"},
	}, decode(t, out))
}

func TestRenderUnset(t *testing.T) {
	out, err := run(t, "render")
	require.NoError(t, err)

	entries := decode(t, out)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].Value)
	assert.Nil(t, entries[1].Value)
}

func TestSaveInMemory(t *testing.T) {
	out, err := run(t, "--memory", "save", "--anint", "7")
	require.NoError(t, err)
	assert.Equal(t, "/example/anint", decode(t, out)[0].Key)

	_, err = run(t, "--memory", "save", "--atomic", "--astr", "x")
	require.NoError(t, err)
}

func TestReadMissingInMemory(t *testing.T) {
	// Each run gets a fresh in-process store.
	_, err := run(t, "--memory", "read")
	require.Error(t, err)
	assert.ErrorIs(t, err, etcdobj.ErrKeyNotFound)
}

func TestDeleteInMemory(t *testing.T) {
	out, err := run(t, "--memory", "delete", "--adict", "a=1")
	require.NoError(t, err)

	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"/example/anint", "/example/astr", "/example/adict/a"}, keys)
}

func TestBadFlagValue(t *testing.T) {
	_, err := run(t, "render", "--anint", "ten")
	assert.Error(t, err)
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etcdobj.yaml")
	require.NoError(t, os.WriteFile(path, []byte("etcd:\n  endpoints: []\n  rate_limit_qps: -1\n"), 0o644))

	_, err := run(t, "--config", path, "render")
	assert.Error(t, err)
}

func TestSaveUnreachableEtcd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etcdobj.yaml")
	data := "etcd:\n  endpoints: [\"127.0.0.1:1\"]\n  dial_timeout: 200ms\n  request_timeout: 200ms\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := run(t, "--config", path, "save", "--anint", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save failed")
}
