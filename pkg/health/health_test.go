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

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"etcdobj/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealthy(t *testing.T) {
	hs := NewServer(log.NewNop())
	hs.Register(NewChecker("store", func(context.Context) error { return nil }))

	report := hs.Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, StatusHealthy, report.Checks["store"].Status)
	assert.Empty(t, report.Checks["store"].Message)
}

func TestCheckUnhealthy(t *testing.T) {
	hs := NewServer(log.NewNop())
	hs.Register(NewChecker("ok", func(context.Context) error { return nil }))
	hs.Register(NewChecker("store", func(context.Context) error { return errors.New("connection refused") }))

	report := hs.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusHealthy, report.Checks["ok"].Status)
	assert.Equal(t, StatusUnhealthy, report.Checks["store"].Status)
	assert.Contains(t, report.Checks["store"].Message, "connection refused")
}

func TestCheckIsCached(t *testing.T) {
	calls := 0
	hs := NewServer(log.NewNop())
	hs.Register(NewChecker("store", func(context.Context) error {
		calls++
		return nil
	}))

	hs.Check(context.Background())
	hs.Check(context.Background())
	assert.Equal(t, 1, calls)

	hs.CacheDuration = 0
	hs.Register(NewChecker("other", func(context.Context) error { return nil }))
	hs.Check(context.Background())
	hs.Check(context.Background())
	assert.Equal(t, 3, calls)
}

func TestCheckTimeout(t *testing.T) {
	hs := NewServer(log.NewNop())
	hs.Timeout = 10 * time.Millisecond
	hs.Register(NewChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := hs.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestServeHTTP(t *testing.T) {
	healthy := true
	hs := NewServer(log.NewNop())
	hs.CacheDuration = 0
	hs.Register(NewChecker("store", func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}))

	rec := httptest.NewRecorder()
	hs.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusHealthy, report.Status)

	healthy = false
	rec = httptest.NewRecorder()
	hs.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
