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

// Package health reports whether the object store behind etcdobj is reachable.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"etcdobj/pkg/log"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the result of a single check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms"`
}

// Report is the combined result of every registered check
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker is a named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkerFunc struct {
	name string
	fn   func(context.Context) error
}

func (c checkerFunc) Name() string                    { return c.name }
func (c checkerFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// NewChecker wraps fn as a Checker.
func NewChecker(name string, fn func(context.Context) error) Checker {
	return checkerFunc{name: name, fn: fn}
}

// Server runs checks and serves the report over HTTP. Reports are cached for
// CacheDuration so probes do not hit the store on every request.
type Server struct {
	mu       sync.Mutex
	checkers []Checker
	logger   *log.Logger

	cached        *Report
	validUntil    time.Time
	CacheDuration time.Duration
	Timeout       time.Duration
}

// NewServer creates a health server with no checks registered.
func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Server{
		logger:        logger.Named("health"),
		CacheDuration: 5 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Register adds a check.
func (s *Server) Register(c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, c)
	s.cached = nil
	s.logger.Debug("registered health checker", log.String("name", c.Name()))
}

// Check runs every check, or returns the cached report if it is still valid.
func (s *Server) Check(ctx context.Context) *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.cached != nil && now.Before(s.validUntil) {
		return s.cached
	}

	report := &Report{
		Status:    StatusHealthy,
		Timestamp: now.Format(time.RFC3339),
		Checks:    make(map[string]CheckResult, len(s.checkers)),
	}

	for _, c := range s.checkers {
		result := s.run(ctx, c)
		if result.Status == StatusUnhealthy {
			report.Status = StatusUnhealthy
		}
		report.Checks[c.Name()] = result
	}

	s.cached = report
	s.validUntil = now.Add(s.CacheDuration)
	return report
}

func (s *Server) run(ctx context.Context, c Checker) CheckResult {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.Check(ctx)
	result := CheckResult{
		Status:  StatusHealthy,
		Latency: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("%s check failed: %v", c.Name(), err)
		s.logger.Warn("health check failed", log.String("name", c.Name()), log.Err(err))
	}
	return result
}

// ServeHTTP writes the report as JSON with 503 when unhealthy.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := s.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(report)
}
