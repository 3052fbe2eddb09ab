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

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"etcdobj/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics for Prometheus scraping and /health
type MetricsServer struct {
	server   *http.Server
	registry *prometheus.Registry
	logger   *log.Logger
}

// NewMetricsServer creates a metrics HTTP server listening on addr. health
// serves /health; nil answers a static OK.
func NewMetricsServer(addr string, registry *prometheus.Registry, health http.Handler, logger *log.Logger) *MetricsServer {
	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(registry, health),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	return &MetricsServer{
		server:   server,
		registry: registry,
		logger:   logger.Named("metrics"),
	}
}

// Handler returns the mux behind the metrics server
func Handler(registry *prometheus.Registry, health http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		MaxRequestsInFlight: 10,
		Timeout:             30 * time.Second,
		ErrorHandling:       promhttp.ContinueOnError,
	}))

	if health != nil {
		mux.Handle("/health", health)
	} else {
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK\n"))
		})
	}

	return mux
}

// Start blocks until the server is shut down
func (ms *MetricsServer) Start() error {
	ms.logger.Info("starting metrics server", log.String("addr", ms.server.Addr))

	if err := ms.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		ms.logger.Error("metrics server failed", log.Err(err))
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	if err := ms.server.Shutdown(ctx); err != nil {
		ms.logger.Error("metrics server shutdown failed", log.Err(err))
		return err
	}
	ms.logger.Info("metrics server stopped")
	return nil
}

// ServeMetrics starts a metrics server in the background
func ServeMetrics(addr string, registry *prometheus.Registry, health http.Handler, logger *log.Logger) *MetricsServer {
	server := NewMetricsServer(addr, registry, health, logger)
	go func() {
		_ = server.Start()
	}()
	return server
}
