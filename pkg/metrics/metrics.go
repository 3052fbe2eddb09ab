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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "etcdobj"
)

// Metrics holds the Prometheus metrics of the object store adapter and its
// etcd client. A nil *Metrics records nothing.
type Metrics struct {
	// Adapter operations (save, read, delete, save_atomic)
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	EntriesTotal      *prometheus.CounterVec

	// gRPC calls issued by the etcd client
	GrpcRequestDuration *prometheus.HistogramVec
	GrpcRequestTotal    *prometheus.CounterVec
	GrpcRequestInFlight *prometheus.GaugeVec
}

// New creates and registers all metrics
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		OperationDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Histogram of object store operation latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),

		OperationTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_total",
				Help:      "Total number of object store operations",
			},
			[]string{"operation"},
		),

		OperationErrors: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_errors_total",
				Help:      "Total number of failed object store operations by error type",
			},
			[]string{"operation", "error_type"},
		),

		EntriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "entries_total",
				Help:      "Total number of rendered entries written, read or deleted",
			},
			[]string{"operation"},
		),

		GrpcRequestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "grpc_client",
				Name:      "request_duration_seconds",
				Help:      "Histogram of etcd client gRPC latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),

		GrpcRequestTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grpc_client",
				Name:      "request_total",
				Help:      "Total number of etcd client gRPC requests",
			},
			[]string{"method", "code"},
		),

		GrpcRequestInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "grpc_client",
				Name:      "request_in_flight",
				Help:      "Current number of in-flight etcd client gRPC requests",
			},
			[]string{"method"},
		),
	}
}

// RecordOperation records an adapter operation's duration and status
func (m *Metrics) RecordOperation(operation string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	m.OperationTotal.WithLabelValues(operation).Inc()
}

// RecordError records a failed adapter operation
func (m *Metrics) RecordError(operation string, errorType string) {
	if m == nil {
		return
	}
	m.OperationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordEntries adds n processed entries for operation
func (m *Metrics) RecordEntries(operation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EntriesTotal.WithLabelValues(operation).Add(float64(n))
}

// RecordGrpcRequest records an etcd client gRPC call
func (m *Metrics) RecordGrpcRequest(method string, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GrpcRequestDuration.WithLabelValues(method, code).Observe(duration.Seconds())
	m.GrpcRequestTotal.WithLabelValues(method, code).Inc()
}
