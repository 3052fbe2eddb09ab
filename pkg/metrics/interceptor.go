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
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// MetricsInterceptor provides gRPC client interceptors with metrics collection
type MetricsInterceptor struct {
	metrics *Metrics
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(m *Metrics) *MetricsInterceptor {
	return &MetricsInterceptor{
		metrics: m,
	}
}

// UnaryClientInterceptor returns a unary client interceptor with metrics collection
func (mi *MetricsInterceptor) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if mi.metrics == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		mi.metrics.GrpcRequestInFlight.WithLabelValues(method).Inc()
		defer mi.metrics.GrpcRequestInFlight.WithLabelValues(method).Dec()

		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		mi.metrics.RecordGrpcRequest(method, status.Code(err).String(), time.Since(start))

		return err
	}
}
