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

package etcdv3

import (
	"context"
	"time"

	"etcdobj/pkg/log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// slowRequestLogger logs etcd RPCs that take longer than threshold.
type slowRequestLogger struct {
	threshold time.Duration
	logger    *log.Logger
}

func newSlowRequestLogger(threshold time.Duration, logger *log.Logger) *slowRequestLogger {
	return &slowRequestLogger{
		threshold: threshold,
		logger:    logger,
	}
}

func (l *slowRequestLogger) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		duration := time.Since(start)

		if duration > l.threshold {
			l.logger.Warn("slow etcd request",
				log.String("method", method),
				log.Duration("duration", duration),
				log.String("code", status.Code(err).String()))
		}
		return err
	}
}
