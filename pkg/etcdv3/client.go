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

// Package etcdv3 is the etcd v3 store client used by etcdobj.
package etcdv3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"etcdobj/pkg/config"
	"etcdobj/pkg/etcdobj"
	"etcdobj/pkg/log"
	"etcdobj/pkg/metrics"

	"go.etcd.io/etcd/api/v3/mvccpb"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

const healthKey = "health"

// MaxTxnOps matches the etcd server's default --max-txn-ops.
const MaxTxnOps = 128

// ErrTxnTooLarge is returned by Commit when more than MaxTxnOps keys are given.
var ErrTxnTooLarge = errors.New("etcdv3: too many operations in transaction")

// Client implements etcdobj.Client, etcdobj.Committer and etcdobj.Lister
// on top of clientv3.
type Client struct {
	cli            *clientv3.Client
	kv             clientv3.KV
	requestTimeout time.Duration
	limiter        *rate.Limiter
	logger         *log.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger  *log.Logger
	metrics *metrics.Metrics
}

// WithLogger sets the logger for the client and the underlying clientv3.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records per-RPC metrics through a gRPC client interceptor.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New connects to etcd. Defaults are applied to cfg before validation.
func New(cfg config.EtcdConfig, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLogger()
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid etcd config: %w", err)
	}

	ccfg := clientv3.Config{
		Endpoints:            cfg.Endpoints,
		DialTimeout:          cfg.DialTimeout,
		DialKeepAliveTime:    cfg.KeepaliveTime,
		DialKeepAliveTimeout: cfg.KeepaliveTimeout,
		AutoSyncInterval:     cfg.AutoSyncInterval,
		MaxCallSendMsgSize:   cfg.MaxCallSendMsgSize,
		MaxCallRecvMsgSize:   cfg.MaxCallRecvMsgSize,
		Username:             cfg.Username,
		Password:             cfg.Password,
		Logger:               o.logger.Zap().Named("etcd-client"),
	}

	if cfg.TLS.Enabled() {
		tlsInfo := transport.TLSInfo{
			CertFile:           cfg.TLS.CertFile,
			KeyFile:            cfg.TLS.KeyFile,
			TrustedCAFile:      cfg.TLS.TrustedCAFile,
			ServerName:         cfg.TLS.ServerName,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		}
		tlsConfig, err := tlsInfo.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load etcd TLS config: %w", err)
		}
		ccfg.TLS = tlsConfig
	}

	var interceptors []grpc.UnaryClientInterceptor
	if o.metrics != nil {
		interceptors = append(interceptors, metrics.NewMetricsInterceptor(o.metrics).UnaryClientInterceptor())
	}
	if cfg.SlowRequestThreshold > 0 {
		slow := newSlowRequestLogger(cfg.SlowRequestThreshold, o.logger.Named("etcdv3"))
		interceptors = append(interceptors, slow.UnaryClientInterceptor())
	}
	if len(interceptors) > 0 {
		ccfg.DialOptions = append(ccfg.DialOptions, grpc.WithChainUnaryInterceptor(interceptors...))
	}

	cli, err := clientv3.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	c := NewFromClient(cli, cfg.RequestTimeout, o.logger)
	if cfg.RateLimitQPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitQPS), cfg.RateLimitBurst)
	}

	c.logger.Info("etcd client created",
		log.Endpoints(cfg.Endpoints),
		log.Duration("request_timeout", cfg.RequestTimeout),
		log.Any("tls", cfg.TLS.Enabled()))

	return c, nil
}

// NewFromClient wraps an existing clientv3 client. Close closes cli.
func NewFromClient(cli *clientv3.Client, requestTimeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Client{
		cli:            cli,
		kv:             clientv3.NewKV(cli),
		requestTimeout: requestTimeout,
		logger:         logger.Named("etcdv3"),
	}
}

// Raw returns the underlying clientv3 client.
func (c *Client) Raw() *clientv3.Client {
	return c.cli
}

// request bounds ctx with the request timeout and waits for the limiter.
func (c *Client) request(ctx context.Context) (context.Context, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if c.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, nil, err
		}
	}
	return ctx, cancel, nil
}

// Write puts value under key.
func (c *Client) Write(ctx context.Context, key, value string) error {
	ctx, cancel, err := c.request(ctx)
	if err != nil {
		return newRequestError("put", key, err)
	}
	defer cancel()

	if _, err := c.kv.Put(ctx, key, value); err != nil {
		return newRequestError("put", key, err)
	}
	return nil
}

// Get returns the value of key or *etcdobj.KeyNotFoundError.
func (c *Client) Get(ctx context.Context, key string) (*etcdobj.Response, error) {
	ctx, cancel, err := c.request(ctx)
	if err != nil {
		return nil, newRequestError("get", key, err)
	}
	defer cancel()

	resp, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, newRequestError("get", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, &etcdobj.KeyNotFoundError{Key: key}
	}
	return toResponse(resp.Kvs[0]), nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, cancel, err := c.request(ctx)
	if err != nil {
		return newRequestError("delete", key, err)
	}
	defer cancel()

	if _, err := c.kv.Delete(ctx, key); err != nil {
		return newRequestError("delete", key, err)
	}
	return nil
}

// List returns all keys under prefix, sorted by key.
func (c *Client) List(ctx context.Context, prefix string) ([]*etcdobj.Response, error) {
	ctx, cancel, err := c.request(ctx)
	if err != nil {
		return nil, newRequestError("range", prefix, err)
	}
	defer cancel()

	resp, err := c.kv.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, newRequestError("range", prefix, err)
	}

	out := make([]*etcdobj.Response, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, toResponse(kv))
	}
	return out, nil
}

// Commit puts every kv in one transaction.
func (c *Client) Commit(ctx context.Context, kvs []etcdobj.KV) error {
	if len(kvs) == 0 {
		return nil
	}
	if len(kvs) > MaxTxnOps {
		return fmt.Errorf("%w: %d > %d", ErrTxnTooLarge, len(kvs), MaxTxnOps)
	}

	ctx, cancel, err := c.request(ctx)
	if err != nil {
		return newRequestError("txn", kvs[0].Key, err)
	}
	defer cancel()

	ops := make([]clientv3.Op, len(kvs))
	for i, kv := range kvs {
		ops[i] = clientv3.OpPut(kv.Key, kv.Value)
	}
	if _, err := c.kv.Txn(ctx).Then(ops...).Commit(); err != nil {
		return newRequestError("txn", kvs[0].Key, err)
	}
	return nil
}

// Ping issues a read of the "health" key the way etcdctl endpoint health
// does. Permission denied still proves the cluster answered.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel, err := c.request(ctx)
	if err != nil {
		return newRequestError("get", healthKey, err)
	}
	defer cancel()

	_, err = c.kv.Get(ctx, healthKey)
	if err == nil || errors.Is(err, rpctypes.ErrPermissionDenied) {
		return nil
	}
	return newRequestError("get", healthKey, err)
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.cli.Close()
}

func toResponse(kv *mvccpb.KeyValue) *etcdobj.Response {
	return &etcdobj.Response{
		Key:      string(kv.Key),
		Value:    string(kv.Value),
		Revision: kv.ModRevision,
	}
}
