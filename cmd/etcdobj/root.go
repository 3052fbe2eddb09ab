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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"etcdobj/internal/example"
	"etcdobj/pkg/config"
	"etcdobj/pkg/etcdobj"
	"etcdobj/pkg/etcdv3"
	"etcdobj/pkg/health"
	"etcdobj/pkg/log"
	"etcdobj/pkg/memstore"
	"etcdobj/pkg/metrics"
	"etcdobj/pkg/object"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds flag values and the loaded configuration of one command run.
type app struct {
	cfgFile     string
	useMemory   bool
	logLevel    string
	metricsAddr string

	anint int64
	astr  string
	adict map[string]string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "etcdobj",
		Short: "Map typed objects onto etcd keys",
		Long: `etcdobj renders example objects into etcd key/value entries and
saves, reads or deletes them through an etcd v3 cluster or an in-memory store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "Path to the YAML configuration file")
	flags.BoolVar(&a.useMemory, "memory", false, "Use an in-process store instead of etcd")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	flags.Int64Var(&a.anint, "anint", 0, "Value of the anint field")
	flags.StringVar(&a.astr, "astr", "", "Value of the astr field")
	flags.StringToStringVar(&a.adict, "adict", nil, "Members of the adict field (key=value,...)")

	rootCmd.AddCommand(
		newRenderCmd(a),
		newSaveCmd(a),
		newReadCmd(a),
		newDeleteCmd(a),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfigOrDefault(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Monitoring.EnablePrometheus = true
		cfg.Monitoring.ListenAddress = a.metricsAddr
	}

	if err := log.InitFromConfig(&cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	return nil
}

// object builds an example object from the field flags that were set.
func (a *app) object(cmd *cobra.Command) (*object.Object, error) {
	var v example.Values
	flags := cmd.Flags()
	if flags.Changed("anint") {
		v.AnInt = &a.anint
	}
	if flags.Changed("astr") {
		v.AStr = &a.astr
	}
	if flags.Changed("adict") {
		v.ADict = a.adict
	}
	return example.New(v)
}

// session is an opened store adapter plus the optional metrics endpoint.
type session struct {
	server  *etcdobj.Server
	metrics *metrics.MetricsServer
}

func (a *app) open(opts ...etcdobj.Option) (*session, error) {
	logger := log.GetLogger()

	var (
		registry *prometheus.Registry
		m        *metrics.Metrics
	)
	if a.cfg.Monitoring.EnablePrometheus {
		registry = prometheus.NewRegistry()
		m = metrics.New(registry)
	}

	factory := etcdv3.Factory(etcdv3.WithLogger(logger), etcdv3.WithMetrics(m))
	if a.useMemory {
		factory = func(map[string]any) (any, error) {
			return memstore.New(), nil
		}
	}

	clientOpts, err := etcdv3.Options(a.cfg.Etcd)
	if err != nil {
		return nil, err
	}

	opts = append([]etcdobj.Option{etcdobj.WithLogger(logger), etcdobj.WithMetrics(m)}, opts...)
	srv, err := etcdobj.Open(factory, clientOpts, opts...)
	if err != nil {
		return nil, err
	}

	s := &session{server: srv}
	if registry != nil {
		hs := health.NewServer(logger)
		hs.Register(health.NewChecker("store", srv.Ping))
		s.metrics = metrics.ServeMetrics(a.cfg.Monitoring.ListenAddress, registry, hs, logger)
	}
	return s, nil
}

func (s *session) Close() {
	if s.server != nil {
		_ = s.server.Close()
	}
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.Shutdown(ctx)
	}
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
