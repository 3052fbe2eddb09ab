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
	"fmt"
	"net"
	"strconv"

	"etcdobj/pkg/config"
	"etcdobj/pkg/etcdobj"

	"gopkg.in/yaml.v3"
)

// factoryOptions accepts the keys of config.EtcdConfig plus the host/port
// pair of single-endpoint setups.
type factoryOptions struct {
	config.EtcdConfig `yaml:",inline"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// decodeOptions maps an opaque option map onto config.EtcdConfig using the
// yaml field names. Durations must be given as strings such as "5s".
func decodeOptions(opts map[string]any) (config.EtcdConfig, error) {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return config.EtcdConfig{}, fmt.Errorf("failed to encode etcd options: %w", err)
	}

	var fo factoryOptions
	if err := yaml.Unmarshal(data, &fo); err != nil {
		return config.EtcdConfig{}, fmt.Errorf("failed to decode etcd options: %w", err)
	}

	cfg := fo.EtcdConfig
	if len(cfg.Endpoints) == 0 && (fo.Host != "" || fo.Port != 0) {
		host := fo.Host
		if host == "" {
			host = "127.0.0.1"
		}
		port := fo.Port
		if port == 0 {
			port = 2379
		}
		cfg.Endpoints = []string{net.JoinHostPort(host, strconv.Itoa(port))}
	}
	return cfg, nil
}

// Options encodes cfg as the option map Factory accepts.
func Options(cfg config.EtcdConfig) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode etcd config: %w", err)
	}

	opts := make(map[string]any)
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode etcd config: %w", err)
	}
	return opts, nil
}

// Factory builds a Client from an opaque option map.
func Factory(opts ...Option) etcdobj.ClientFactory {
	return func(raw map[string]any) (any, error) {
		cfg, err := decodeOptions(raw)
		if err != nil {
			return nil, err
		}
		return New(cfg, opts...)
	}
}
