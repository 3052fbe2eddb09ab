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

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config unified configuration structure
type Config struct {
	Etcd       EtcdConfig       `yaml:"etcd"`
	Log        LogConfig        `yaml:"log"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// EtcdConfig connection options of the etcd store client
type EtcdConfig struct {
	Endpoints   []string      `yaml:"endpoints"`    // Default ["127.0.0.1:2379"]
	DialTimeout time.Duration `yaml:"dial_timeout"` // Default 5s

	// RequestTimeout bounds each Put/Get/Delete issued by the client, default 5s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Authentication
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Keepalive
	KeepaliveTime    time.Duration `yaml:"keepalive_time"`    // Default 10s
	KeepaliveTimeout time.Duration `yaml:"keepalive_timeout"` // Default 3s

	// AutoSyncInterval refreshes the member list, 0 disables
	AutoSyncInterval time.Duration `yaml:"auto_sync_interval"`

	MaxCallSendMsgSize int `yaml:"max_call_send_msg_size"` // Default 2MB
	MaxCallRecvMsgSize int `yaml:"max_call_recv_msg_size"` // Default 0 (client default)

	// Client-side rate limiting, 0 disables
	RateLimitQPS   float64 `yaml:"rate_limit_qps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Requests slower than this are logged at warn level, default 500ms
	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig client TLS files
type TLSConfig struct {
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	TrustedCAFile      string `yaml:"trusted_ca_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Enabled reports whether any TLS option is set
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != "" || t.TrustedCAFile != "" || t.InsecureSkipVerify
}

// LogConfig log configuration
type LogConfig struct {
	Level            string   `yaml:"level"`              // Default info
	Encoding         string   `yaml:"encoding"`           // Default console
	OutputPaths      []string `yaml:"output_paths"`       // Default ["stderr"]
	ErrorOutputPaths []string `yaml:"error_output_paths"` // Default ["stderr"]
}

// MonitoringConfig monitoring configuration
type MonitoringConfig struct {
	EnablePrometheus bool   `yaml:"enable_prometheus"` // Default false
	ListenAddress    string `yaml:"listen_address"`    // Default :9090
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	cfg.OverrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadConfigOrDefault loads path if it exists, otherwise falls back to defaults
func LoadConfigOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := LoadConfig(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err // file exists but is invalid
		}
	}

	cfg := DefaultConfig()
	cfg.OverrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	c.Etcd.SetDefaults()

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	if len(c.Log.OutputPaths) == 0 {
		c.Log.OutputPaths = []string{"stderr"}
	}
	if len(c.Log.ErrorOutputPaths) == 0 {
		c.Log.ErrorOutputPaths = []string{"stderr"}
	}

	// Monitoring defaults
	if c.Monitoring.ListenAddress == "" {
		c.Monitoring.ListenAddress = ":9090"
	}
}

// SetDefaults sets etcd client defaults
func (e *EtcdConfig) SetDefaults() {
	if len(e.Endpoints) == 0 {
		e.Endpoints = []string{"127.0.0.1:2379"}
	}
	if e.DialTimeout == 0 {
		e.DialTimeout = 5 * time.Second
	}
	if e.RequestTimeout == 0 {
		e.RequestTimeout = 5 * time.Second
	}
	if e.KeepaliveTime == 0 {
		e.KeepaliveTime = 10 * time.Second
	}
	if e.KeepaliveTimeout == 0 {
		e.KeepaliveTimeout = 3 * time.Second
	}
	if e.MaxCallSendMsgSize == 0 {
		e.MaxCallSendMsgSize = 2 * 1024 * 1024 // 2MB
	}
	if e.SlowRequestThreshold == 0 {
		e.SlowRequestThreshold = 500 * time.Millisecond
	}
	if e.RateLimitQPS > 0 && e.RateLimitBurst == 0 {
		e.RateLimitBurst = 1
	}
}

// OverrideFromEnv overrides configuration from environment variables
func (c *Config) OverrideFromEnv() {
	if endpoints := os.Getenv("ETCDOBJ_ENDPOINTS"); endpoints != "" {
		c.Etcd.Endpoints = splitList(endpoints)
	}
	if username := os.Getenv("ETCDOBJ_USERNAME"); username != "" {
		c.Etcd.Username = username
	}
	if password := os.Getenv("ETCDOBJ_PASSWORD"); password != "" {
		c.Etcd.Password = password
	}

	if logLevel := os.Getenv("ETCDOBJ_LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
	if logEncoding := os.Getenv("ETCDOBJ_LOG_ENCODING"); logEncoding != "" {
		c.Log.Encoding = logEncoding
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Etcd.Validate(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true,
		"error": true, "dpanic": true, "panic": true, "fatal": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error, dpanic, panic, fatal")
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return fmt.Errorf("log.encoding must be either 'json' or 'console'")
	}

	if c.Monitoring.EnablePrometheus && c.Monitoring.ListenAddress == "" {
		return fmt.Errorf("monitoring.listen_address is required when prometheus is enabled")
	}

	return nil
}

// Validate validates the etcd client options
func (e *EtcdConfig) Validate() error {
	if len(e.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}
	for _, ep := range e.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return fmt.Errorf("etcd.endpoints must not contain empty entries")
		}
	}
	if e.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be > 0")
	}
	if e.RequestTimeout <= 0 {
		return fmt.Errorf("etcd.request_timeout must be > 0")
	}
	if (e.Username == "") != (e.Password == "") {
		return fmt.Errorf("etcd.username and etcd.password must be set together")
	}
	if e.RateLimitQPS < 0 {
		return fmt.Errorf("etcd.rate_limit_qps must be >= 0")
	}
	if (e.TLS.CertFile == "") != (e.TLS.KeyFile == "") {
		return fmt.Errorf("etcd.tls.cert_file and etcd.tls.key_file must be set together")
	}
	return nil
}
