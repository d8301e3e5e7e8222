// Package config handles TOML configuration for cirrus.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	AWS       AWSConfig       `toml:"aws"`
	Transport TransportConfig `toml:"transport"`
	OTEL      OTELConfig      `toml:"otel"`
	Watch     WatchConfig     `toml:"watch"`
	Log       LogConfig       `toml:"log"`
}

// AWSConfig holds AWS account settings.
type AWSConfig struct {
	Region  string `toml:"region"`
	Profile string `toml:"profile"`
	// Endpoint replaces https://<service>.<region>.amazonaws.com, e.g. for a local emulator.
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// TransportConfig holds HTTP client settings.
type TransportConfig struct {
	TimeoutStr    string `toml:"timeout"`
	Timeout       time.Duration
	Retries       int    `toml:"retries"`
	BackoffStr    string `toml:"backoff"`
	Backoff       time.Duration
	MaxBackoffStr string `toml:"max_backoff"`
	MaxBackoff    time.Duration
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint"`
	Insecure    bool          `toml:"insecure"`
	CAFile      string        `toml:"ca_file"`
	ServiceName string        `toml:"service_name"`
	Traces      TracesConfig  `toml:"traces"`
	Metrics     MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// WatchConfig holds settings for the status polling loop.
type WatchConfig struct {
	IntervalStr string `toml:"interval"`
	Interval    time.Duration
	Listen      string `toml:"listen"`

	// ExcludeKinds names resource kinds that are never polled.
	ExcludeKinds []string `toml:"exclude_kinds"`
	// ExcludeIDs names single resources left out of every snapshot.
	ExcludeIDs []string `toml:"exclude_ids"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(cfg, md.IsDefined)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := finish(&Config{}, func(...string) bool { return false })
	if err != nil {
		// defaults are constants; a parse failure here is a programming error
		panic(err)
	}
	return cfg
}

func finish(cfg *Config, defined func(key ...string) bool) (*Config, error) {
	applyDefaults(cfg, defined)
	if err := parseDurations(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, defined func(key ...string) bool) {
	if cfg.Transport.TimeoutStr == "" {
		cfg.Transport.TimeoutStr = "30s"
	}
	if !defined("transport", "retries") {
		cfg.Transport.Retries = 3
	}
	if cfg.Transport.BackoffStr == "" {
		cfg.Transport.BackoffStr = "200ms"
	}
	if cfg.Transport.MaxBackoffStr == "" {
		cfg.Transport.MaxBackoffStr = "5s"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "cirrus"
	}
	if cfg.Watch.IntervalStr == "" {
		cfg.Watch.IntervalStr = "1m"
	}
	if cfg.Watch.Listen == "" {
		cfg.Watch.Listen = ":9464"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"transport.timeout", cfg.Transport.TimeoutStr, &cfg.Transport.Timeout},
		{"transport.backoff", cfg.Transport.BackoffStr, &cfg.Transport.Backoff},
		{"transport.max_backoff", cfg.Transport.MaxBackoffStr, &cfg.Transport.MaxBackoff},
		{"watch.interval", cfg.Watch.IntervalStr, &cfg.Watch.Interval},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", f.name, f.src, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws: region required")
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return fmt.Errorf("aws: access_key_id and secret_access_key must be set together")
	}
	if c.Transport.Retries < 0 {
		return fmt.Errorf("transport: retries must not be negative (got %d)", c.Transport.Retries)
	}
	if c.Transport.Timeout <= 0 {
		return fmt.Errorf("transport: timeout must be positive (got %v)", c.Transport.Timeout)
	}
	if c.OTEL.Insecure && c.OTEL.CAFile != "" {
		return fmt.Errorf("otel: insecure and ca_file are mutually exclusive")
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch: interval must be positive (got %v)", c.Watch.Interval)
	}
	return nil
}
