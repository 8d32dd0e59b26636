// Package config holds QRT's process-wide defaults and the YAML file
// format used to override them for `qrt serve`.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the default port for `qrt serve`'s HTTP+websocket listener.
const DefaultPort = 4700

// DefaultMetricsPort is the default value of Config.MetricsPort. `qrt serve`
// does not read that field: it serves /metrics on the same listener as /ws,
// at Port.
const DefaultMetricsPort = 9090

// Config is the shape of a qrt.yaml configuration file.
type Config struct {
	Port        int            `yaml:"port"`
	MetricsPort int            `yaml:"metrics_port"`
	TraceStore  TraceStoreSpec `yaml:"trace_store"`
	LineCache   LineCacheSpec  `yaml:"line_cache"`
	Tracing     TracingSpec    `yaml:"tracing"`
	Logging     LoggingSpec    `yaml:"logging"`
}

// TraceStoreSpec selects and configures the evaluator run history backend.
type TraceStoreSpec struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// LineCacheSpec configures the Redis-backed newline-offset cache.
type LineCacheSpec struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// TracingSpec configures OpenTelemetry export.
type TracingSpec struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// LoggingSpec configures the ambient logger.
type LoggingSpec struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration `qrt serve` runs with absent a file.
func Default() Config {
	return Config{
		Port:        DefaultPort,
		MetricsPort: DefaultMetricsPort,
		TraceStore:  TraceStoreSpec{Enabled: false, DSN: "sqlite://qrt-runs.db"},
		LineCache:   LineCacheSpec{Enabled: false, Address: "localhost:6379"},
		Tracing:     TracingSpec{Enabled: false, Exporter: "stdout", SamplingRate: 1.0},
		Logging:     LoggingSpec{Level: "info", Format: "text"},
	}
}

// Load reads and parses a qrt.yaml file at path, applying it on top of
// Default for any field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
