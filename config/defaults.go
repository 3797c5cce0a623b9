package config

import (
	"strings"

	"github.com/centraunit/orbit"
)

// Default values.
const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultLogOutput    = "stderr"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultServiceName  = "orbit"
	DefaultMetricsPort  = 9090
	DefaultMetricsPath  = "/metrics"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{
			Insecure:   true,
			SampleRate: 1.0,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values and normalizes case.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyServicesDefaults(&cfg.Services)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	cfg.Level = strings.ToLower(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = DefaultLogFormat
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Output == "" {
		cfg.Output = DefaultLogOutput
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOTLPEndpoint
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
	if cfg.Path == "" {
		cfg.Path = DefaultMetricsPath
	}
}

func applyServicesDefaults(cfg *ServicesConfig) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = orbit.DefaultShutdownTimeout
	}
}
