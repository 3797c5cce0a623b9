// Package config loads the configuration of an orbit runtime.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (ORBIT_*, e.g. ORBIT_SERVICES_STRATEGY)
//  2. Configuration file (YAML or TOML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/internal/telemetry"
	"github.com/centraunit/orbit/logger"
	"github.com/centraunit/orbit/ui"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ORBIT"

// Config is the static configuration of a runtime.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging" toml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry" toml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics" toml:"metrics"`
	Services  ServicesConfig  `mapstructure:"services" yaml:"services" toml:"services"`
	UI        UIConfig        `mapstructure:"ui" yaml:"ui" toml:"ui"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of trace, verbose, debug, info, warn, error, disabled.
	Level string `mapstructure:"level" validate:"required,oneof=trace verbose debug info warn warning error disabled" yaml:"level" toml:"level"`

	// Format is console or json.
	Format string `mapstructure:"format" validate:"required,oneof=console json" yaml:"format" toml:"format"`

	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output" toml:"output"`

	NoColor bool `mapstructure:"no_color" yaml:"no_color" toml:"no_color"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`

	// Endpoint is the OTLP gRPC collector (host:port).
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint" toml:"endpoint"`

	Insecure bool `mapstructure:"insecure" yaml:"insecure" toml:"insecure"`

	// SampleRate is the fraction of traces kept, from 0 to 1.
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate" toml:"sample_rate"`

	ServiceName string `mapstructure:"service_name" yaml:"service_name" toml:"service_name"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`

	// Port of the HTTP server exposing Path.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port" toml:"port"`

	Path string `mapstructure:"path" validate:"omitempty,startswith=/" yaml:"path" toml:"path"`
}

// ServicesConfig controls service bootstrap.
type ServicesConfig struct {
	// Strategy is parallel or sequential.
	Strategy orbit.Strategy `mapstructure:"strategy" yaml:"strategy" toml:"strategy"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// UIConfig overrides widget registrations by name.
type UIConfig struct {
	Windows  map[string]ViewConfig `mapstructure:"windows" validate:"dive" yaml:"windows,omitempty" toml:"windows,omitempty"`
	Huds     map[string]ViewConfig `mapstructure:"huds" validate:"dive" yaml:"huds,omitempty" toml:"huds,omitempty"`
	Tooltips map[string]ViewConfig `mapstructure:"tooltips" validate:"dive" yaml:"tooltips,omitempty" toml:"tooltips,omitempty"`
}

// ViewConfig overrides one registration.
type ViewConfig struct {
	Path       string `mapstructure:"path" yaml:"path,omitempty" toml:"path,omitempty"`
	Fullscreen bool   `mapstructure:"fullscreen" yaml:"fullscreen,omitempty" toml:"fullscreen,omitempty"`
}

// Load loads configuration from path, the environment and defaults. An
// empty path searches orbit.{yaml,toml} in the default directory; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		return
	}
	v.AddConfigPath(DefaultDir())
	v.AddConfigPath(".")
	v.SetConfigName("orbit")
}

// setDefaults registers every key so AutomaticEnv can override keys absent
// from the file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.no_color", d.Logging.NoColor)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("services.strategy", d.Services.Strategy.String())
	v.SetDefault("services.shutdown_timeout", d.Services.ShutdownTimeout.String())
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		strategyDecodeHook(),
	)
}

// durationDecodeHook accepts "30s" style strings and raw nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// strategyDecodeHook maps strategy names onto orbit.Strategy.
func strategyDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(orbit.Parallel) {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return orbit.ParseStrategy(s)
		}
		return data, nil
	}
}

var validate = validator.New()

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Save writes cfg to path as TOML when path ends in .toml, YAML otherwise.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultDir returns $XDG_CONFIG_HOME/orbit, ~/.config/orbit, or "." when
// no home directory is known.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "orbit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "orbit")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "orbit.yaml")
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		Output:  c.Logging.Output,
		NoColor: c.Logging.NoColor,
	}
}

// TelemetryConfig converts the telemetry section.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
		ServiceName:    c.Telemetry.ServiceName,
		ServiceVersion: version,
	}
}

// BuilderOptions converts the services section.
func (c *Config) BuilderOptions() *orbit.Options {
	return orbit.NewOptions().
		WithInitializationStrategy(c.Services.Strategy).
		WithShutdownTimeout(c.Services.ShutdownTimeout)
}

// ApplyUI applies the view overrides to registry and returns the names that
// matched no registration.
func (c *Config) ApplyUI(registry *ui.Registry) []string {
	var unknown []string
	for _, section := range []map[string]ViewConfig{c.UI.Windows, c.UI.Huds, c.UI.Tooltips} {
		for name, view := range section {
			if !registry.Override(name, view.Path, view.Fullscreen) {
				unknown = append(unknown, name)
			}
		}
	}
	return unknown
}
