package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/mock"
	"github.com/centraunit/orbit/ui"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "orbit.yaml", `
logging:
  level: DEBUG
  format: json
services:
  strategy: sequential
  shutdown_timeout: 3s
ui:
  windows:
    Label:
      path: label/large
      fullscreen: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultLogOutput, cfg.Logging.Output)
	assert.Equal(t, orbit.Sequential, cfg.Services.Strategy)
	assert.Equal(t, 3*time.Second, cfg.Services.ShutdownTimeout)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
	require.Contains(t, cfg.UI.Windows, "label")
	assert.Equal(t, ViewConfig{Path: "label/large", Fullscreen: true}, cfg.UI.Windows["label"])
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "orbit.toml", `
[logging]
level = "warn"

[telemetry]
enabled = true
endpoint = "collector:4317"
sample_rate = 0.25

[metrics]
enabled = true
port = 9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRate, 1e-9)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.Equal(t, orbit.Parallel, cfg.Services.Strategy)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORBIT_SERVICES_STRATEGY", "sequential")
	t.Setenv("ORBIT_METRICS_PORT", "9200")
	path := writeFile(t, "orbit.yaml", "metrics:\n  port: 9100\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, orbit.Sequential, cfg.Services.Strategy)
	assert.Equal(t, 9200, cfg.Metrics.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "orbit.yaml", "logging: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"sample rate", "telemetry:\n  sample_rate: 2\n", "SampleRate"},
		{"log format", "logging:\n  format: xml\n", "Format"},
		{"metrics path", "metrics:\n  path: metrics\n", "Path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "orbit.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_UnknownStrategy(t *testing.T) {
	_, err := Load(writeFile(t, "orbit.yaml", "services:\n  strategy: fastest\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fastest")
}

func TestDecodeHooks(t *testing.T) {
	var services ServicesConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHooks(),
		Result:     &services,
	})
	require.NoError(t, err)

	require.NoError(t, dec.Decode(map[string]any{
		"strategy":         "Sequential",
		"shutdown_timeout": "1m30s",
	}))
	assert.Equal(t, orbit.Sequential, services.Strategy)
	assert.Equal(t, 90*time.Second, services.ShutdownTimeout)

	require.NoError(t, dec.Decode(map[string]any{"shutdown_timeout": int64(time.Second)}))
	assert.Equal(t, time.Second, services.ShutdownTimeout)

	assert.Error(t, dec.Decode(map[string]any{"shutdown_timeout": "soon"}))
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"orbit.yaml", "orbit.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Logging.Level = "debug"
			cfg.Telemetry.SampleRate = 0.5
			cfg.Services.Strategy = orbit.Sequential
			cfg.Services.ShutdownTimeout = 2 * time.Second
			cfg.UI.Tooltips = map[string]ViewConfig{"badge": {Path: "badge/small"}}

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(path, cfg))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestBuilderOptions(t *testing.T) {
	cfg := Default()
	cfg.Services.Strategy = orbit.Sequential
	cfg.Services.ShutdownTimeout = time.Minute

	opts := cfg.BuilderOptions()
	assert.Equal(t, orbit.Sequential, opts.InitializationStrategy())
	assert.Equal(t, time.Minute, opts.ShutdownTimeout())
}

func TestApplyUI(t *testing.T) {
	registry := ui.NewRegistry(nil)
	ui.Register[mock.Label](registry, "label")
	ui.Register[mock.Badge](registry, "badge")

	cfg := Default()
	cfg.UI.Windows = map[string]ViewConfig{"label": {Path: "label/large", Fullscreen: true}}
	cfg.UI.Huds = map[string]ViewConfig{"compass": {Path: "compass"}}

	unknown := cfg.ApplyUI(registry)
	assert.Equal(t, []string{"compass"}, unknown)

	reg, err := registry.Lookup(orbit.TypeOf[*mock.Label]())
	require.NoError(t, err)
	assert.Equal(t, "label/large", reg.Path)
	assert.True(t, reg.Fullscreen)

	reg, err = registry.Lookup(orbit.TypeOf[*mock.Badge]())
	require.NoError(t, err)
	assert.Equal(t, "badge", reg.Path)
}

func TestWatch(t *testing.T) {
	path := writeFile(t, "orbit.yaml", "logging:\n  level: info\n")

	var level atomic.Value
	w, err := Watch(context.Background(), path, func(cfg *Config) {
		level.Store(cfg.Logging.Level)
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))
	require.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_ReportsInvalidFile(t *testing.T) {
	path := writeFile(t, "orbit.yaml", "logging:\n  level: info\n")

	errs := make(chan error, 8)
	w, err := Watch(context.Background(), path, func(*Config) {}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644))
	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "Level")
	case <-time.After(2 * time.Second):
		t.Fatal("invalid configuration was never reported")
	}
}
