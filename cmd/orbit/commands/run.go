package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/config"
	"github.com/centraunit/orbit/internal/app"
	"github.com/centraunit/orbit/internal/metrics"
	"github.com/centraunit/orbit/internal/telemetry"
	"github.com/centraunit/orbit/logger"
)

var (
	viewsDir string
	noWatch  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the shell in the foreground",
	Long: `Run the orbit shell until interrupted.

Views are loaded from --views, one YAML descriptor per registration path.
Without --views every widget gets a bare descriptor.

The configuration file is watched; log level changes apply immediately.

Examples:
  orbit run
  orbit run --config /etc/orbit/orbit.yaml --views ./views
  ORBIT_SERVICES_STRATEGY=sequential orbit run`,
	RunE: runShell,
}

func init() {
	runCmd.Flags().StringVar(&viewsDir, "views", "", "Directory holding view descriptors")
	runCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the configuration file on change")
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Built wide open and gated by the global level, so reloads can move it
	// both ways. ORBIT_LOG_LEVEL still pins the logger.
	lc := cfg.LoggerConfig()
	lc.Level = "trace"
	log, err := logger.New(lc)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobalLevel(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetryConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			log.E("telemetry shutdown error", "error", err)
		}
	}()
	if telemetry.IsEnabled() {
		log.I("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics, log)
	}

	if !noWatch {
		if path := configSource(); path != "defaults" {
			w, err := config.Watch(ctx, path, func(next *config.Config) {
				logger.SetGlobalLevel(next.Logging.Level)
				log.I("Configuration reloaded", "level", next.Logging.Level)
			}, func(err error) {
				log.W("Configuration reload failed", "error", err)
			})
			if err != nil {
				log.W("Configuration watch disabled", "error", err)
			} else {
				defer w.Close()
			}
		}
	}

	setup := orbit.NewSetup(orbit.Eternal,
		orbit.WithName("Shell"),
		orbit.WithLogger(log),
		orbit.WithOptions(cfg.BuilderOptions()),
	)
	shell := app.New(cfg, Version, app.DirLoader(viewsDir))
	if err := orbit.Install(ctx, shell, setup); err != nil {
		setup.Terminate()
		return fmt.Errorf("failed to start shell: %w", err)
	}

	log.I("Shell is running. Press Ctrl+C to stop.", "config", configSource())
	<-ctx.Done()
	log.I("Shutdown signal received")

	return shutdown(setup, metricsServer, cfg.Services.ShutdownTimeout, log)
}

func startMetricsServer(cfg config.MetricsConfig, log *logger.Logger) *http.Server {
	registry := metrics.InitRegistry()

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.E("Metrics server error", "error", err)
		}
	}()
	log.I("Metrics enabled", "port", cfg.Port, "path", cfg.Path)
	return srv
}

// shutdown terminates the setup and the metrics server within timeout.
func shutdown(setup *orbit.Setup, metricsServer *http.Server, timeout time.Duration, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		setup.Terminate()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("shell teardown exceeded %s", timeout))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.I("Shell stopped")
	return nil
}
