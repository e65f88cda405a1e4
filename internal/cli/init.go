// Package cli holds the initialization shared by the ffsync commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ffsync/internal/amqp"
	"ffsync/internal/backend"
	"ffsync/internal/config"
	"ffsync/internal/log"
	"ffsync/internal/metrics"
	"ffsync/internal/services"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger and makes it the slog default.
func SetupLogger(level string, out io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Overrides are command line values that win over the environment.
type Overrides struct {
	LayoutsFile string
	DryRun      bool
	Managers    []string
}

// App is a fully wired collector with the resources it owns.
type App struct {
	Config    *config.Config
	Layouts   *config.Layouts
	Backend   *backend.Result
	Writer    *services.BatchWriter
	Collector *services.Collector
	Publisher *amqp.Client
	Logger    *log.Logger
}

// NewApp opens the sheet backend, loads layouts and wires the collector.
// An unreachable broker disables report publishing instead of failing.
func NewApp(ctx context.Context, cfg *config.Config, ov Overrides, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	layoutsFile := cfg.LayoutsFile
	if ov.LayoutsFile != "" {
		layoutsFile = ov.LayoutsFile
	}
	layouts, err := config.LoadLayouts(layoutsFile)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(log.NewContext(ctx, logger), bcfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Layouts: layouts,
		Backend: res,
		Writer:  services.NewBatchWriter(res.Opener),
		Logger:  logger,
	}

	var publisher services.ReportPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without report publishing", log.FieldError, err)
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPRoutingKey)
			app.Publisher = client
			publisher = client
		}
	}

	fetchDelay := cfg.FetchDelay
	if cfg.MetricsTestMode {
		fetchDelay = 0
	}
	fetcher := metrics.New(cfg.XAPIBaseURL, metrics.WithTestMode(cfg.MetricsTestMode))

	app.Collector = services.NewCollector(res.Opener, app.Writer, fetcher, publisher, services.CollectorConfig{
		Roster:     layouts.Roster,
		Layouts:    layouts.Sheets,
		APIKeys:    cfg.XAPIKeys,
		DryRun:     cfg.DryRun || ov.DryRun,
		FetchDelay: fetchDelay,
		Managers:   ov.Managers,
	}, logger)

	logger.Info("Application wired",
		"backend", bcfg.Type.String(),
		"layouts", len(layouts.Sheets),
		log.FieldDryRun, cfg.DryRun || ov.DryRun,
		"metrics_test_mode", cfg.MetricsTestMode,
		"amqp_enabled", app.Publisher != nil)
	return app, nil
}

// Close releases the broker connection and the sheet backend.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
	}
	if err := a.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}
