package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/cchalm/cloudops-assistant/internal/invoker"
	"github.com/cchalm/cloudops-assistant/internal/logger"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
	"github.com/cchalm/cloudops-assistant/internal/telemetry"
	"github.com/sirupsen/logrus"
)

func setupContext(log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Info("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		log.Error("Forcing shutdown")
		os.Exit(1)
	}()

	return ctx, cancel
}

// newLogger logs to stderr so it never interleaves with the chat transcript on stdout
func newLogger(ctx context.Context) *logger.Logger {
	return logger.NewLogger(ctx, cfg.LogLevel, cfg.LogJSON, os.Stderr)
}

func createTelemetryProvider(ctx context.Context) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.TelemetryConfig{
		Enabled:        cfg.TelemetryEnabled,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       true,
		ServiceVersion: versionInfo.Version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}

// deps bundles what every command that talks to the remote function needs
type deps struct {
	ctx       context.Context
	log       *logger.Logger
	metrics   *metrics.Recorder
	invoker   *invoker.Invoker
	telemetry *telemetry.Provider
	cancel    context.CancelFunc
}

func setupRuntime() (*deps, error) {
	log := newLogger(context.Background())
	ctx, cancel := setupContext(log)

	tp, err := createTelemetryProvider(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	recorder := metrics.NewRecorder()

	inv, err := invoker.NewFromConfig(ctx, cfg,
		invoker.WithTracer(tp.Tracer()),
		invoker.WithMetrics(recorder),
		invoker.WithLogger(log),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	log.Debug("configured remote function", logrus.Fields{
		"endpoint":  inv.Endpoint(),
		"region":    cfg.Region,
		"telemetry": tp.Enabled(),
	})
	return &deps{ctx: ctx, log: log, metrics: recorder, invoker: inv, telemetry: tp, cancel: cancel}, nil
}

func (r *deps) close() {
	// The run context may already be cancelled; flushing spans gets its own
	if err := r.telemetry.Shutdown(context.Background()); err != nil {
		r.log.Warn("failed to shut down telemetry", logrus.Fields{"error": err.Error()})
	}
	r.cancel()
}
