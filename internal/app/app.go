// Package app wires the service components together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-transcribe-service/internal/config"
	"ai-speech-transcribe-service/internal/events"
	"ai-speech-transcribe-service/internal/observability/logging"
	"ai-speech-transcribe-service/internal/observability/metrics"
	"ai-speech-transcribe-service/internal/schema"
	"ai-speech-transcribe-service/internal/service/activity"
	"ai-speech-transcribe-service/internal/service/keepalive"
	"ai-speech-transcribe-service/internal/service/pool"
	"ai-speech-transcribe-service/internal/service/scratch"
	"ai-speech-transcribe-service/internal/service/stt/backend"
	"ai-speech-transcribe-service/internal/service/transcription"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Metrics     *metrics.Metrics

	Backend   *backend.Backend
	Pool      *pool.Pool
	Store     *scratch.Store
	Publisher *events.Publisher
	Service   *transcription.Service
	Clock     *activity.Clock
	Keepalive *keepalive.Loop

	ready  atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds every component from cfg. A nil m uses the default metrics.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Application, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	a := &Application{Cfg: cfg, Metrics: m}
	a.setupLogger()

	appLogger := a.Logger.With().Str("method", "New").Logger()

	b, err := backend.New(ctx, cfg.STT)
	if err != nil {
		return nil, fmt.Errorf("configure stt backend: %w", err)
	}
	a.Backend = b

	store, err := scratch.New(cfg.Upload.TempDir, m)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	a.Store = store

	a.Pool = pool.New(pool.Config{
		InitialSize:        cfg.Pool.InitialSize,
		MaxSize:            cfg.Pool.MaxSize,
		CalibrationTimeout: cfg.Pool.CalibrationTimeout,
		EnergyThreshold:    cfg.Pool.EnergyThreshold,
	}, b, m)

	a.Publisher = events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	}, m)

	a.Service = transcription.New(transcription.Config{
		Language: cfg.STT.LanguageCode,
		Timeout:  cfg.STT.Timeout,
	}, a.Pool, store, a.Publisher, schema.New(), m)

	a.Clock = activity.NewClock()
	a.Keepalive = keepalive.New(keepalive.Config{
		Interval:      cfg.Keepalive.Interval,
		IdleThreshold: cfg.Keepalive.IdleThreshold,
	}, a.Pool, a.Service, a.Clock, m)

	appLogger.Info().
		Str("sttProvider", b.Provider()).
		Str("tempDir", store.Dir()).
		Msg("AI Speech Transcribe service application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.Cfg.Observability.LogLevel
	logCfg.Format = a.Cfg.Observability.LogFormat
	logging.Init(logCfg)

	a.Logger = logging.WithComponent("application").With().
		Str("service", "ai-speech-transcribe-service").
		Logger()

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("logFormat", logCfg.Format).
		Msg("Logger setup completed")
}

// Start warms the pool and launches the keepalive loop. The service reports
// ready once the startup warm-up has finished.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().Str("method", "Start").Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("AI Speech Transcribe service starting")

	report := a.Pool.WarmUpAll(ctx, pool.TriggerStartup)
	if err := ctx.Err(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.Cfg.Keepalive.Enabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Keepalive.Run(loopCtx)
		}()
	}

	a.ready.Store(true)
	startLogger.Info().
		Int("poolSize", a.Pool.Len()).
		Int("calibrated", report.Calibrated).
		Bool("keepalive", a.Cfg.Keepalive.Enabled).
		Msg("AI Speech Transcribe service ready")
	return nil
}

// Ready reports whether Start has completed and Shutdown has not begun.
func (a *Application) Ready() bool { return a.ready.Load() }

// Shutdown stops the keepalive loop and releases backend resources. Call it
// after the HTTP server has drained.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().Str("method", "Shutdown").Logger()
	shutdownLogger.Info().Msg("AI Speech Transcribe service shutting down")

	a.ready.Store(false)
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.Pool.Close()
	if err := a.Backend.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Error closing STT backend")
	}
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Error closing event publisher")
	}
}
