// Package keepalive re-warms the recognizer pool after a period without
// requests so the next caller does not pay a cold start.
package keepalive

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"ai-speech-transcribe-service/internal/observability/metrics"
	"ai-speech-transcribe-service/internal/service/pool"
	"ai-speech-transcribe-service/internal/service/transcription"
)

// Keepalive cycle actions, used as metric labels.
const (
	ActionSkipped = "skipped"
	ActionWarmed  = "warmed"
)

// Warmer warms every pooled handle.
type Warmer interface {
	WarmUpAll(ctx context.Context, trigger string) pool.WarmReport
}

// Simulator pushes one internal request through the request path.
type Simulator interface {
	Simulate(ctx context.Context) transcription.Outcome
}

// IdleClock reports time since the last request.
type IdleClock interface {
	IdleFor() time.Duration
}

// Config controls the loop cadence.
type Config struct {
	Interval      time.Duration
	IdleThreshold time.Duration
}

// Loop is the background keepalive task.
type Loop struct {
	cfg       Config
	warmer    Warmer
	simulator Simulator
	clock     IdleClock
	metrics   *metrics.Metrics
}

// New creates a loop. It does not start until Run is called.
func New(cfg Config, warmer Warmer, simulator Simulator, clock IdleClock, m *metrics.Metrics) *Loop {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Loop{
		cfg:       cfg,
		warmer:    warmer,
		simulator: simulator,
		clock:     clock,
		metrics:   m,
	}
}

// Run sleeps for the interval, checks idleness and warms when idle, until
// ctx is cancelled. Cancellation is observed at every sleep.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", l.cfg.Interval).
		Dur("idleThreshold", l.cfg.IdleThreshold).
		Msg("Keepalive loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Keepalive loop stopped")
			return
		case <-ticker.C:
			l.Check(ctx)
		}
	}
}

// Check runs one cycle and reports whether a warm-up happened.
func (l *Loop) Check(ctx context.Context) bool {
	idle := l.clock.IdleFor()
	if idle <= l.cfg.IdleThreshold {
		l.metrics.RecordKeepalive(ActionSkipped)
		log.Debug().Dur("idleFor", idle).Msg("Keepalive check, service active")
		return false
	}

	log.Info().Dur("idleFor", idle).Msg("Service idle, warming recognizer pool")
	report := l.warmer.WarmUpAll(ctx, pool.TriggerKeepalive)
	if ctx.Err() != nil {
		return true
	}
	out := l.simulator.Simulate(ctx)

	l.metrics.RecordKeepalive(ActionWarmed)
	log.Info().
		Int("calibrated", report.Calibrated).
		Int("failed", report.Failed+report.TimedOut).
		Int("simulatedStatus", out.Status).
		Dur("simulatedDuration", out.Duration).
		Msg("Keepalive warm-up completed")
	return true
}
