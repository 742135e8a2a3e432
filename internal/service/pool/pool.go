// Package pool maintains a bounded set of reusable recognizer handles shared
// by concurrent requests.
//
// Acquire never blocks: an empty pool constructs an overflow handle. Release
// only keeps a handle while the pool is below its maximum size; surplus
// handles are closed so overflow bursts do not accumulate backend resources.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ai-speech-transcribe-service/internal/observability/metrics"
	"ai-speech-transcribe-service/internal/service/stt"
)

// Warm-up triggers, used as metric labels.
const (
	TriggerStartup   = "startup"
	TriggerKeepalive = "keepalive"
	TriggerWakeup    = "wakeup"
)

// Factory builds the recognizer for a new handle.
type Factory interface {
	Provider() string
	NewRecognizer() stt.Recognizer
}

// Config sizes the pool.
type Config struct {
	InitialSize        int
	MaxSize            int
	CalibrationTimeout time.Duration
	EnergyThreshold    float64
}

// WarmReport summarizes one WarmUpAll pass.
type WarmReport struct {
	Handles    int
	Calibrated int
	Failed     int
	TimedOut   int
	Duration   time.Duration
}

// Pool is a mutex-guarded bounded deque of idle handles.
type Pool struct {
	cfg     Config
	factory Factory
	metrics *metrics.Metrics

	mu   sync.Mutex
	idle []*Handle

	live atomic.Int64
}

// New creates the pool with cfg.InitialSize idle handles. Warm-up is left to
// the caller.
func New(cfg Config, factory Factory, m *metrics.Metrics) *Pool {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg.MaxSize < 1 {
		cfg.MaxSize = 1
	}
	if cfg.InitialSize > cfg.MaxSize {
		cfg.InitialSize = cfg.MaxSize
	}
	if cfg.InitialSize < 0 {
		cfg.InitialSize = 0
	}

	p := &Pool{
		cfg:     cfg,
		factory: factory,
		metrics: m,
		idle:    make([]*Handle, 0, cfg.MaxSize),
	}
	for i := 0; i < cfg.InitialSize; i++ {
		p.idle = append(p.idle, p.newHandle("initial"))
	}
	m.PoolIdleHandles.Set(float64(len(p.idle)))

	log.Info().
		Int("initialSize", cfg.InitialSize).
		Int("maxSize", cfg.MaxSize).
		Str("sttProvider", factory.Provider()).
		Msg("Recognizer pool created")
	return p
}

func (p *Pool) newHandle(reason string) *Handle {
	p.live.Add(1)
	p.metrics.RecordHandleCreated(reason)
	return newHandle(p.factory.NewRecognizer(), p.cfg.EnergyThreshold, func() { p.live.Add(-1) })
}

// Acquire removes and returns the first idle handle, or constructs an
// overflow handle when none is idle.
func (p *Pool) Acquire() *Handle {
	p.mu.Lock()
	if len(p.idle) > 0 {
		h := p.idle[0]
		p.idle[0] = nil
		p.idle = p.idle[1:]
		idle := len(p.idle)
		p.mu.Unlock()
		p.metrics.RecordAcquire("pooled", idle)
		return h
	}
	p.mu.Unlock()

	// Construction happens outside the lock; backends may dial.
	h := p.newHandle("overflow")
	p.metrics.RecordAcquire("overflow", 0)
	log.Debug().Str("handleId", h.ID()).Msg("Pool empty, created overflow handle")
	return h
}

// Release returns h to the pool if there is room; otherwise h is closed.
func (p *Pool) Release(h *Handle) {
	if h == nil || h.Closed() {
		return
	}

	p.mu.Lock()
	for _, idle := range p.idle {
		if idle == h {
			p.mu.Unlock()
			log.Warn().Str("handleId", h.ID()).Msg("Handle released twice, ignoring")
			return
		}
	}
	if len(p.idle) < p.cfg.MaxSize {
		p.idle = append(p.idle, h)
		idle := len(p.idle)
		p.mu.Unlock()
		p.metrics.RecordRelease(false, idle)
		return
	}
	idle := len(p.idle)
	p.mu.Unlock()

	if err := h.Close(); err != nil {
		log.Warn().Err(err).Str("handleId", h.ID()).Msg("Error closing surplus handle")
	}
	p.metrics.RecordRelease(true, idle)
	log.Debug().Str("handleId", h.ID()).Msg("Pool full, surplus handle disposed")
}

// WarmUpAll calibrates every idle handle concurrently. Each calibration is
// bounded by the calibration timeout even when the backend ignores ctx, so
// the pass takes roughly one timeout regardless of pool size. Failures are
// logged and swallowed.
func (p *Pool) WarmUpAll(ctx context.Context, trigger string) WarmReport {
	start := time.Now()

	p.mu.Lock()
	snapshot := make([]*Handle, len(p.idle))
	copy(snapshot, p.idle)
	p.mu.Unlock()

	p.metrics.RecordWarmup(trigger)

	var calibrated, failed, timedOut atomic.Int64
	var g errgroup.Group
	for _, h := range snapshot {
		h := h // per-iteration copy; go1.21 lacks per-iteration loop variables
		g.Go(func() error {
			hctx, cancel := context.WithTimeout(ctx, p.cfg.CalibrationTimeout)
			defer cancel()

			began := time.Now()
			done := make(chan error, 1)
			go func() { done <- h.Calibrate(hctx) }()

			var err error
			select {
			case err = <-done:
			case <-hctx.Done():
				err = hctx.Err()
			}
			secs := time.Since(began).Seconds()

			switch {
			case err == nil:
				calibrated.Add(1)
				p.metrics.RecordCalibration(secs, "")
			case errors.Is(err, context.DeadlineExceeded):
				timedOut.Add(1)
				p.metrics.RecordCalibration(secs, "timeout")
				log.Warn().Str("handleId", h.ID()).Str("trigger", trigger).
					Dur("timeout", p.cfg.CalibrationTimeout).Msg("Handle calibration timed out")
			default:
				failed.Add(1)
				p.metrics.RecordCalibration(secs, "error")
				log.Warn().Err(err).Str("handleId", h.ID()).Str("trigger", trigger).
					Msg("Handle calibration failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	report := WarmReport{
		Handles:    len(snapshot),
		Calibrated: int(calibrated.Load()),
		Failed:     int(failed.Load()),
		TimedOut:   int(timedOut.Load()),
		Duration:   time.Since(start),
	}
	log.Info().
		Str("trigger", trigger).
		Int("handles", report.Handles).
		Int("calibrated", report.Calibrated).
		Int("failed", report.Failed).
		Int("timedOut", report.TimedOut).
		Dur("duration", report.Duration).
		Msg("Pool warm-up completed")
	return report
}

// Len returns the number of idle handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Max returns the configured maximum size.
func (p *Pool) Max() int { return p.cfg.MaxSize }

// Live returns the number of handles constructed and not yet closed,
// leased or idle.
func (p *Pool) Live() int { return int(p.live.Load()) }

// Provider returns the backend name.
func (p *Pool) Provider() string { return p.factory.Provider() }

// Close disposes every idle handle. Call it after in-flight requests have
// drained.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, h := range idle {
		if err := h.Close(); err != nil {
			log.Warn().Err(err).Str("handleId", h.ID()).Msg("Error closing handle")
		}
	}
	p.metrics.PoolIdleHandles.Set(0)
}
