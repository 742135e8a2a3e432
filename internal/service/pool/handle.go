package pool

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

var errNilClip = errors.New("no audio clip")

// Handle is one reusable recognition context. Handles are interchangeable;
// the pool hands out whichever is first available.
type Handle struct {
	id              string
	recognizer      stt.Recognizer
	energyThreshold float64

	mu           sync.Mutex
	calibratedAt time.Time
	calibrations int

	closed atomic.Bool
	onFree func()
}

func newHandle(r stt.Recognizer, energyThreshold float64, onFree func()) *Handle {
	return &Handle{
		id:              uuid.NewString(),
		recognizer:      r,
		energyThreshold: energyThreshold,
		onFree:          onFree,
	}
}

// ID returns the handle identifier used in logs.
func (h *Handle) ID() string { return h.id }

// Provider returns the backend name behind the handle.
func (h *Handle) Provider() string { return h.recognizer.Name() }

// EnergyThreshold returns the RMS level below which a clip is treated as silence.
func (h *Handle) EnergyThreshold() float64 { return h.energyThreshold }

// Calibrate primes the backend. A failed calibration leaves the handle usable.
func (h *Handle) Calibrate(ctx context.Context) error {
	if err := h.recognizer.Warm(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.calibratedAt = time.Now()
	h.calibrations++
	h.mu.Unlock()
	return nil
}

// CalibratedAt returns the time of the last successful calibration and how
// many have succeeded.
func (h *Handle) CalibratedAt() (time.Time, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calibratedAt, h.calibrations
}

// Transcribe recognizes clip. With a positive energy threshold, clips quieter
// than it are reported as no speech without a backend call; a zero threshold
// sends every clip to the backend.
func (h *Handle) Transcribe(ctx context.Context, clip *audio.Clip, language string) stt.Result {
	if clip == nil {
		return stt.OtherError(errNilClip)
	}
	if h.energyThreshold > 0 && clip.RMS() < h.energyThreshold {
		return stt.NoSpeech()
	}
	return h.recognizer.Recognize(ctx, clip, language)
}

// Close disposes the handle. Safe to call more than once.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.onFree != nil {
		h.onFree()
	}
	if c, ok := h.recognizer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Closed reports whether the handle has been disposed.
func (h *Handle) Closed() bool { return h.closed.Load() }
