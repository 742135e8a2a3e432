// Package mock provides a mock recognizer for development and tests without
// cloud credentials or a local model.
package mock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

// ProviderName is the registered name for the mock backend.
const ProviderName = "mock"

// DefaultTranscripts are returned in rotation when no fixed transcript is set.
var DefaultTranscripts = []string{
	"xin chào, tôi muốn hủy đăng ký",
	"vâng, làm ơn tiếp tục",
	"bạn có thể giúp tôi với tài khoản không",
	"tôi đã chờ hơn một giờ",
	"cảm ơn bạn rất nhiều",
}

// Options configure the mock behavior.
type Options struct {
	// Transcript, when set, is returned for every recognized clip.
	Transcript string
	// Fail forces a failure kind (KindBackendError or KindOtherError).
	Fail stt.Kind
	// Delay is applied to every Recognize call; honors ctx.
	Delay time.Duration
	// WarmDelay is applied to every Warm call. IgnoreCancel makes Warm sleep
	// through ctx cancellation, like a backend that does not honor deadlines.
	WarmDelay    time.Duration
	IgnoreCancel bool
	WarmErr      error
}

// Adapter implements stt.Recognizer with canned responses.
type Adapter struct {
	opts Options

	mu        sync.Mutex
	next      int
	recognize atomic.Int64
	warm      atomic.Int64
	closed    atomic.Int64
}

// New creates a mock recognizer.
func New(opts Options) *Adapter {
	return &Adapter{opts: opts}
}

// SetFailure changes the forced failure kind; KindOK clears it.
func (a *Adapter) SetFailure(k stt.Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.Fail = k
}

// Name returns the provider name.
func (a *Adapter) Name() string { return ProviderName }

// Recognize returns the configured transcript, or the next default one.
func (a *Adapter) Recognize(ctx context.Context, clip *audio.Clip, _ string) stt.Result {
	a.recognize.Add(1)

	if a.opts.Delay > 0 {
		select {
		case <-time.After(a.opts.Delay):
		case <-ctx.Done():
			return stt.BackendError(ctx.Err())
		}
	}

	a.mu.Lock()
	fail := a.opts.Fail
	text := a.opts.Transcript
	if text == "" {
		text = DefaultTranscripts[a.next%len(DefaultTranscripts)]
		a.next++
	}
	a.mu.Unlock()

	switch fail {
	case stt.KindBackendError:
		return stt.BackendError(errors.New("mock backend unavailable"))
	case stt.KindOtherError:
		return stt.OtherError(errors.New("mock processing failure"))
	case stt.KindNoSpeech:
		return stt.NoSpeech()
	}

	// digital silence carries no speech
	if clip == nil || clip.RMS() == 0 {
		return stt.NoSpeech()
	}
	return stt.OK(text)
}

// Warm simulates backend priming.
func (a *Adapter) Warm(ctx context.Context) error {
	a.warm.Add(1)
	if a.opts.WarmDelay > 0 {
		if a.opts.IgnoreCancel {
			time.Sleep(a.opts.WarmDelay)
		} else {
			select {
			case <-time.After(a.opts.WarmDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return a.opts.WarmErr
}

// RecognizeCalls returns how many times Recognize ran.
func (a *Adapter) RecognizeCalls() int64 { return a.recognize.Load() }

// WarmCalls returns how many times Warm ran.
func (a *Adapter) WarmCalls() int64 { return a.warm.Load() }

// Close records disposal of the handle owning this recognizer.
func (a *Adapter) Close() error {
	a.closed.Add(1)
	return nil
}

// CloseCalls returns how many times Close ran.
func (a *Adapter) CloseCalls() int64 { return a.closed.Load() }
