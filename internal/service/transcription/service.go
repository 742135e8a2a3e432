// Package transcription runs one uploaded file through scratch storage, the
// recognizer pool and a backend, and maps the result to an HTTP outcome.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"ai-speech-transcribe-service/internal/models"
	"ai-speech-transcribe-service/internal/observability/logging"
	"ai-speech-transcribe-service/internal/observability/metrics"
	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/pool"
	"ai-speech-transcribe-service/internal/service/request"
	"ai-speech-transcribe-service/internal/service/scratch"
	"ai-speech-transcribe-service/internal/service/stt"
)

// Transcript markers returned in place of text when recognition fails.
const (
	MarkerBackendError    = "[speech service error]"
	MarkerProcessingError = "[processing error]"
)

const (
	defaultTimeout      = 30 * time.Second
	publishTimeout      = 2 * time.Second
	simulateSampleRate  = 16000
	simulateClipSeconds = 1
)

// Publisher sends outcome events.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, event any) error
}

// Validator checks events before they are published.
type Validator interface {
	Validate(event any) error
}

// Config holds per-request settings.
type Config struct {
	Language string
	// Timeout bounds a single backend call.
	Timeout time.Duration
}

// Outcome is the HTTP-facing result of one request.
type Outcome struct {
	RequestID  string
	Status     int
	Transcript string
	// Error is a client-safe description; empty on success and no speech.
	Error    string
	Kind     stt.Kind
	Err      error
	Bytes    int64
	Duration time.Duration
}

// Service wires scratch storage, the pool and event publishing together.
type Service struct {
	cfg       Config
	pool      *pool.Pool
	store     *scratch.Store
	publisher Publisher
	validator Validator
	metrics   *metrics.Metrics
}

// New creates the service. publisher and validator may be nil.
func New(cfg Config, p *pool.Pool, store *scratch.Store, publisher Publisher, validator Validator, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Service{
		cfg:       cfg,
		pool:      p,
		store:     store,
		publisher: publisher,
		validator: validator,
		metrics:   m,
	}
}

// Transcribe processes body as a WAV upload. The leased handle is always
// returned to the pool and the scratch file always removed.
func (s *Service) Transcribe(ctx context.Context, requestID string, body io.Reader) Outcome {
	return s.run(ctx, request.New(requestID), body, false)
}

// Simulate pushes one second of silence through the full request path so
// request-scoped setup stays warm while the service is idle.
func (s *Service) Simulate(ctx context.Context) Outcome {
	rc := request.New("keepalive-" + uuid.NewString())

	f, err := os.CreateTemp(s.store.Dir(), "keepalive-*.wav")
	if err != nil {
		return s.finish(rc, Outcome{
			Status: http.StatusInternalServerError,
			Kind:   stt.KindOtherError,
			Err:    fmt.Errorf("create simulated upload: %w", err),
			Error:  "internal error",
		}, true)
	}
	defer s.store.Remove(f.Name())
	defer f.Close()

	if err := audio.WriteSilence(f, simulateSampleRate, simulateClipSeconds*time.Second); err != nil {
		return s.finish(rc, Outcome{
			Status: http.StatusInternalServerError,
			Kind:   stt.KindOtherError,
			Err:    err,
			Error:  "internal error",
		}, true)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return s.finish(rc, Outcome{
			Status: http.StatusInternalServerError,
			Kind:   stt.KindOtherError,
			Err:    fmt.Errorf("rewind simulated upload: %w", err),
			Error:  "internal error",
		}, true)
	}
	return s.run(ctx, rc, f, true)
}

func (s *Service) run(ctx context.Context, rc *request.Context, body io.Reader, simulated bool) Outcome {
	logger := logging.WithRequest(rc.ID())

	path, n, err := s.store.Save(body, ".wav")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store upload")
		return s.finish(rc, Outcome{
			Status: http.StatusInternalServerError,
			Kind:   stt.KindOtherError,
			Err:    err,
			Error:  "failed to store upload",
			Bytes:  n,
		}, simulated)
	}
	defer s.store.Remove(path)
	if err := rc.Stored(path); err != nil {
		logger.Warn().Err(err).Msg("Request state out of order")
	}

	res, handleID, clipDuration := s.recognize(ctx, rc, path)

	out := Outcome{Kind: res.Kind, Err: res.Err, Bytes: n}
	switch res.Kind {
	case stt.KindOK:
		out.Status = http.StatusOK
		out.Transcript = res.Text
	case stt.KindNoSpeech:
		out.Status = http.StatusOK
	case stt.KindBackendError:
		out.Status = http.StatusServiceUnavailable
		out.Transcript = MarkerBackendError
		out.Error = "speech recognition service unavailable"
	default:
		out.Status = http.StatusInternalServerError
		out.Transcript = MarkerProcessingError
		out.Error = "audio could not be processed"
	}

	out = s.finish(rc, out, simulated)
	s.publish(ctx, rc, out, handleID, clipDuration, simulated)
	return out
}

// recognize holds a pool handle for exactly the duration of decode and
// recognition. A panicking backend is reported as a processing error.
func (s *Service) recognize(ctx context.Context, rc *request.Context, path string) (res stt.Result, handleID string, clipDuration time.Duration) {
	h := s.pool.Acquire()
	defer s.pool.Release(h)
	handleID = h.ID()
	logger := logging.WithHandle(rc.ID(), handleID, h.Provider())

	if err := rc.Lease(h); err != nil {
		logger.Warn().Err(err).Msg("Request state out of order")
	}
	defer rc.Release()
	defer func() {
		if r := recover(); r != nil {
			res = stt.OtherError(fmt.Errorf("recognizer panic: %v", r))
		}
	}()

	clip, err := audio.Load(path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decode upload")
		return stt.OtherError(err), handleID, 0
	}
	clipDuration = clip.Duration()

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res = h.Transcribe(rctx, clip, s.cfg.Language)
	if res.Kind == stt.KindBackendError && errors.Is(rctx.Err(), context.DeadlineExceeded) {
		logger.Warn().Dur("timeout", s.cfg.Timeout).Msg("Recognition timed out")
	}
	return res, handleID, clipDuration
}

func (s *Service) finish(rc *request.Context, out Outcome, simulated bool) Outcome {
	out.RequestID = rc.ID()
	out.Duration = rc.Elapsed()
	logger := logging.WithRequest(rc.ID())
	if err := rc.Complete(out.Status, out.Transcript); err != nil {
		logger.Error().Err(err).Msg("Request completed out of order")
	}

	s.metrics.RecordTranscription(s.pool.Provider(), out.Kind.String(), out.Duration.Seconds())

	evt := logger.Info()
	if out.Status >= http.StatusInternalServerError {
		evt = logger.Error().Err(out.Err)
	}
	evt.
		Int("status", out.Status).
		Str("outcome", out.Kind.String()).
		Int64("bytes", out.Bytes).
		Int("transcriptLength", len(out.Transcript)).
		Bool("simulated", simulated).
		Dur("duration", out.Duration).
		Msg("Transcription request completed")
	return out
}

func (s *Service) publish(ctx context.Context, rc *request.Context, out Outcome, handleID string, clipDuration time.Duration, simulated bool) {
	if s.publisher == nil {
		return
	}
	logger := logging.WithRequest(rc.ID())

	event := models.TranscriptionCompleted{
		EventType:        models.EventTypeTranscriptionCompleted,
		RequestID:        rc.ID(),
		HandleID:         handleID,
		Provider:         s.pool.Provider(),
		Language:         s.cfg.Language,
		Outcome:          out.Kind.String(),
		Status:           out.Status,
		AudioBytes:       out.Bytes,
		AudioDurationMs:  clipDuration.Milliseconds(),
		ProcessingMs:     out.Duration.Milliseconds(),
		TranscriptLength: len(out.Transcript),
		Simulated:        simulated,
		Timestamp:        time.Now().UnixMilli(),
	}
	if out.Kind != stt.KindOK {
		event.TranscriptLength = 0
	}

	if s.validator != nil {
		if err := s.validator.Validate(event); err != nil {
			logger.Error().Err(err).Msg("Dropping invalid transcription event")
			return
		}
	}

	// Published even when the client has disconnected.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, event.EventType, rc.ID(), event); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish transcription event")
	}
}
