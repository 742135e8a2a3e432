// Package http exposes the transcription service over HTTP.
package http

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ai-speech-transcribe-service/internal/app"
	"ai-speech-transcribe-service/internal/models"
	"ai-speech-transcribe-service/internal/observability"
	"ai-speech-transcribe-service/internal/service/pool"
)

// AudioField is the multipart field carrying the upload.
const AudioField = "audio_data"

// multipartOverhead is the allowance for boundaries, part headers and other
// form fields on top of the file size cap.
const multipartOverhead = 4 << 10

//go:embed static/index.html
var static embed.FS

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := &handlers{app: application}
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.HTTPMiddleware(application.Metrics))
	r.Use(middleware.Recoverer)

	// Health endpoints; probes do not count as activity.
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Get("/", h.index)
	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.ping)
		r.Get("/wakeup", h.wakeup)
		r.Post("/transcribe", h.transcribe)
	})

	return r
}

type handlers struct {
	app *app.Application
}

func (h *handlers) index(w http.ResponseWriter, _ *http.Request) {
	h.app.Clock.Touch()
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	last := h.app.Clock.Last()
	h.app.Clock.Touch()

	writeJSON(w, http.StatusOK, models.PingResponse{
		Status:       "ok",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		PoolSize:     h.app.Pool.Len(),
		Threads:      runtime.NumGoroutine(),
		LastActivity: last.UTC().Format(time.RFC3339),
	})
}

func (h *handlers) wakeup(w http.ResponseWriter, r *http.Request) {
	h.app.Clock.Touch()
	report := h.app.Pool.WarmUpAll(r.Context(), pool.TriggerWakeup)

	writeJSON(w, http.StatusOK, models.WakeupResponse{
		Status:     "warmed",
		PoolSize:   h.app.Pool.Len(),
		Calibrated: report.Calibrated,
		Failed:     report.Failed,
		TimedOut:   report.TimedOut,
	})
}

func (h *handlers) transcribe(w http.ResponseWriter, r *http.Request) {
	h.app.Clock.Touch()
	requestID := middleware.GetReqID(r.Context())
	maxBytes := h.app.Cfg.Upload.MaxBytes

	if r.ContentLength > maxBytes+multipartOverhead {
		writeTooLarge(w, maxBytes)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	part, err := audioPart(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeTooLarge(w, maxBytes)
			return
		}
		log.Info().Str("requestId", requestID).Err(err).Msg("Rejected upload")
		writeJSON(w, http.StatusBadRequest, models.TranscribeResponse{Error: err.Error()})
		return
	}
	defer part.Close()

	out := h.app.Service.Transcribe(r.Context(), requestID, &cappedReader{r: part, limit: maxBytes})

	var mbe *http.MaxBytesError
	if errors.As(out.Err, &mbe) {
		writeTooLarge(w, maxBytes)
		return
	}
	writeJSON(w, out.Status, models.TranscribeResponse{
		Transcript: out.Transcript,
		Error:      out.Error,
	})
}

var (
	errNoFile       = errors.New("no audio file provided")
	errNoFileName   = errors.New("no file selected")
	errNotWav       = errors.New("only .wav files are supported")
	errNotMultipart = errors.New("request must be multipart/form-data")
)

// audioPart streams the multipart body up to the audio field and validates
// its file name, so nothing is buffered before the extension check.
func audioPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errNotMultipart
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFile
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, err
			}
			return nil, fmt.Errorf("read multipart body: %w", err)
		}
		if part.FormName() != AudioField {
			part.Close()
			continue
		}

		name := part.FileName()
		switch {
		case name == "":
			part.Close()
			return nil, errNoFileName
		case !strings.EqualFold(filepath.Ext(name), ".wav"):
			part.Close()
			return nil, errNotWav
		}
		return part, nil
	}
}

// cappedReader fails with *http.MaxBytesError once more than limit bytes of
// the file itself have been read.
type cappedReader struct {
	r     io.Reader
	limit int64
	n     int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.limit {
		return n, &http.MaxBytesError{Limit: c.limit}
	}
	return n, err
}

func writeTooLarge(w http.ResponseWriter, maxBytes int64) {
	writeJSON(w, http.StatusRequestEntityTooLarge, models.TranscribeResponse{
		Error: fmt.Sprintf("file exceeds the %d byte upload limit", maxBytes),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
