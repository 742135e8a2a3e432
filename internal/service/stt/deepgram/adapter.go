// Package deepgram provides a Deepgram pre-recorded transcription adapter.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

const (
	// ProviderName is the registered name for the Deepgram backend.
	ProviderName = "deepgram"

	defaultURL     = "https://api.deepgram.com"
	defaultModel   = "nova-2"
	defaultTimeout = 60 * time.Second
	listenPath     = "/v1/listen"

	// maxErrorBody bounds how much of an error response ends up in logs.
	maxErrorBody = 512
)

// Config holds configuration for the Deepgram adapter.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Adapter implements stt.Recognizer against the Deepgram REST API.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New creates a Deepgram adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return ProviderName }

// Recognize posts the WAV file to /v1/listen and extracts the first
// alternative of the first channel.
func (a *Adapter) Recognize(ctx context.Context, clip *audio.Clip, language string) stt.Result {
	body, err := os.ReadFile(clip.Path)
	if err != nil {
		return stt.OtherError(fmt.Errorf("read audio file: %w", err))
	}

	q := url.Values{}
	q.Set("model", a.cfg.Model)
	if language != "" {
		q.Set("language", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL+listenPath+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return stt.OtherError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Token "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := a.client.Do(req)
	if err != nil {
		return stt.BackendError(fmt.Errorf("deepgram request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return stt.BackendError(fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var result listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return stt.BackendError(fmt.Errorf("decode deepgram response: %w", err))
	}

	text := strings.TrimSpace(result.transcript())
	if text == "" {
		return stt.NoSpeech()
	}
	return stt.OK(text)
}

// Warm opens a connection to the API host so TLS and keep-alive setup is
// paid before the next upload. Any HTTP response counts as reachable.
func (a *Adapter) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.cfg.URL+listenPath, nil)
	if err != nil {
		return fmt.Errorf("create warm request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("deepgram unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// Close drops the handle's pooled keep-alive connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// --- internal Deepgram API response types ---

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (r *listenResponse) transcript() string {
	if len(r.Results.Channels) == 0 {
		return ""
	}
	alts := r.Results.Channels[0].Alternatives
	if len(alts) == 0 {
		return ""
	}
	return alts[0].Transcript
}
