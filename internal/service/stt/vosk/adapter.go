// Package vosk provides an adapter for a local Vosk recognition server
// speaking the vosk-server WebSocket protocol.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

const (
	// ProviderName is the registered name for the Vosk backend.
	ProviderName = "vosk"

	// chunkBytes is 250ms of 16kHz 16-bit mono audio.
	chunkBytes = 8000

	defaultDialTimeout = 5 * time.Second
)

// Config holds Vosk server configuration.
type Config struct {
	URL         string
	DialTimeout time.Duration
}

// Adapter implements stt.Recognizer against a vosk-server instance.
// Each Recognize call uses its own WebSocket session.
type Adapter struct {
	cfg    Config
	dialer *websocket.Dialer
}

type configMessage struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

// result covers both partial and final server messages.
type result struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// New creates a Vosk adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("vosk server URL is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Adapter{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return ProviderName }

// Recognize streams the clip to the server and collects every final text.
// Vosk models are single-language, so language is ignored.
func (a *Adapter) Recognize(ctx context.Context, clip *audio.Clip, _ string) stt.Result {
	conn, _, err := a.dialer.DialContext(ctx, a.cfg.URL, nil)
	if err != nil {
		return stt.BackendError(fmt.Errorf("connect to vosk server: %w", err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	mono := clip.Mono()
	var cfg configMessage
	cfg.Config.SampleRate = mono.SampleRate
	if err := conn.WriteJSON(cfg); err != nil {
		return stt.BackendError(fmt.Errorf("send vosk config: %w", err))
	}

	texts := make(chan []string, 1)
	readErr := make(chan error, 1)
	go func() {
		var finals []string
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					texts <- finals
					return
				}
				readErr <- err
				return
			}
			var r result
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			if t := strings.TrimSpace(r.Text); t != "" {
				finals = append(finals, t)
			}
		}
	}()

	pcm := mono.PCM16()
	for off := 0; off < len(pcm); off += chunkBytes {
		end := min(off+chunkBytes, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[off:end]); err != nil {
			return stt.BackendError(fmt.Errorf("send audio to vosk: %w", err))
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return stt.BackendError(fmt.Errorf("send eof to vosk: %w", err))
	}

	select {
	case finals := <-texts:
		if len(finals) == 0 {
			return stt.NoSpeech()
		}
		return stt.OK(strings.Join(finals, " "))
	case err := <-readErr:
		if ctx.Err() != nil {
			return stt.BackendError(fmt.Errorf("vosk recognition: %w", ctx.Err()))
		}
		return stt.BackendError(fmt.Errorf("read vosk result: %w", err))
	}
}

// Warm checks the server accepts WebSocket sessions.
func (a *Adapter) Warm(ctx context.Context) error {
	conn, _, err := a.dialer.DialContext(ctx, a.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("connect to vosk server: %w", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}
