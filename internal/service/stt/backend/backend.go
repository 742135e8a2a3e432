// Package backend builds recognizers for the configured STT provider.
package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"ai-speech-transcribe-service/internal/config"
	"ai-speech-transcribe-service/internal/service/stt"
	"ai-speech-transcribe-service/internal/service/stt/command"
	"ai-speech-transcribe-service/internal/service/stt/deepgram"
	"ai-speech-transcribe-service/internal/service/stt/google"
	"ai-speech-transcribe-service/internal/service/stt/mock"
	"ai-speech-transcribe-service/internal/service/stt/vosk"
)

// Backend produces one recognizer per pool handle.
type Backend struct {
	provider string
	newFunc  func() stt.Recognizer
	closer   func() error
}

// shared hides Close so a handle cannot tear down a client other
// handles still use.
type shared struct {
	stt.Recognizer
}

// New validates the provider configuration and prepares a Backend.
// Provider-wide clients (the Google gRPC connection) are created here so
// credential problems fail startup rather than the first request.
func New(ctx context.Context, cfg config.STTConfig) (*Backend, error) {
	b := &Backend{provider: cfg.Provider, closer: func() error { return nil }}

	switch cfg.Provider {
	case mock.ProviderName, "":
		b.provider = mock.ProviderName
		b.newFunc = func() stt.Recognizer { return mock.New(mock.Options{}) }

	case deepgram.ProviderName:
		dcfg := deepgram.Config{
			URL:     cfg.APIURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.ResolvedModel(),
			Timeout: cfg.Timeout,
		}
		if _, err := deepgram.New(dcfg); err != nil {
			return nil, err
		}
		b.newFunc = func() stt.Recognizer {
			a, _ := deepgram.New(dcfg)
			return a
		}

	case google.ProviderName:
		client, err := google.New(ctx, googleConfig(cfg))
		if err != nil {
			return nil, err
		}
		b.newFunc = func() stt.Recognizer { return shared{client} }
		b.closer = client.Close

	case vosk.ProviderName:
		vcfg := vosk.Config{URL: cfg.VoskURL}
		if _, err := vosk.New(vcfg); err != nil {
			return nil, err
		}
		b.newFunc = func() stt.Recognizer {
			a, _ := vosk.New(vcfg)
			return a
		}

	case command.ProviderName:
		if _, err := command.New(cfg.Command); err != nil {
			return nil, err
		}
		b.newFunc = func() stt.Recognizer {
			a, _ := command.New(cfg.Command)
			return a
		}

	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}

	log.Info().
		Str("sttProvider", b.provider).
		Str("language", cfg.LanguageCode).
		Msg("STT backend configured")
	return b, nil
}

// FromFactory wraps an existing constructor, mainly for tests.
func FromFactory(provider string, fn func() stt.Recognizer) *Backend {
	return &Backend{provider: provider, newFunc: fn, closer: func() error { return nil }}
}

// Provider returns the configured provider name.
func (b *Backend) Provider() string { return b.provider }

// NewRecognizer constructs a recognizer for a new handle.
func (b *Backend) NewRecognizer() stt.Recognizer { return b.newFunc() }

// Close releases provider-wide resources.
func (b *Backend) Close() error { return b.closer() }

func googleConfig(cfg config.STTConfig) google.Config {
	gcfg := google.DefaultConfig()
	if m := cfg.ResolvedModel(); m != "" {
		gcfg.Model = m
	}
	if cfg.LanguageCode != "" {
		gcfg.Language = cfg.LanguageCode
	}
	return gcfg
}
