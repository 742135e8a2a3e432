// Package stt defines the interface for speech-to-text recognizer backends
// and the tagged result every backend returns.
package stt

import (
	"context"

	"ai-speech-transcribe-service/internal/service/audio"
)

// Recognizer is a speech-to-text backend (Deepgram, Google, Vosk, a local
// command, etc.). Implementations must be safe for concurrent use: pooled
// handles share one backend.
type Recognizer interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Recognize transcribes a decoded clip. It never returns a Go error;
	// failures are carried in the Result kind.
	Recognize(ctx context.Context, clip *audio.Clip, language string) Result

	// Warm primes the backend (connections, binaries, model load) so the
	// next Recognize does not pay a cold start.
	Warm(ctx context.Context) error
}
