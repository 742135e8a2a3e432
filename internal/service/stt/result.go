package stt

import (
	"errors"
	"fmt"
)

// Kind classifies a recognition outcome.
type Kind int

const (
	// KindOK - speech was recognized.
	KindOK Kind = iota
	// KindNoSpeech - the audio contained no recognizable speech.
	KindNoSpeech
	// KindBackendError - the backend was unreachable or rejected the request.
	KindBackendError
	// KindOtherError - anything else went wrong while processing.
	KindOtherError
)

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoSpeech:
		return "no_speech"
	case KindBackendError:
		return "backend_error"
	case KindOtherError:
		return "other_error"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

var (
	ErrNoSpeech = errors.New("no speech detected")
	ErrBackend  = errors.New("recognition backend error")
)

// Result is the outcome of a Recognize call.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// OK returns a successful result.
func OK(text string) Result {
	return Result{Kind: KindOK, Text: text}
}

// NoSpeech returns a result for audio without speech.
func NoSpeech() Result {
	return Result{Kind: KindNoSpeech, Err: ErrNoSpeech}
}

// BackendError wraps err as a backend failure.
func BackendError(err error) Result {
	return Result{Kind: KindBackendError, Err: fmt.Errorf("%w: %v", ErrBackend, err)}
}

// OtherError wraps a processing failure that is not the backend's fault.
func OtherError(err error) Result {
	return Result{Kind: KindOtherError, Err: err}
}

// Transcript returns the recognized text, or "" for every non-OK kind.
func (r Result) Transcript() string {
	if r.Kind != KindOK {
		return ""
	}
	return r.Text
}
