package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

func speechClip() *audio.Clip {
	return &audio.Clip{SampleRate: 16000, Channels: 1, BitDepth: 16, Samples: audio.Tone(16000, 300, 6000, 1600)}
}

func TestAdapter_FixedTranscript(t *testing.T) {
	a := New(Options{Transcript: "hello"})

	r := a.Recognize(context.Background(), speechClip(), "en")
	if r.Kind != stt.KindOK {
		t.Fatalf("expected OK, got %v (%v)", r.Kind, r.Err)
	}
	if r.Text != "hello" {
		t.Errorf("expected 'hello', got %q", r.Text)
	}
	if a.Name() != ProviderName {
		t.Errorf("expected name %s, got %s", ProviderName, a.Name())
	}
}

func TestAdapter_CyclesThroughTranscripts(t *testing.T) {
	a := New(Options{})

	first := a.Recognize(context.Background(), speechClip(), "vi").Text
	second := a.Recognize(context.Background(), speechClip(), "vi").Text

	if first != DefaultTranscripts[0] || second != DefaultTranscripts[1] {
		t.Errorf("expected rotation through defaults, got %q then %q", first, second)
	}
}

func TestAdapter_EmptyClipIsNoSpeech(t *testing.T) {
	a := New(Options{Transcript: "ignored"})

	r := a.Recognize(context.Background(), &audio.Clip{}, "vi")
	if r.Kind != stt.KindNoSpeech {
		t.Errorf("expected NoSpeech, got %v", r.Kind)
	}
}

func TestAdapter_ForcedFailures(t *testing.T) {
	tests := []struct {
		name string
		kind stt.Kind
	}{
		{"backend", stt.KindBackendError},
		{"other", stt.KindOtherError},
		{"no speech", stt.KindNoSpeech},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Options{Fail: tt.kind})
			if r := a.Recognize(context.Background(), speechClip(), "vi"); r.Kind != tt.kind {
				t.Errorf("expected %v, got %v", tt.kind, r.Kind)
			}
		})
	}
}

func TestAdapter_SetFailureClears(t *testing.T) {
	a := New(Options{Fail: stt.KindBackendError, Transcript: "ok"})
	a.SetFailure(stt.KindOK)

	if r := a.Recognize(context.Background(), speechClip(), "vi"); r.Kind != stt.KindOK {
		t.Errorf("expected OK after clearing failure, got %v", r.Kind)
	}
}

func TestAdapter_RecognizeHonorsContext(t *testing.T) {
	a := New(Options{Delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := a.Recognize(ctx, speechClip(), "vi")
	if r.Kind != stt.KindBackendError {
		t.Errorf("expected backend error on deadline, got %v", r.Kind)
	}
}

func TestAdapter_Warm(t *testing.T) {
	warmErr := errors.New("model missing")
	a := New(Options{WarmErr: warmErr})

	if err := a.Warm(context.Background()); !errors.Is(err, warmErr) {
		t.Errorf("expected warm error, got %v", err)
	}
	if a.WarmCalls() != 1 {
		t.Errorf("expected 1 warm call, got %d", a.WarmCalls())
	}
}

func TestAdapter_WarmHonorsContext(t *testing.T) {
	a := New(Options{WarmDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := a.Warm(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestAdapter_ThreadSafety(t *testing.T) {
	a := New(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				a.Recognize(context.Background(), speechClip(), "vi")
			}
		}()
	}
	wg.Wait()

	if a.RecognizeCalls() != 50 {
		t.Errorf("expected 50 recognize calls, got %d", a.RecognizeCalls())
	}
}
