package command

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "recognize.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNew_ParsesQuoting(t *testing.T) {
	a, err := New(`whisper-wrap --model "/models/base en.bin"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"whisper-wrap", "--model", "/models/base en.bin"}
	if len(a.args) != len(want) {
		t.Fatalf("expected %v, got %v", want, a.args)
	}
	for i := range want {
		if a.args[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], a.args[i])
		}
	}
}

func TestNew_Empty(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestRecognize_PassesArguments(t *testing.T) {
	// echo the arguments back as the transcript
	path := script(t, `printf '{"text":"%s"}' "$*"`)
	a, _ := New(path + " --beam 5")

	r := a.Recognize(context.Background(), &audio.Clip{Path: "/tmp/in.wav"}, "vi")
	if r.Kind != stt.KindOK {
		t.Fatalf("expected OK, got %v (%v)", r.Kind, r.Err)
	}
	if r.Text != "--beam 5 --audio /tmp/in.wav --language vi" {
		t.Errorf("unexpected arguments %q", r.Text)
	}
}

func TestRecognize_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind stt.Kind
	}{
		{"empty text", `echo '{"text":"  "}'`, stt.KindNoSpeech},
		{"non-zero exit", `echo "model missing" >&2; exit 3`, stt.KindBackendError},
		{"garbage output", `echo "not json"`, stt.KindOtherError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := New(script(t, tt.body))
			if r := a.Recognize(context.Background(), &audio.Clip{Path: "x.wav"}, ""); r.Kind != tt.kind {
				t.Errorf("expected %v, got %v (%v)", tt.kind, r.Kind, r.Err)
			}
		})
	}
}

func TestWarm(t *testing.T) {
	a, _ := New(script(t, "exit 0"))
	if err := a.Warm(context.Background()); err != nil {
		t.Errorf("expected installed script to warm, got %v", err)
	}

	missing, _ := New("definitely-not-an-installed-recognizer-binary")
	if err := missing.Warm(context.Background()); err == nil {
		t.Error("expected error for missing binary")
	}
}
