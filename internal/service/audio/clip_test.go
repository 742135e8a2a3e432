package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeWav(t *testing.T, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := Write(f, 16000, samples); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_Silence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := WriteSilence(f, 16000, 500*time.Millisecond); err != nil {
		t.Fatalf("write silence: %v", err)
	}
	f.Close()

	clip, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", clip.SampleRate)
	}
	if clip.Channels != 1 || clip.BitDepth != 16 {
		t.Errorf("expected mono 16-bit, got %d channels %d bits", clip.Channels, clip.BitDepth)
	}
	if len(clip.Samples) != 8000 {
		t.Errorf("expected 8000 samples, got %d", len(clip.Samples))
	}
	if clip.RMS() != 0 {
		t.Errorf("expected zero energy for silence, got %f", clip.RMS())
	}
	if clip.Duration() != 500*time.Millisecond {
		t.Errorf("expected 500ms duration, got %v", clip.Duration())
	}
}

func TestLoad_ToneHasEnergy(t *testing.T) {
	path := writeWav(t, Tone(16000, 440, 8000, 16000))

	clip, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// RMS of a sine is amplitude/sqrt(2)
	if rms := clip.RMS(); rms < 5000 || rms > 6000 {
		t.Errorf("expected RMS near 5657, got %f", rms)
	}
}

func TestLoad_NotWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff header"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPCM16(t *testing.T) {
	clip := &Clip{BitDepth: 16, Samples: []int{1, -1, 32767}}
	pcm := clip.PCM16()

	want := []byte{0x01, 0x00, 0xff, 0xff, 0xff, 0x7f}
	if len(pcm) != len(want) {
		t.Fatalf("expected %d bytes, got %d", len(want), len(pcm))
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, want[i], pcm[i])
		}
	}
}

func TestPCM16_ScalesBitDepth(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		sample   int
		want     int
	}{
		{"8-bit midpoint", 8, 128, 0},
		{"8-bit max", 8, 255, 127 << 8},
		{"24-bit", 24, 1 << 16, 1 << 8},
		{"32-bit", 32, 1 << 20, 1 << 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &Clip{BitDepth: tt.bitDepth}
			if got := clip.sample16(tt.sample); got != tt.want {
				t.Errorf("sample16(%d) = %d, want %d", tt.sample, got, tt.want)
			}
		})
	}
}

func TestDuration_ZeroRate(t *testing.T) {
	clip := &Clip{Samples: make([]int, 100)}
	if clip.Duration() != 0 {
		t.Errorf("expected zero duration without sample rate, got %v", clip.Duration())
	}
}

func TestMono(t *testing.T) {
	stereo := &Clip{SampleRate: 8000, Channels: 2, BitDepth: 16, Samples: []int{100, 300, -50, -150, 7}}
	mono := stereo.Mono()

	if mono.Channels != 1 {
		t.Fatalf("expected 1 channel, got %d", mono.Channels)
	}
	want := []int{200, -100}
	if len(mono.Samples) != len(want) {
		t.Fatalf("expected %d frames (partial frame dropped), got %d", len(want), len(mono.Samples))
	}
	for i := range want {
		if mono.Samples[i] != want[i] {
			t.Errorf("frame %d: expected %d, got %d", i, want[i], mono.Samples[i])
		}
	}

	already := &Clip{Channels: 1}
	if already.Mono() != already {
		t.Error("expected mono clip to be returned unchanged")
	}
}
