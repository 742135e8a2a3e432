package scratch

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ai-speech-transcribe-service/internal/observability/metrics"
)

func newTestStore(t *testing.T) (*Store, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	s, err := New(filepath.Join(t.TempDir(), "scratch"), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, m
}

func TestSave_WritesUniqueFiles(t *testing.T) {
	s, m := newTestStore(t)

	p1, n, err := s.Save(strings.NewReader("RIFF1234"), ".WAV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, _, err := s.Save(strings.NewReader("RIFF5678"), "wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p1 == p2 {
		t.Error("expected unique paths")
	}
	if n != 8 {
		t.Errorf("expected 8 bytes, got %d", n)
	}
	if filepath.Dir(p1) != s.Dir() {
		t.Errorf("expected file under %s, got %s", s.Dir(), p1)
	}
	if !strings.HasSuffix(p1, ".wav") || !strings.HasSuffix(p2, ".wav") {
		t.Errorf("expected lower-case .wav extension, got %s and %s", p1, p2)
	}
	data, err := os.ReadFile(p1)
	if err != nil || string(data) != "RIFF1234" {
		t.Errorf("expected stored content, got %q (%v)", data, err)
	}
	if got := testutil.ToFloat64(m.UploadBytes); got != 16 {
		t.Errorf("expected 16 upload bytes recorded, got %v", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestSave_ReadErrorLeavesNoFile(t *testing.T) {
	s, _ := newTestStore(t)

	if _, _, err := s.Save(io.MultiReader(strings.NewReader("RIFF"), failingReader{}), ".wav"); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no leftover files, got %d", len(entries))
	}
}

func TestRemove(t *testing.T) {
	s, m := newTestStore(t)

	path, _, err := s.Save(strings.NewReader("x"), ".wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err %v", err)
	}

	// Removing again or removing nothing is not a failure.
	s.Remove(path)
	s.Remove("")
	if got := testutil.ToFloat64(m.CleanupFailures); got != 0 {
		t.Errorf("expected no cleanup failures, got %v", got)
	}
}

func TestRemove_FailureIsCountedNotReturned(t *testing.T) {
	s, m := newTestStore(t)

	// A non-empty directory cannot be removed with os.Remove.
	dir := filepath.Join(s.Dir(), "busy")
	if err := os.MkdirAll(filepath.Join(dir, "child"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	s.Remove(dir)

	if got := testutil.ToFloat64(m.CleanupFailures); got != 1 {
		t.Errorf("expected 1 cleanup failure, got %v", got)
	}
}
