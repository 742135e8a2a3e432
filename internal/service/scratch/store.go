// Package scratch writes uploads to uniquely named temporary files and
// removes them after use.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ai-speech-transcribe-service/internal/observability/metrics"
)

const filePrefix = "upload-"

// Store manages scratch files under a single directory.
type Store struct {
	dir     string
	metrics *metrics.Metrics
}

// New creates the directory if needed.
func New(dir string, m *metrics.Metrics) (*Store, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Store{dir: dir, metrics: m}, nil
}

// Dir returns the scratch directory.
func (s *Store) Dir() string { return s.dir }

// Save copies r to a new file and returns its path and size. On error no
// file is left behind.
func (s *Store) Save(r io.Reader, ext string) (string, int64, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.dir, filePrefix+uuid.NewString()+strings.ToLower(ext))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create scratch file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.Remove(path)
		return "", n, fmt.Errorf("write scratch file: %w", err)
	}

	s.metrics.RecordUpload(n)
	return path, n, nil
}

// Remove deletes path. Failures are logged and counted, never returned;
// a file that is already gone is not a failure.
func (s *Store) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.metrics.RecordCleanupFailure()
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove scratch file")
	}
}
