package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ai-speech-transcribe-service/internal/config"
	"ai-speech-transcribe-service/internal/observability/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Upload.TempDir = t.TempDir()
	cfg.Pool.InitialSize = 2
	cfg.Pool.MaxSize = 3
	cfg.Keepalive.Interval = 10 * time.Millisecond
	return cfg
}

func TestNew_WiresComponents(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), metrics.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Shutdown()

	if a.Pool.Len() != 2 || a.Pool.Max() != 3 {
		t.Errorf("expected pool 2/3, got %d/%d", a.Pool.Len(), a.Pool.Max())
	}
	if a.Backend.Provider() != "mock" {
		t.Errorf("expected mock provider, got %s", a.Backend.Provider())
	}
	if a.Publisher.Enabled() {
		t.Error("expected log-only publisher by default")
	}
	if a.Ready() {
		t.Error("expected not ready before Start")
	}
}

func TestNew_InvalidBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.STT.Provider = "deepgram"
	cfg.STT.APIKey = ""

	if _, err := New(context.Background(), cfg, metrics.NewMetrics(prometheus.NewRegistry())); err == nil {
		t.Error("expected error for deepgram without API key")
	}
}

func TestStartAndShutdown(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), metrics.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !a.Ready() {
		t.Error("expected ready after Start")
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time set")
	}

	done := make(chan struct{})
	go func() {
		a.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Shutdown to stop the keepalive loop")
	}

	if a.Ready() {
		t.Error("expected not ready after Shutdown")
	}
	if a.Pool.Live() != 0 {
		t.Errorf("expected all handles disposed, got %d live", a.Pool.Live())
	}
}
