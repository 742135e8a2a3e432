package keepalive

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ai-speech-transcribe-service/internal/observability/metrics"
	"ai-speech-transcribe-service/internal/service/pool"
	"ai-speech-transcribe-service/internal/service/transcription"
)

type fakeWarmer struct {
	calls    atomic.Int64
	mu       sync.Mutex
	triggers []string
}

func (f *fakeWarmer) WarmUpAll(_ context.Context, trigger string) pool.WarmReport {
	f.calls.Add(1)
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	f.mu.Unlock()
	return pool.WarmReport{Handles: 2, Calibrated: 2}
}

type fakeSimulator struct {
	calls atomic.Int64
}

func (f *fakeSimulator) Simulate(context.Context) transcription.Outcome {
	f.calls.Add(1)
	return transcription.Outcome{Status: http.StatusOK}
}

type fixedClock struct {
	idle atomic.Int64
}

func (c *fixedClock) IdleFor() time.Duration { return time.Duration(c.idle.Load()) }
func (c *fixedClock) set(d time.Duration) { c.idle.Store(int64(d)) }

func newLoop(interval, threshold time.Duration) (*Loop, *fakeWarmer, *fakeSimulator, *fixedClock, *metrics.Metrics) {
	w, s, c := &fakeWarmer{}, &fakeSimulator{}, &fixedClock{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	l := New(Config{Interval: interval, IdleThreshold: threshold}, w, s, c, m)
	return l, w, s, c, m
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		idle      time.Duration
		wantWarm  bool
		wantLabel string
	}{
		{"active", time.Minute, false, ActionSkipped},
		{"exactly at threshold", 10 * time.Minute, false, ActionSkipped},
		{"idle", 11 * time.Minute, true, ActionWarmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, w, s, c, m := newLoop(time.Minute, 10*time.Minute)
			c.set(tt.idle)

			if got := l.Check(context.Background()); got != tt.wantWarm {
				t.Errorf("expected warm %v, got %v", tt.wantWarm, got)
			}

			var want int64
			if tt.wantWarm {
				want = 1
			}
			if w.calls.Load() != want || s.calls.Load() != want {
				t.Errorf("expected %d warm and simulate calls, got %d/%d", want, w.calls.Load(), s.calls.Load())
			}
			if got := testutil.ToFloat64(m.KeepaliveCycles.WithLabelValues(tt.wantLabel)); got != 1 {
				t.Errorf("expected 1 %s cycle, got %v", tt.wantLabel, got)
			}
		})
	}
}

func TestCheck_UsesKeepaliveTrigger(t *testing.T) {
	l, w, _, c, _ := newLoop(time.Minute, time.Second)
	c.set(time.Hour)
	l.Check(context.Background())

	if len(w.triggers) != 1 || w.triggers[0] != pool.TriggerKeepalive {
		t.Errorf("expected keepalive trigger, got %v", w.triggers)
	}
}

func TestCheck_CancelledSkipsSimulation(t *testing.T) {
	l, w, s, c, _ := newLoop(time.Minute, time.Second)
	c.set(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Check(ctx)

	if w.calls.Load() != 1 {
		t.Errorf("expected warm-up attempted, got %d", w.calls.Load())
	}
	if s.calls.Load() != 0 {
		t.Errorf("expected no simulation after cancellation, got %d", s.calls.Load())
	}
}

func TestRun_WarmsWhileIdleAndStopsOnCancel(t *testing.T) {
	l, w, _, c, _ := newLoop(10*time.Millisecond, time.Second)
	c.set(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for w.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.calls.Load() < 2 {
		t.Fatalf("expected repeated warm-ups while idle, got %d", w.calls.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancel")
	}
}

func TestRun_ActiveServiceNeverWarms(t *testing.T) {
	l, w, _, c, _ := newLoop(5*time.Millisecond, time.Minute)
	c.set(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	if w.calls.Load() != 0 {
		t.Errorf("expected no warm-ups while active, got %d", w.calls.Load())
	}
}
