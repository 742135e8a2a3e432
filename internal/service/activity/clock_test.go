package activity

import (
	"sync"
	"testing"
	"time"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestClock_InitializedAtConstruction(t *testing.T) {
	f := &fakeNow{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newClockAt(f.now)

	if !c.Last().Equal(f.t) {
		t.Errorf("expected last %v, got %v", f.t, c.Last())
	}
	if c.IdleFor() != 0 {
		t.Errorf("expected zero idle, got %v", c.IdleFor())
	}
}

func TestClock_TouchResetsIdle(t *testing.T) {
	f := &fakeNow{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newClockAt(f.now)

	f.advance(11 * time.Minute)
	if c.IdleFor() != 11*time.Minute {
		t.Errorf("expected 11m idle, got %v", c.IdleFor())
	}

	c.Touch()
	if c.IdleFor() != 0 {
		t.Errorf("expected idle reset after touch, got %v", c.IdleFor())
	}
}

func TestClock_ConcurrentTouch(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Touch()
				_ = c.IdleFor()
			}
		}()
	}
	wg.Wait()

	if c.IdleFor() > time.Second {
		t.Errorf("expected recent activity, got idle %v", c.IdleFor())
	}
}
