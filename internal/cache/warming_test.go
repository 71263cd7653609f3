package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingWarm struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (r *recordingWarm) fn(ctx context.Context, location string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, location)
	return r.fail[location]
}

func (r *recordingWarm) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestWarmer_Warm_Success(t *testing.T) {
	rec := &recordingWarm{}
	warmer := NewWarmer(rec.fn, nil)

	if err := warmer.Warm(context.Background(), []string{"Paris", "Berlin"}); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if rec.count() != 2 {
		t.Errorf("warmed %d locations, want 2", rec.count())
	}
}

func TestWarmer_Warm_EmptyLocations(t *testing.T) {
	rec := &recordingWarm{}
	warmer := NewWarmer(rec.fn, nil)

	if err := warmer.Warm(context.Background(), nil); err != nil {
		t.Fatalf("Warm() with nil locations error = %v, want nil", err)
	}
	if rec.count() != 0 {
		t.Errorf("warmed %d locations, want 0", rec.count())
	}
}

// TestWarmer_Warm_PartialFailure verifies one failing location does not stop the
// others and is reported in the returned error.
func TestWarmer_Warm_PartialFailure(t *testing.T) {
	apiDown := errors.New("api down")
	rec := &recordingWarm{fail: map[string]error{"Atlantis": apiDown}}
	warmer := NewWarmer(rec.fn, nil)

	err := warmer.Warm(context.Background(), []string{"Paris", "Atlantis"})
	if !errors.Is(err, apiDown) {
		t.Fatalf("Warm() error = %v, want wrapped api down", err)
	}
	if !strings.Contains(err.Error(), "Atlantis") {
		t.Errorf("Warm() error = %q, want location in message", err)
	}
	if rec.count() != 2 {
		t.Errorf("warmed %d locations, want 2", rec.count())
	}
}

func TestWarmer_WarmPeriodic_StopsOnCancel(t *testing.T) {
	rec := &recordingWarm{}
	warmer := NewWarmer(rec.fn, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- warmer.WarmPeriodic(ctx, []string{"Paris"}, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WarmPeriodic() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WarmPeriodic() did not return after cancel")
	}
	if rec.count() < 2 {
		t.Errorf("warmed %d times, want initial + at least one tick", rec.count())
	}
}
