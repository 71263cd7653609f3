package http

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/classy-weather/internal/forecast"
)

func newCountingRegistry(ttl time.Duration) (*Registry, *int) {
	created := 0
	r := NewRegistry(func(id string) *forecast.Session {
		created++
		return forecast.NewSession(&mockGeocoder{}, &mockForecaster{}, nil, forecast.Options{}, nil)
	}, ttl, nil)
	return r, &created
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r, created := newCountingRegistry(time.Minute)

	a := r.Get("a")
	if r.Get("a") != a {
		t.Error("Get returned a different session for the same ID")
	}
	if r.Get("b") == a {
		t.Error("Get shared a session across IDs")
	}
	if *created != 2 || r.Len() != 2 {
		t.Errorf("created = %d, Len = %d; want 2, 2", *created, r.Len())
	}
}

func TestRegistry_SweepRemovesIdle(t *testing.T) {
	r, _ := newCountingRegistry(time.Minute)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Get("old")
	now = now.Add(45 * time.Second)
	r.Get("recent")
	now = now.Add(30 * time.Second)

	if n := r.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r, _ := newCountingRegistry(0)
	r.Get("a")
	r.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if n := r.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d with TTL disabled, want 0", n)
	}
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r, _ := newCountingRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
