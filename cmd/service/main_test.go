package main

import (
	"testing"
	"time"
)

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, 0},
		{-time.Minute, 0},
		{2 * time.Second, time.Second},
		{30 * time.Minute, 7*time.Minute + 30*time.Second},
	}
	for _, tt := range tests {
		if got := sweepInterval(tt.ttl); got != tt.want {
			t.Errorf("sweepInterval(%v) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}

// TestCoverageGaps_IntentionallyUntested documents why the rest of cmd/service has no unit tests.
// Run with -v to see skip reason.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Skip("main() is wiring-only; all logic lives in internal packages with tests. Entrypoint coverage would require exec or heavy mocking")
}
