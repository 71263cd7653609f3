// Package traffic keeps short sliding windows of upstream call outcomes and
// rate-limit denials. The health endpoint reads them to report a degraded
// weather service.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how far back any window may look.
const retention = 5 * time.Minute

var defaultTracker = NewTracker(time.Now)

// RecordUpstreamSuccess records a completed Open-Meteo call.
func RecordUpstreamSuccess() {
	defaultTracker.RecordUpstreamSuccess()
}

// RecordUpstreamError records a failed Open-Meteo call (transport, 5xx, parse).
func RecordUpstreamError() {
	defaultTracker.RecordUpstreamError()
}

// RecordDenied records a rate-limit denial (429).
func RecordDenied() {
	defaultTracker.RecordDenied()
}

// Snapshot returns the default tracker's counts within window.
func Snapshot(window time.Duration) Counts {
	return defaultTracker.Snapshot(window)
}

// Reset clears the default tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Counts is a windowed view of recorded outcomes.
type Counts struct {
	UpstreamSuccesses int `json:"upstreamSuccesses"`
	UpstreamErrors    int `json:"upstreamErrors"`
	Denied            int `json:"denied"`
}

// ErrorPct is the upstream error percentage, or 0 with no calls.
func (c Counts) ErrorPct() float64 {
	total := c.UpstreamSuccesses + c.UpstreamErrors
	if total == 0 {
		return 0
	}
	return float64(c.UpstreamErrors) * 100 / float64(total)
}

// Tracker maintains sliding windows of outcome timestamps.
type Tracker struct {
	mu          sync.Mutex
	now         func() time.Time
	successes   []time.Time
	errorTimes  []time.Time
	deniedTimes []time.Time
}

// NewTracker returns an empty tracker reading time from now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

func (t *Tracker) RecordUpstreamSuccess() { t.record(&t.successes) }

func (t *Tracker) RecordUpstreamError() { t.record(&t.errorTimes) }

func (t *Tracker) RecordDenied() { t.record(&t.deniedTimes) }

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// Snapshot counts outcomes not older than window. Windows beyond the retention
// period are clamped to it.
func (t *Tracker) Snapshot(window time.Duration) Counts {
	if window > retention {
		window = retention
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	return Counts{
		UpstreamSuccesses: countSince(t.successes, cutoff),
		UpstreamErrors:    countSince(t.errorTimes, cutoff),
		Denied:            countSince(t.deniedTimes, cutoff),
	}
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes = nil
	t.errorTimes = nil
	t.deniedTimes = nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention period. Caller holds t.mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for i < len(times) && times[i].Before(cutoff) {
			i++
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successes)
	prune(&t.errorTimes)
	prune(&t.deniedTimes)
}
