// Package forecast implements the location -> forecast fetch cycle of one UI session.
//
// A session's visible state is an immutable State snapshot. The only way to move
// between snapshots is Reduce, which applies an Event. Every event carries the
// generation of the fetch that produced it; events from a superseded generation
// are dropped, so a late response can never overwrite newer state.
package forecast

import (
	"github.com/kjstillabower/classy-weather/internal/models"
)

// Status is the lifecycle position of a fetch cycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a session. Treat it as read-only; Days is shared
// between snapshots.
type State struct {
	Status     Status
	Location   string
	Place      models.Place
	Resolved   bool
	Days       []models.Day
	Reason     string
	Generation uint64
}

// Loading reports whether a fetch is outstanding.
func (s State) Loading() bool {
	return s.Status == StatusLoading
}

// EventKind identifies a transition.
type EventKind int

const (
	// EventStarted begins a new fetch cycle for Location.
	EventStarted EventKind = iota
	// EventCleared ends any cycle because the location is too short to look up.
	EventCleared
	// EventRejected ends any cycle because the location failed validation.
	EventRejected
	// EventResolved records the geocoded place of the current cycle.
	EventResolved
	// EventSucceeded delivers the forecast days of the current cycle.
	EventSucceeded
	// EventFailed ends the current cycle with a human-readable Reason.
	EventFailed
	// EventCanceled ends the current cycle without error.
	EventCanceled
)

// Event is an input to Reduce.
type Event struct {
	Kind       EventKind
	Generation uint64
	Location   string
	Place      models.Place
	Days       []models.Day
	Reason     string
}

// Reduce returns the state after applying e to s. Events that open a cycle
// (Started, Cleared, Rejected) apply only with a generation newer than s; events
// that complete a cycle apply only to the matching generation while it is loading.
// Anything else returns s unchanged.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case EventStarted:
		if e.Generation <= s.Generation {
			return s
		}
		return State{Status: StatusLoading, Location: e.Location, Generation: e.Generation}

	case EventCleared:
		if e.Generation <= s.Generation {
			return s
		}
		return State{Status: StatusIdle, Location: e.Location, Generation: e.Generation}

	case EventRejected:
		if e.Generation <= s.Generation {
			return s
		}
		return State{Status: StatusFailed, Location: e.Location, Reason: e.Reason, Generation: e.Generation}
	}

	if e.Generation != s.Generation || s.Status != StatusLoading {
		return s
	}

	switch e.Kind {
	case EventResolved:
		s.Place = e.Place
		s.Resolved = true
	case EventSucceeded:
		s.Status = StatusReady
		s.Days = e.Days
	case EventFailed:
		s.Status = StatusFailed
		s.Reason = e.Reason
		s.Place = models.Place{}
		s.Resolved = false
		s.Days = nil
	case EventCanceled:
		s.Status = StatusIdle
		s.Place = models.Place{}
		s.Resolved = false
		s.Days = nil
	}
	return s
}
