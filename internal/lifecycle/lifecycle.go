// Package lifecycle tracks process readiness for the health endpoint.
package lifecycle

import "sync/atomic"

const (
	StatusStarting     = "starting"
	StatusHealthy      = "healthy"
	StatusShuttingDown = "shutting-down"
)

var (
	ready        atomic.Bool
	shuttingDown atomic.Bool
)

// SetReady marks startup wiring (backends, cache warm-up) as complete.
func SetReady(v bool) {
	ready.Store(v)
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Status reports the process state. Shutting down wins over readiness.
func Status() string {
	switch {
	case shuttingDown.Load():
		return StatusShuttingDown
	case !ready.Load():
		return StatusStarting
	default:
		return StatusHealthy
	}
}

