package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/classy-weather/internal/forecast"
	"github.com/kjstillabower/classy-weather/internal/observability"
)

// SessionCookie names the cookie carrying the browser session ID.
const SessionCookie = "session"

const sessionCookieMaxAge = 365 * 24 * 60 * 60

// SessionFactory builds the forecast session for a new browser session ID.
type SessionFactory func(id string) *forecast.Session

type sessionEntry struct {
	session  *forecast.Session
	lastSeen time.Time
}

// Registry holds one forecast.Session per browser session. Sessions idle longer
// than the TTL are dropped by Sweep; their persisted location survives in the store.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	factory  SessionFactory
	idleTTL  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry returns an empty registry. idleTTL <= 0 disables sweeping.
func NewRegistry(factory SessionFactory, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *forecast.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &sessionEntry{session: r.factory(id)}
		r.sessions[id] = e
		observability.ActiveSessions.Set(float64(len(r.sessions)))
	}
	e.lastSeen = r.now()
	return e.session
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and removes sessions idle longer than the TTL. Returns the number removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			e.session.Close()
			delete(r.sessions, id)
			removed++
		}
	}
	observability.ActiveSessions.Set(float64(len(r.sessions)))
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("swept idle sessions", zap.Int("removed", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}

// CloseAll cancels every in-flight fetch. Call on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		e.session.Close()
	}
}

// sessionID returns the request's session ID, issuing a new cookie when the request
// has none or carries a malformed one.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
