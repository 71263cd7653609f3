package forecast

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/classy-weather/internal/client"
	"github.com/kjstillabower/classy-weather/internal/observability"
	"github.com/kjstillabower/classy-weather/internal/store"
	"github.com/kjstillabower/classy-weather/internal/validation"
)

// DefaultTimeout bounds one fetch cycle (geocode + forecast).
const DefaultTimeout = 10 * time.Second

// Options configures a Session.
type Options struct {
	Unit      client.TemperatureUnit
	Timeout   time.Duration
	MinLength int
	MaxLength int
}

func (o Options) withDefaults() Options {
	if o.Unit == "" {
		o.Unit = client.Fahrenheit
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MinLength <= 0 {
		o.MinLength = validation.DefaultMinLength
	}
	return o
}

// Session owns the fetch state of one UI session. At most one fetch is in flight:
// starting a fetch cancels the previous one, and only the newest fetch's result
// is ever reflected in State.
type Session struct {
	geocoder   client.Geocoder
	forecaster client.Forecaster
	prefs      store.Store
	opts       Options
	logger     *zap.Logger

	mu      sync.Mutex
	state   State
	nextGen uint64
	cancel  context.CancelFunc

	// persistMu orders location writes so an older cycle cannot overwrite a newer one.
	persistMu sync.Mutex
}

// NewSession wires a session. prefs may be nil, in which case nothing is persisted.
func NewSession(geocoder client.Geocoder, forecaster client.Forecaster, prefs store.Store, opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		geocoder:   geocoder,
		forecaster: forecaster,
		prefs:      prefs,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Days = slices.Clone(st.Days)
	return st
}

// Restore returns the persisted last location, or "" when none was saved.
// It never starts a fetch.
func (s *Session) Restore(ctx context.Context) (string, error) {
	if s.prefs == nil {
		return "", nil
	}
	loc, _, err := s.prefs.Get(ctx, store.LocationKey)
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues("get").Inc()
		return "", err
	}
	return loc, nil
}

// Close cancels any in-flight fetch. Its result will be discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// dispatch applies e under the lock and reports whether e's generation is still current.
func (s *Session) dispatch(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Generation != s.state.Generation {
		return false
	}
	s.state = Reduce(s.state, e)
	return true
}

// Fetch runs one fetch cycle for location and returns the session state once the
// cycle ends. A location shorter than the minimum moves the session to Idle without
// any network call. If another Fetch supersedes this one, the returned state is the
// newer cycle's.
func (s *Session) Fetch(ctx context.Context, location string) State {
	logger := observability.LoggerFromContext(ctx, s.logger)
	trimmed, verr := validation.ValidateLocation(location, s.opts.MinLength, s.opts.MaxLength)

	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if verr != nil {
		kind, reason, outcome := EventCleared, "", observability.OutcomeIdle
		if !validation.IsTooShort(verr) {
			kind, reason, outcome = EventRejected, verr.Error(), observability.OutcomeFailed
		}
		s.state = Reduce(s.state, Event{Kind: kind, Generation: gen, Location: location, Reason: reason})
		st := s.state
		s.mu.Unlock()
		observability.RecordFetchOutcome(outcome)
		logger.Debug("fetch skipped", zap.String("location", location), zap.Error(verr))
		return st
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	s.cancel = cancel
	s.state = Reduce(s.state, Event{Kind: EventStarted, Generation: gen, Location: location})
	s.mu.Unlock()

	logger = logger.With(zap.String("location", trimmed), zap.Uint64("generation", gen))
	defer s.finish(gen, cancel, logger)

	outcome := s.run(fetchCtx, gen, location, trimmed, logger)
	observability.RecordFetchOutcome(outcome)
	return s.State()
}

// finish releases the cycle's context and guarantees the cycle never stays Loading,
// including when run panics.
func (s *Session) finish(gen uint64, cancel context.CancelFunc, logger *zap.Logger) {
	cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != gen {
		return
	}
	s.cancel = nil
	if s.state.Loading() {
		logger.Error("fetch ended while loading")
		s.state = Reduce(s.state, Event{Kind: EventFailed, Generation: gen, Reason: "could not load weather"})
	}
}

// run geocodes the raw input as typed and persists the trimmed text once it resolves.
func (s *Session) run(ctx context.Context, gen uint64, raw, trimmed string, logger *zap.Logger) string {
	place, err := s.geocoder.Geocode(ctx, raw)
	if err != nil {
		return s.fail(ctx, gen, err, logger)
	}
	if !s.dispatch(Event{Kind: EventResolved, Generation: gen, Place: place}) {
		return observability.OutcomeSuperseded
	}
	s.persist(ctx, gen, trimmed, logger)

	fc, err := s.forecaster.Forecast(ctx, place, s.opts.Unit)
	if err != nil {
		return s.fail(ctx, gen, err, logger)
	}
	if !s.dispatch(Event{Kind: EventSucceeded, Generation: gen, Days: fc.Days}) {
		return observability.OutcomeSuperseded
	}
	logger.Info("forecast ready", zap.String("place", place.Name), zap.Int("days", len(fc.Days)))
	return observability.OutcomeReady
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation == gen
}

// fail ends the cycle. Cancellation is not an error: a superseded cycle leaves
// state alone and a caller-canceled cycle returns to Idle.
func (s *Session) fail(ctx context.Context, gen uint64, err error, logger *zap.Logger) string {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		if s.dispatch(Event{Kind: EventCanceled, Generation: gen}) {
			logger.Debug("fetch canceled")
			return observability.OutcomeCanceled
		}
		logger.Debug("fetch superseded")
		return observability.OutcomeSuperseded
	}

	reason := client.Reason(err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = client.Reason(context.DeadlineExceeded)
	}
	if !s.dispatch(Event{Kind: EventFailed, Generation: gen, Reason: reason}) {
		return observability.OutcomeSuperseded
	}
	logger.Warn("fetch failed",
		zap.String("reason", reason),
		zap.String("category", string(client.CategorizeError(err))),
		zap.Error(err))
	return observability.OutcomeFailed
}

// persist saves the resolved location text unless a newer cycle has started.
// Failure is logged, never fatal.
func (s *Session) persist(ctx context.Context, gen uint64, location string, logger *zap.Logger) {
	if s.prefs == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if ctx.Err() != nil || !s.current(gen) {
		logger.Debug("skip persisting superseded location")
		return
	}
	if err := s.prefs.Set(ctx, store.LocationKey, location); err != nil {
		observability.StoreErrorsTotal.WithLabelValues("set").Inc()
		logger.Warn("persist location failed", zap.Error(err))
	}
}
