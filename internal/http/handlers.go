package http

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/classy-weather/internal/icon"
	"github.com/kjstillabower/classy-weather/internal/lifecycle"
	"github.com/kjstillabower/classy-weather/internal/observability"
	"github.com/kjstillabower/classy-weather/internal/traffic"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// HealthConfig holds dependency checks and degradation thresholds for the health handler.
type HealthConfig struct {
	// DegradedWindow and DegradedErrorPct mark the service degraded when at least that
	// share of Open-Meteo calls failed within the window. Zero disables the check.
	DegradedWindow   time.Duration
	DegradedErrorPct int

	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// StorePing, when set, is called to check location store reachability.
	StorePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry         *Registry
	classifier       *icon.Classifier
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(registry *Registry, classifier *icon.Classifier, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:     registry,
		classifier:   classifier,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// pageData is the model of templates/index.html.
type pageData struct {
	Input string
	View  *forecastView
}

// Index handles GET /. Without a location parameter it pre-fills the input with the
// session's last location and does not fetch. With one it runs a fetch first.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.registry.Get(sessionID(w, r))
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	var data pageData
	if r.URL.Query().Has("location") {
		location := r.URL.Query().Get("location")
		view := newForecastView(sess.Fetch(r.Context(), location), h.classifier)
		data = pageData{Input: location, View: &view}
	} else {
		restored, err := sess.Restore(r.Context())
		if err != nil {
			logger.Warn("restore location failed", zap.Error(err))
		}
		data.Input = restored
		if st := sess.State(); st.Generation > 0 {
			view := newForecastView(st, h.classifier)
			data.View = &view
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Error("render page", zap.Error(err))
	}
}

// GetForecast handles GET /api/forecast?location=. The body is the session state after
// the fetch; Failed and Idle outcomes are states, not HTTP errors.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("location") {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location query parameter is required")
		return
	}
	sess := h.registry.Get(sessionID(w, r))
	st := sess.Fetch(r.Context(), r.URL.Query().Get("location"))
	writeJSON(w, http.StatusOK, newForecastView(st, h.classifier))
}

// GetHealth handles GET /health.
// Decision order: shutting-down > starting > degraded > healthy.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := lifecycle.Status()
	window := time.Minute
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		window = h.healthConfig.DegradedWindow
	}
	recent := traffic.Snapshot(window)
	if status == lifecycle.StatusHealthy && h.degraded(recent) {
		status = statusDegraded
	}

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if status == statusDegraded {
		checks["weatherApi"] = "unhealthy"
	}
	if h.healthConfig != nil {
		addCheck(checks, "cache", h.healthConfig.CachePing)
		addCheck(checks, "store", h.healthConfig.StorePing)
	}

	statusCode := http.StatusOK
	if status != lifecycle.StatusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    checks,
		"sessions":  h.registry.Len(),
		"traffic":   recent,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

const statusDegraded = "degraded"

func (h *Handler) degraded(c traffic.Counts) bool {
	if h.healthConfig == nil || h.healthConfig.DegradedErrorPct <= 0 {
		return false
	}
	if c.UpstreamSuccesses+c.UpstreamErrors == 0 {
		return false
	}
	return c.ErrorPct() >= float64(h.healthConfig.DegradedErrorPct)
}

// addCheck records a dependency as healthy or unhealthy. A failing dependency does
// not fail the probe: both backends degrade to pass-through.
func addCheck(checks map[string]string, name string, ping func() error) {
	if ping == nil {
		return
	}
	if ping() == nil {
		checks[name] = "healthy"
	} else {
		checks[name] = "unhealthy"
	}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

