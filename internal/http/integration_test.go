package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/classy-weather/internal/cache"
	"github.com/kjstillabower/classy-weather/internal/client"
	"github.com/kjstillabower/classy-weather/internal/forecast"
	"github.com/kjstillabower/classy-weather/internal/icon"
	"github.com/kjstillabower/classy-weather/internal/service"
	"github.com/kjstillabower/classy-weather/internal/store"
	"github.com/kjstillabower/classy-weather/internal/testhelpers"
)

// setupStack wires the real Open-Meteo client, forecast cache and file store against
// an in-process fake of the upstream APIs.
func setupStack(t *testing.T, unit client.TemperatureUnit) (*testhelpers.OpenMeteo, http.Handler, string) {
	t.Helper()
	fake := testhelpers.NewOpenMeteo(t)
	fake.AddPlace(paris, testhelpers.Week(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 0, 2, 61, 71, 95, 3, 45))

	c, err := client.NewOpenMeteoClient(fake.GeocodingURL(), fake.ForecastURL(), 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenMeteoClient() error = %v", err)
	}
	cached := service.NewCachedForecaster(c, cache.NewInMemoryCache(), time.Minute, nil)

	prefsPath := filepath.Join(t.TempDir(), "prefs.yaml")
	prefs, err := store.OpenFileStore(prefsPath)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}

	registry := NewRegistry(func(id string) *forecast.Session {
		return forecast.NewSession(c, cached, store.Scoped(prefs, id), forecast.Options{Unit: unit}, nil)
	}, time.Hour, nil)
	h := NewHandler(registry, icon.MustNewClassifier(icon.DefaultBuckets, nil), nil, zap.NewNop())
	return fake, NewRouter(h, nil, zap.NewNop()), prefsPath
}

func get(t *testing.T, router http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIntegration_FetchThroughRealClient(t *testing.T) {
	fake, router, _ := setupStack(t, client.Celsius)

	w := get(t, router, "/api/forecast?location=Paris", nil)
	v := decodeView(t, w)
	if v.Status != "ready" || len(v.Days) != 7 {
		t.Fatalf("view = %+v, want ready with 7 days", v)
	}
	for i := 1; i < len(v.Days); i++ {
		if v.Days[i].Date <= v.Days[i-1].Date {
			t.Errorf("days not ascending at %d: %s after %s", i, v.Days[i].Date, v.Days[i-1].Date)
		}
	}
	for _, d := range v.Days {
		if d.Glyph == string(icon.Unknown) {
			t.Errorf("day %s code %d unclassified", d.Date, d.Code)
		}
	}
	if units := fake.Units(); len(units) != 1 || units[0] != "celsius" {
		t.Errorf("temperature units sent = %v, want [celsius]", units)
	}
}

func TestIntegration_NotFoundSkipsForecast(t *testing.T) {
	fake, router, _ := setupStack(t, "")

	v := decodeView(t, get(t, router, "/api/forecast?location=Anaheim", nil))
	if v.Status != "failed" || v.Reason != "location not found" {
		t.Errorf("view = %+v, want failed location not found", v)
	}
	if geo, fc := fake.Calls(); geo != 1 || fc != 0 {
		t.Errorf("upstream calls = %d geocode, %d forecast; want 1, 0", geo, fc)
	}
}

// TestIntegration_ForecastCached verifies a repeated lookup is served from the
// forecast cache while geocoding still runs per fetch.
func TestIntegration_ForecastCached(t *testing.T) {
	fake, router, _ := setupStack(t, "")

	w := get(t, router, "/api/forecast?location=Paris", nil)
	cookie := sessionCookie(t, w)
	get(t, router, "/api/forecast?location=Paris", cookie)

	if geo, fc := fake.Calls(); geo != 2 || fc != 1 {
		t.Errorf("upstream calls = %d geocode, %d forecast; want 2, 1", geo, fc)
	}
}

func TestIntegration_UpstreamOutage(t *testing.T) {
	fake, router, _ := setupStack(t, "")
	fake.FailForecasts(http.StatusServiceUnavailable)

	v := decodeView(t, get(t, router, "/api/forecast?location=Paris", nil))
	if v.Status != "failed" || v.Reason != "weather service unavailable" || v.Loading {
		t.Errorf("view = %+v, want failed weather service unavailable", v)
	}
}

// TestIntegration_LocationSurvivesRestart reopens the file store as a new process would.
func TestIntegration_LocationSurvivesRestart(t *testing.T) {
	_, router, prefsPath := setupStack(t, "")

	w := get(t, router, "/api/forecast?location=%20Paris%20", nil)
	cookie := sessionCookie(t, w)

	reopened, err := store.OpenFileStore(prefsPath)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	got, ok, err := store.Scoped(reopened, cookie.Value).Get(context.Background(), store.LocationKey)
	if err != nil || !ok || got != "Paris" {
		t.Errorf("persisted location = %q, %v, %v; want \"Paris\", true, nil", got, ok, err)
	}
}
