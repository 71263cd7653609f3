package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/classy-weather/internal/cache"
	"github.com/kjstillabower/classy-weather/internal/client"
	"github.com/kjstillabower/classy-weather/internal/models"
)

type mockForecaster struct {
	forecast models.Forecast
	err      error
	calls    int
}

func (m *mockForecaster) Forecast(ctx context.Context, place models.Place, unit client.TemperatureUnit) (models.Forecast, error) {
	m.calls++
	return m.forecast, m.err
}

type mockGeocoder struct {
	place models.Place
	err   error
}

func (m *mockGeocoder) Geocode(ctx context.Context, location string) (models.Place, error) {
	return m.place, m.err
}

type mockCache struct {
	data   map[string]models.Forecast
	getErr error
	setErr error
}

func (m *mockCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	if m.getErr != nil {
		return models.Forecast{}, false, m.getErr
	}
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = make(map[string]models.Forecast)
	}
	m.data[key] = value
	return nil
}

var paris = models.Place{Name: "Paris", CountryCode: "FR", Latitude: 48.85341, Longitude: 2.3488, Timezone: "Europe/Paris"}

func sevenDays() models.Forecast {
	days := make([]models.Day, 7)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range days {
		days[i] = models.Day{Date: start.AddDate(0, 0, i), TempMax: 60, TempMin: 45, Code: 2}
	}
	return models.Forecast{Days: days, Unit: "fahrenheit"}
}

// TestCachedForecaster_MissThenHit verifies the upstream is called once and the
// second lookup is served from cache.
func TestCachedForecaster_MissThenHit(t *testing.T) {
	upstream := &mockForecaster{forecast: sevenDays()}
	s := NewCachedForecaster(upstream, cache.NewInMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := s.Forecast(ctx, paris, client.Fahrenheit)
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		if len(got.Days) != 7 {
			t.Fatalf("len(Days) = %d, want 7", len(got.Days))
		}
	}
	if upstream.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", upstream.calls)
	}
}

// TestCachedForecaster_UnitIsPartOfKey verifies a unit change is not served from
// the other unit's cache entry.
func TestCachedForecaster_UnitIsPartOfKey(t *testing.T) {
	upstream := &mockForecaster{forecast: sevenDays()}
	s := NewCachedForecaster(upstream, cache.NewInMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	_, _ = s.Forecast(ctx, paris, client.Fahrenheit)
	_, _ = s.Forecast(ctx, paris, client.Celsius)
	if upstream.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", upstream.calls)
	}
}

func TestCachedForecaster_Disabled(t *testing.T) {
	upstream := &mockForecaster{forecast: sevenDays()}
	tests := []struct {
		name  string
		cache cache.Cache
		ttl   time.Duration
	}{
		{"nil cache", nil, time.Minute},
		{"zero ttl", cache.NewInMemoryCache(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream.calls = 0
			s := NewCachedForecaster(upstream, tt.cache, tt.ttl, nil)
			_, _ = s.Forecast(context.Background(), paris, client.Fahrenheit)
			_, _ = s.Forecast(context.Background(), paris, client.Fahrenheit)
			if upstream.calls != 2 {
				t.Errorf("upstream calls = %d, want 2", upstream.calls)
			}
		})
	}
}

func TestCachedForecaster_UpstreamError_NotCached(t *testing.T) {
	upstream := &mockForecaster{err: client.ErrUpstreamFailure}
	mc := &mockCache{}
	s := NewCachedForecaster(upstream, mc, time.Minute, nil)

	_, err := s.Forecast(context.Background(), paris, client.Fahrenheit)
	if !errors.Is(err, client.ErrUpstreamFailure) {
		t.Fatalf("Forecast() error = %v, want ErrUpstreamFailure", err)
	}
	if len(mc.data) != 0 {
		t.Errorf("cache has %d entries, want 0 after failure", len(mc.data))
	}
}

// TestCachedForecaster_CacheErrorsAreNonFatal verifies backend failures fall
// through to the upstream result.
func TestCachedForecaster_CacheErrorsAreNonFatal(t *testing.T) {
	upstream := &mockForecaster{forecast: sevenDays()}
	mc := &mockCache{getErr: errors.New("memcache: connection refused"), setErr: errors.New("memcache: timeout")}
	s := NewCachedForecaster(upstream, mc, time.Minute, nil)

	got, err := s.Forecast(context.Background(), paris, client.Fahrenheit)
	if err != nil {
		t.Fatalf("Forecast() error = %v, want nil despite cache errors", err)
	}
	if len(got.Days) != 7 {
		t.Errorf("len(Days) = %d, want 7", len(got.Days))
	}
}

func TestCacheKey(t *testing.T) {
	got := CacheKey(paris, client.Fahrenheit)
	want := "48.8534,2.3488,Europe/Paris,fahrenheit"
	if got != want {
		t.Errorf("CacheKey() = %q, want %q", got, want)
	}
}

func TestWarmLocation(t *testing.T) {
	upstream := &mockForecaster{forecast: sevenDays()}
	c := cache.NewInMemoryCache()
	fc := NewCachedForecaster(upstream, c, time.Minute, nil)

	warm := WarmLocation(&mockGeocoder{place: paris}, fc, client.Fahrenheit)
	if err := warm(context.Background(), "Paris"); err != nil {
		t.Fatalf("warm() error = %v", err)
	}
	if _, ok, _ := c.Get(context.Background(), CacheKey(paris, client.Fahrenheit)); !ok {
		t.Error("warm() did not populate cache")
	}

	warm = WarmLocation(&mockGeocoder{err: client.ErrLocationNotFound}, fc, client.Fahrenheit)
	if err := warm(context.Background(), "Atlantis"); !errors.Is(err, client.ErrLocationNotFound) {
		t.Errorf("warm() error = %v, want ErrLocationNotFound", err)
	}
}
