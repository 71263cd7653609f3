package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/classy-weather/internal/cache"
	"github.com/kjstillabower/classy-weather/internal/client"
	"github.com/kjstillabower/classy-weather/internal/models"
	"github.com/kjstillabower/classy-weather/internal/observability"
)

const cacheType = "forecast"

// CachedForecaster wraps a client.Forecaster with cache-aside lookups keyed by
// coordinates, timezone and unit. Cache failures never fail a forecast.
type CachedForecaster struct {
	next   client.Forecaster
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedForecaster returns a decorator over next. A nil cache or non-positive
// ttl disables caching.
func NewCachedForecaster(next client.Forecaster, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedForecaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedForecaster{next: next, cache: c, ttl: ttl, logger: logger}
}

func (s *CachedForecaster) enabled() bool {
	return s.cache != nil && s.ttl > 0
}

// Forecast implements client.Forecaster.
func (s *CachedForecaster) Forecast(ctx context.Context, place models.Place, unit client.TemperatureUnit) (models.Forecast, error) {
	if !s.enabled() {
		return s.next.Forecast(ctx, place, unit)
	}
	logger := observability.LoggerFromContext(ctx, s.logger)
	key := CacheKey(place, unit)

	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	case ok:
		observability.CacheHitsTotal.WithLabelValues(cacheType).Inc()
		logger.Debug("cache hit", zap.String("key", key))
		return cached, nil
	default:
		observability.CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}

	fc, err := s.next.Forecast(ctx, place, unit)
	if err != nil {
		return models.Forecast{}, err
	}

	if err := s.cache.Set(ctx, key, fc, s.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return fc, nil
}

// CacheKey identifies a forecast request. Coordinates are rounded to four decimals
// (about 11 m), well below the forecast grid resolution.
func CacheKey(place models.Place, unit client.TemperatureUnit) string {
	return fmt.Sprintf("%.4f,%.4f,%s,%s", place.Latitude, place.Longitude, place.Timezone, unit)
}

// WarmLocation returns a cache.WarmFunc that geocodes a location and fetches its
// forecast through forecaster, populating the cache as a side effect.
func WarmLocation(geocoder client.Geocoder, forecaster client.Forecaster, unit client.TemperatureUnit) cache.WarmFunc {
	return func(ctx context.Context, location string) error {
		place, err := geocoder.Geocode(ctx, location)
		if err != nil {
			return fmt.Errorf("geocode: %w", err)
		}
		if _, err := forecaster.Forecast(ctx, place, unit); err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		return nil
	}
}
