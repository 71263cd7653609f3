package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/classy-weather/internal/cache"
	"github.com/kjstillabower/classy-weather/internal/client"
	"github.com/kjstillabower/classy-weather/internal/config"
	"github.com/kjstillabower/classy-weather/internal/forecast"
	httphandler "github.com/kjstillabower/classy-weather/internal/http"
	"github.com/kjstillabower/classy-weather/internal/icon"
	"github.com/kjstillabower/classy-weather/internal/lifecycle"
	"github.com/kjstillabower/classy-weather/internal/observability"
	"github.com/kjstillabower/classy-weather/internal/service"
	"github.com/kjstillabower/classy-weather/internal/store"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	openMeteo, err := client.NewOpenMeteoClient(cfg.GeocodingAPIURL, cfg.ForecastAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}

	var forecastCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		forecastCache = mc
		healthConfig.CachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "none":
		logger.Info("cache backend: none")
	default:
		forecastCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}
	forecaster := service.NewCachedForecaster(openMeteo, forecastCache, cfg.CacheTTL, logger)

	var prefs store.Store
	var prefsCloser *store.MemcachedStore
	switch cfg.StoreBackend {
	case "file":
		fs, err := store.OpenFileStore(cfg.StorePath)
		if err != nil {
			logger.Fatal("file store", zap.Error(err))
		}
		prefs = fs
		logger.Info("store backend: file", zap.String("path", cfg.StorePath))
	case "memcached":
		ms := store.NewMemcachedStore(cfg.StoreMemcachedAddrs, cfg.MemcachedTimeout)
		prefsCloser = ms
		prefs = ms
		healthConfig.StorePing = ms.Ping
		logger.Info("store backend: memcached", zap.String("addrs", cfg.StoreMemcachedAddrs))
	default:
		prefs = store.NewMemoryStore()
		logger.Info("store backend: memory")
	}

	classifier := icon.MustNewClassifier(icon.DefaultBuckets, logger)
	opts := forecast.Options{
		Unit:      cfg.TemperatureUnit,
		Timeout:   cfg.FetchTimeout,
		MinLength: cfg.LocationMinLength,
		MaxLength: cfg.LocationMaxLength,
	}
	registry := httphandler.NewRegistry(func(id string) *forecast.Session {
		return forecast.NewSession(openMeteo, forecaster, store.Scoped(prefs, id), opts, logger)
	}, cfg.SessionIdleTTL, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(registry, classifier, healthConfig, logger)
	router := httphandler.NewRouter(handler, limiter, logger)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go func() {
		if err := registry.Run(bgCtx, sweepInterval(cfg.SessionIdleTTL)); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session sweeper stopped", zap.Error(err))
		}
	}()

	if forecastCache != nil && len(cfg.WarmLocations) > 0 {
		warmer := cache.NewWarmer(service.WarmLocation(openMeteo, forecaster, cfg.TemperatureUnit), logger)
		warmCtx, warmCancel := context.WithTimeout(bgCtx, 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmLocations); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(bgCtx, cfg.WarmLocations, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// A page render waits for a full fetch cycle.
		WriteTimeout: cfg.FetchTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.SetReady(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
		registry.CloseAll()
	}
	bgCancel()

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if prefsCloser != nil {
		if err := prefsCloser.Close(); err != nil {
			logger.Error("memcached store close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// sweepInterval checks for idle sessions a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if d := ttl / 4; d > time.Second {
		return d
	}
	return time.Second
}
