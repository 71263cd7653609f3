package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WarmFunc loads the forecast for one location through the cache-aside path.
type WarmFunc func(ctx context.Context, location string) error

// Warmer prefetches forecasts for a fixed list of locations so the first
// visitor of a popular place is served from cache.
type Warmer struct {
	warm   WarmFunc
	logger *zap.Logger
}

// NewWarmer creates a Warmer that uses fn to load each location.
func NewWarmer(fn WarmFunc, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{warm: fn, logger: logger}
}

// Warm loads every location concurrently. Returns the joined errors of failed locations.
func (w *Warmer) Warm(ctx context.Context, locations []string) error {
	if len(locations) == 0 {
		return nil
	}
	start := time.Now()
	w.logger.Info("warming forecast cache", zap.Int("locations", len(locations)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.warm(ctx, loc); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", loc, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	w.logger.Info("forecast cache warming complete",
		zap.Int("locations", len(locations)),
		zap.Int("errors", len(errs)),
		zap.Duration("duration", time.Since(start)))
	return errors.Join(errs...)
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, locations []string, interval time.Duration) error {
	if err := w.Warm(ctx, locations); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, locations); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
