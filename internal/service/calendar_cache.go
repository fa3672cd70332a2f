package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

// CalendarCacheStore persists cached production calendar months.
type CalendarCacheStore interface {
	Month(ctx context.Context, regionID string, month time.Time) (map[int]models.DayKind, error)
	StoreMonth(ctx context.Context, regionID string, month time.Time, kinds map[int]models.DayKind, ttl time.Duration) error
	DropRegion(ctx context.Context, regionID string) (int, error)
}

// CalendarCache fronts the store with hit/miss metrics. Store failures are logged and
// reported as misses so that a flaky Redis never fails a division.
type CalendarCache struct {
	store   CalendarCacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCalendarCache builds the cache. A nil *CalendarCache is valid and never hits.
func NewCalendarCache(store CalendarCacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CalendarCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarCache{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

// Month looks up a cached region month.
func (c *CalendarCache) Month(ctx context.Context, regionID string, month time.Time) (map[int]models.DayKind, bool) {
	if c == nil {
		return nil, false
	}
	start := time.Now()
	kinds, err := c.store.Month(ctx, regionID, month)
	hit := err == nil && len(kinds) > 0
	c.metrics.RecordCacheOperation(hit, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		c.logger.Warn("calendar cache read failed", zap.String("region_id", regionID), zap.Time("month", month), zap.Error(err))
	}
	return kinds, hit
}

// Store caches a resolved region month.
func (c *CalendarCache) Store(ctx context.Context, regionID string, month time.Time, kinds map[int]models.DayKind) {
	if c == nil {
		return
	}
	start := time.Now()
	err := c.store.StoreMonth(ctx, regionID, month, kinds, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("calendar cache write failed", zap.String("region_id", regionID), zap.Time("month", month), zap.Error(err))
	}
}

// DropRegion removes every cached month of a region; an empty region drops all.
func (c *CalendarCache) DropRegion(ctx context.Context, regionID string) error {
	if c == nil {
		return nil
	}
	dropped, err := c.store.DropRegion(ctx, regionID)
	if err != nil {
		return appErrors.Transient(err, "failed to invalidate production calendar cache")
	}
	c.logger.Debug("calendar cache dropped", zap.String("region_id", regionID), zap.Int("keys", dropped))
	return nil
}
