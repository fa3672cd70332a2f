package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

const (
	calendarCachePrefix = "prodcal"
	scanBatch           = 200
)

// CalendarCacheRepository keeps one Redis hash per region month: field is the day of month, value the day kind.
type CalendarCacheRepository struct {
	client *redis.Client
}

// NewCalendarCacheRepository wraps the client. A nil client turns every call into a miss or a no-op.
func NewCalendarCacheRepository(client *redis.Client) *CalendarCacheRepository {
	return &CalendarCacheRepository{client: client}
}

// CalendarMonthKey is the hash key of a cached region month.
func CalendarMonthKey(regionID string, month time.Time) string {
	return fmt.Sprintf("%s:%s:%s", calendarCachePrefix, regionID, month.Format("2006-01"))
}

func calendarRegionPattern(regionID string) string {
	if regionID == "" {
		regionID = "*"
	}
	return fmt.Sprintf("%s:%s:*", calendarCachePrefix, regionID)
}

// Month returns the cached kinds of a region month or ErrCacheMiss.
func (r *CalendarCacheRepository) Month(ctx context.Context, regionID string, month time.Time) (map[int]models.DayKind, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	key := CalendarMonthKey(regionID, month)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, appErrors.ErrCacheMiss
	}
	kinds := make(map[int]models.DayKind, len(fields))
	for field, value := range fields {
		day, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("redis hash %s has malformed day %q", key, field)
		}
		kinds[day] = models.DayKind(value)
	}
	return kinds, nil
}

// StoreMonth replaces the cached kinds of a region month and sets its expiry in one transaction.
func (r *CalendarCacheRepository) StoreMonth(ctx context.Context, regionID string, month time.Time, kinds map[int]models.DayKind, ttl time.Duration) error {
	if r.client == nil || len(kinds) == 0 {
		return nil
	}
	key := CalendarMonthKey(regionID, month)
	values := make([]interface{}, 0, len(kinds)*2)
	for day, kind := range kinds {
		values = append(values, strconv.Itoa(day), string(kind))
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store %s: %w", key, err)
	}
	return nil
}

// DropRegion unlinks every cached month of a region, or of all regions when regionID is empty.
func (r *CalendarCacheRepository) DropRegion(ctx context.Context, regionID string) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	pattern := calendarRegionPattern(regionID)
	var (
		cursor  uint64
		dropped int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return dropped, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
				return dropped, fmt.Errorf("redis unlink %s: %w", pattern, err)
			}
			dropped += len(keys)
		}
		if next == 0 {
			return dropped, nil
		}
		cursor = next
	}
}
