package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type productionCalendarRepository interface {
	ListByRegion(ctx context.Context, regionID string, from, to time.Time) ([]models.ProductionCalendarDay, error)
	Upsert(ctx context.Context, days []models.ProductionCalendarDay) error
}

type calendarCache interface {
	Month(ctx context.Context, regionID string, month time.Time) (map[int]models.DayKind, bool)
	Store(ctx context.Context, regionID string, month time.Time, kinds map[int]models.DayKind)
	DropRegion(ctx context.Context, regionID string) error
}

// ProductionCalendarService serves regional day kinds with a read-through Redis cache.
type ProductionCalendarService struct {
	repo   productionCalendarRepository
	cache  calendarCache
	logger *zap.Logger
}

// NewProductionCalendarService constructs the provider. cache may be nil.
func NewProductionCalendarService(repo productionCalendarRepository, cache calendarCache, logger *zap.Logger) *ProductionCalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductionCalendarService{repo: repo, cache: cache, logger: logger}
}

// MonthKinds returns day kinds of a region month keyed by day of month.
// A region without entries for the month yields a NormError.
func (s *ProductionCalendarService) MonthKinds(ctx context.Context, regionID string, month time.Time) (map[int]models.DayKind, error) {
	month = models.MonthStart(month)
	if s.cache != nil {
		if cached, hit := s.cache.Month(ctx, regionID, month); hit {
			return cached, nil
		}
	}

	days, err := s.repo.ListByRegion(ctx, regionID, month, models.MonthEnd(month))
	if err != nil {
		return nil, appErrors.Transient(err, "failed to load production calendar")
	}
	if len(days) == 0 {
		return nil, appErrors.Norm("no production calendar for region %s in %s", regionID, month.Format("2006-01"))
	}

	kinds := make(map[int]models.DayKind, models.MonthEnd(month).Day())
	for d := month; !d.After(models.MonthEnd(month)); d = d.AddDate(0, 0, 1) {
		kinds[d.Day()] = models.DefaultDayKind(d)
	}
	for _, day := range days {
		kinds[day.Dt.Day()] = day.Kind
	}

	if s.cache != nil {
		s.cache.Store(ctx, regionID, month, kinds)
	}
	return kinds, nil
}

// DayKind answers the day_kind(region, dt) contract.
func (s *ProductionCalendarService) DayKind(ctx context.Context, regionID string, dt time.Time) (models.DayKind, error) {
	kinds, err := s.MonthKinds(ctx, regionID, dt)
	if err != nil {
		return "", err
	}
	return kinds[dt.Day()], nil
}

// Import stores calendar entries and drops the cached months of the touched regions.
func (s *ProductionCalendarService) Import(ctx context.Context, days []models.ProductionCalendarDay) error {
	if len(days) == 0 {
		return nil
	}
	for _, day := range days {
		switch day.Kind {
		case models.DayKindWork, models.DayKindShortWork, models.DayKindHoliday:
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day kind %q on %s", day.Kind, day.Dt.Format("2006-01-02")))
		}
	}
	if err := s.repo.Upsert(ctx, days); err != nil {
		return appErrors.Transient(err, "failed to import production calendar")
	}
	regions := make(map[string]struct{})
	for _, day := range days {
		regions[day.RegionID] = struct{}{}
	}
	for region := range regions {
		if err := s.Invalidate(ctx, region); err != nil {
			return err
		}
	}
	s.logger.Info("production calendar imported", zap.Int("days", len(days)), zap.Int("regions", len(regions)))
	return nil
}

// Invalidate drops cached months of a region, or of every region when regionID is empty.
func (s *ProductionCalendarService) Invalidate(ctx context.Context, regionID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DropRegion(ctx, regionID)
}
