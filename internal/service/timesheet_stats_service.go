package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type timesheetReader interface {
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetItem, error)
}

type monthNormer interface {
	MonthNorm(ctx context.Context, employee models.Employee, month time.Time) (NormResult, error)
}

// TimesheetStatsService aggregates stored sheets for reporting. It never writes.
type TimesheetStatsService struct {
	timesheets timesheetReader
	records    dayRecordReader
	employees  employeeReader
	norms      monthNormer
	logger     *zap.Logger
}

// NewTimesheetStatsService constructs the read-only stats aggregator. norms may be nil
// when norm figures are never requested.
func NewTimesheetStatsService(timesheets timesheetReader, records dayRecordReader, employees employeeReader, norms monthNormer, logger *zap.Logger) *TimesheetStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimesheetStatsService{timesheets: timesheets, records: records, employees: employees, norms: norms, logger: logger}
}

// GetTimesheetStats returns plan, fact, main and additional totals by day and by month
// for every requested employee.
func (s *TimesheetStatsService) GetTimesheetStats(ctx context.Context, scope models.StatsScope) (map[string]models.EmployeeTimesheetStats, error) {
	ids := uniqueStrings(scope.EmployeeIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one employee id is required")
	}
	from, to := models.TruncateDay(scope.DtFrom), models.TruncateDay(scope.DtTo)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dt_to must not be before dt_from")
	}

	items, err := s.timesheets.List(ctx, models.TimesheetFilter{EmployeeIDs: ids, DtFrom: from, DtTo: to})
	if err != nil {
		return nil, appErrors.Transient(err, "failed to load timesheet items")
	}
	records, err := s.records.ListApproved(ctx, models.DayRecordFilter{EmployeeIDs: ids, DtFrom: from, DtTo: to})
	if err != nil {
		return nil, appErrors.Transient(err, "failed to load day records")
	}

	result := make(map[string]*statsAccumulator, len(ids))
	for _, id := range ids {
		result[id] = newStatsAccumulator(id)
	}

	for _, item := range items {
		acc, ok := result[item.EmployeeID]
		if !ok {
			continue
		}
		hours := item.TotalHours()
		acc.add(item.Dt, func(t *models.HoursTotals) {
			switch item.TimesheetType {
			case models.TimesheetFact:
				t.Fact = t.Fact.Add(hours)
			case models.TimesheetMain:
				t.Main = t.Main.Add(hours)
			case models.TimesheetAdditional:
				t.Additional = t.Additional.Add(hours)
			}
		})
	}

	for _, rec := range records {
		acc, ok := result[rec.EmployeeID]
		if !ok || rec.IsFact || !rec.IsApproved {
			continue
		}
		dt := models.TruncateDay(rec.Dt)
		if dt.Before(from) || dt.After(to) {
			continue
		}
		hours := rec.WorkHours
		acc.add(dt, func(t *models.HoursTotals) {
			t.Plan = t.Plan.Add(hours)
		})
	}

	if scope.IncludeNorm {
		if err := s.attachNorms(ctx, ids, from, to, result); err != nil {
			return nil, err
		}
	}

	out := make(map[string]models.EmployeeTimesheetStats, len(result))
	for id, acc := range result {
		out[id] = acc.stats
	}
	return out, nil
}

func (s *TimesheetStatsService) attachNorms(ctx context.Context, ids []string, from, to time.Time, result map[string]*statsAccumulator) error {
	if s.norms == nil || s.employees == nil {
		return appErrors.Configuration("norm figures are not available")
	}
	employees, err := s.employees.ListByIDs(ctx, ids)
	if err != nil {
		return appErrors.Transient(err, "failed to load employees")
	}
	for _, employee := range employees {
		acc, ok := result[employee.ID]
		if !ok {
			continue
		}
		acc.stats.Norm = make(map[string]string)
		for _, month := range models.MonthsBetween(from, to) {
			norm, err := s.norms.MonthNorm(ctx, employee, month)
			if err != nil {
				return fmt.Errorf("norm of %s for %s: %w", employee.ID, month.Format("2006-01"), err)
			}
			acc.stats.Norm[month.Format("2006-01")] = norm.Hours.StringFixed(2)
		}
	}
	return nil
}

type statsAccumulator struct {
	stats models.EmployeeTimesheetStats
}

func newStatsAccumulator(employeeID string) *statsAccumulator {
	return &statsAccumulator{stats: models.EmployeeTimesheetStats{
		EmployeeID: employeeID,
		Total:      zeroTotals(),
		ByDay:      make(map[string]models.HoursTotals),
		ByMonth:    make(map[string]models.HoursTotals),
	}}
}

func (a *statsAccumulator) add(dt time.Time, apply func(*models.HoursTotals)) {
	apply(&a.stats.Total)

	dayKey := dt.Format("2006-01-02")
	day, ok := a.stats.ByDay[dayKey]
	if !ok {
		day = zeroTotals()
	}
	apply(&day)
	a.stats.ByDay[dayKey] = day

	monthKey := dt.Format("2006-01")
	month, ok := a.stats.ByMonth[monthKey]
	if !ok {
		month = zeroTotals()
	}
	apply(&month)
	a.stats.ByMonth[monthKey] = month
}

func zeroTotals() models.HoursTotals {
	return models.HoursTotals{Plan: decimal.Zero, Fact: decimal.Zero, Main: decimal.Zero, Additional: decimal.Zero}
}
