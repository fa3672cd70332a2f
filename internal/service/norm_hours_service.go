package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type normCalendar interface {
	MonthKinds(ctx context.Context, regionID string, month time.Time) (map[int]models.DayKind, error)
}

type normRecordLister interface {
	ListApproved(ctx context.Context, filter models.DayRecordFilter) ([]models.DayRecord, error)
}

type mainHoursReader interface {
	SumMainHoursByDayType(ctx context.Context, employeeID string, from, to time.Time) ([]models.MonthDayTypeHours, error)
}

// NormReduction is a norm decrease caused by a reduce-norm plan on a date.
type NormReduction struct {
	Dt          time.Time       `json:"dt"`
	DayTypeCode string          `json:"day_type"`
	Hours       decimal.Decimal `json:"hours"`
}

// NormResult is the monthly norm with its breakdown.
type NormResult struct {
	Hours      decimal.Decimal `json:"hours"`
	Base       decimal.Decimal `json:"base"`
	Reductions []NormReduction `json:"reductions,omitempty"`
	Correction decimal.Decimal `json:"correction"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// NormHoursService computes the statutory monthly norm of an employee.
type NormHoursService struct {
	calendar normCalendar
	records  normRecordLister
	main     mainHoursReader
	logger   *zap.Logger
}

// NewNormHoursService constructs the norm provider.
func NewNormHoursService(calendar normCalendar, records normRecordLister, main mainHoursReader, logger *zap.Logger) *NormHoursService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NormHoursService{calendar: calendar, records: records, main: main, logger: logger}
}

type monthKindsCache map[string]map[int]models.DayKind

// Norm returns the norm of the job month. plans are the approved records of that month.
// Norm errors degrade to warnings; only storage failures are returned.
func (s *NormHoursService) Norm(ctx context.Context, jc *JobContext, plans []models.DayRecord) (NormResult, error) {
	kinds := make(monthKindsCache)
	result := NormResult{Correction: decimal.Zero}

	norm, err := s.monthNorm(ctx, jc, jc.Month, plans, kinds, &result)
	if err != nil {
		return result, err
	}
	result.Hours = norm

	if jc.Settings.ConsiderRemainingHoursInPrevMonthsWhenCalcNormHours {
		correction, err := s.periodCorrection(ctx, jc, kinds, &result)
		if err != nil {
			return result, err
		}
		result.Correction = correction
		result.Hours = result.Hours.Add(correction)
	}
	if result.Hours.IsNegative() {
		result.Hours = decimal.Zero
	}
	for _, w := range result.Warnings {
		s.logger.Warn("norm degraded", zap.String("employee_id", jc.EmployeeID), zap.String("month", jc.Month.Format("2006-01")), zap.String("reason", w))
	}
	return result, nil
}

func (s *NormHoursService) monthNorm(ctx context.Context, jc *JobContext, month time.Time, plans []models.DayRecord, kinds monthKindsCache, result *NormResult) (decimal.Decimal, error) {
	base := decimal.Zero
	end := models.MonthEnd(month)
	for d := month; !d.After(end); d = d.AddDate(0, 0, 1) {
		amount, err := s.dayNorm(ctx, jc, d, kinds, result)
		if err != nil {
			return decimal.Zero, err
		}
		base = base.Add(amount)
	}

	norm := base
	seen := make(map[string]struct{})
	for _, plan := range plans {
		if plan.IsFact || !plan.IsApproved || plan.EmployeeID != jc.EmployeeID {
			continue
		}
		dt := models.TruncateDay(plan.Dt)
		if dt.Before(month) || dt.After(end) {
			continue
		}
		dayType, err := jc.Catalog.Lookup(plan.DayTypeCode)
		if err != nil {
			return decimal.Zero, err
		}
		if !dayType.IsReduceNorm {
			continue
		}
		key := dt.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		amount, err := s.dayNorm(ctx, jc, dt, kinds, result)
		if err != nil {
			return decimal.Zero, err
		}
		if amount.IsZero() {
			continue
		}
		norm = norm.Sub(amount)
		if month.Equal(jc.Month) {
			result.Reductions = append(result.Reductions, NormReduction{Dt: dt, DayTypeCode: plan.DayTypeCode, Hours: amount})
		}
	}
	if month.Equal(jc.Month) {
		result.Base = base
	}
	if norm.IsNegative() {
		norm = decimal.Zero
	}
	return norm, nil
}

// dayNorm is the standard hours of a date scaled by the position week share and the employment fraction.
func (s *NormHoursService) dayNorm(ctx context.Context, jc *JobContext, dt time.Time, kinds monthKindsCache, result *NormResult) (decimal.Decimal, error) {
	employment, ok := jc.EmploymentOn(dt)
	if !ok {
		return decimal.Zero, nil
	}
	kind, err := s.dayKind(ctx, jc, employment.ShopID, dt, kinds, result)
	if err != nil {
		return decimal.Zero, err
	}
	factor := jc.Position(employment.PositionID).WeekShare().Mul(employment.Fraction())
	return kind.StandardHours().Mul(factor), nil
}

func (s *NormHoursService) dayKind(ctx context.Context, jc *JobContext, shopID string, dt time.Time, kinds monthKindsCache, result *NormResult) (models.DayKind, error) {
	region, ok := jc.RegionOf(shopID)
	if !ok {
		key := "shop:" + shopID
		if _, warned := kinds[key]; !warned {
			kinds[key] = nil
			result.Warnings = append(result.Warnings, appErrors.Norm("shop %s has no region, using default calendar", shopID).Error())
		}
		return models.DefaultDayKind(dt), nil
	}

	key := region + ":" + dt.Format("2006-01")
	month, cached := kinds[key]
	if !cached {
		loaded, err := s.calendar.MonthKinds(ctx, region, dt)
		switch {
		case err == nil:
			month = loaded
		case errors.Is(err, appErrors.ErrNorm):
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s, using default calendar", err.Error()))
		default:
			return "", err
		}
		kinds[key] = month
	}
	if kind, ok := month[dt.Day()]; ok {
		return kind, nil
	}
	return models.DefaultDayKind(dt), nil
}

// periodCorrection adds the signed deficit of the preceding months when the job month
// closes an accounting period aligned to the calendar year.
func (s *NormHoursService) periodCorrection(ctx context.Context, jc *JobContext, kinds monthKindsCache, result *NormResult) (decimal.Decimal, error) {
	length := jc.Settings.AccountingPeriodLength
	if length <= 0 || 12%length != 0 {
		result.Warnings = append(result.Warnings, appErrors.Norm("accounting period length %d does not divide the year, using single-month norm", length).Error())
		return decimal.Zero, nil
	}
	if length == 1 || (int(jc.Month.Month())-1)%length != length-1 {
		return decimal.Zero, nil
	}

	periodStart := jc.Month.AddDate(0, -(length - 1), 0)
	prevEnd := jc.Month.AddDate(0, 0, -1)
	totals, err := s.main.SumMainHoursByDayType(ctx, jc.EmployeeID, periodStart, prevEnd)
	if err != nil {
		return decimal.Zero, appErrors.Transient(err, "failed to load previous main hours")
	}
	worked := workedMainHours(jc, totals, result)
	plans, err := s.records.ListApproved(ctx, models.DayRecordFilter{EmployeeIDs: []string{jc.EmployeeID}, DtFrom: periodStart, DtTo: prevEnd})
	if err != nil {
		return decimal.Zero, appErrors.Transient(err, "failed to load previous day records")
	}

	correction := decimal.Zero
	for m := periodStart; m.Before(jc.Month); m = m.AddDate(0, 1, 0) {
		norm, err := s.monthNorm(ctx, jc, m, plans, kinds, result)
		if err != nil {
			return decimal.Zero, err
		}
		correction = correction.Add(norm.Sub(worked[m.Format("2006-01")]))
	}
	return correction, nil
}

// workedMainHours sums previous MAIN hours per month, skipping day-off types of the job catalog.
func workedMainHours(jc *JobContext, totals []models.MonthDayTypeHours, result *NormResult) map[string]decimal.Decimal {
	worked := make(map[string]decimal.Decimal)
	for _, row := range totals {
		dayType, err := jc.Catalog.Lookup(row.DayTypeCode)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s in %s ignored for period correction: %s", row.DayTypeCode, row.Month, err.Error()))
			continue
		}
		if dayType.IsDayOff {
			continue
		}
		worked[row.Month] = worked[row.Month].Add(row.Hours)
	}
	return worked
}
