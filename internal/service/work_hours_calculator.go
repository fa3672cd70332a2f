package service

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

var sixty = decimal.NewFromInt(60)

type compiledFineRule struct {
	pattern string
	re      *regexp.Regexp
	rule    models.FineRule
}

// WorkHoursInput bundles everything needed to count hours of one day record.
type WorkHoursInput struct {
	Record   models.DayRecord
	DayType  models.DayType
	Position *models.Position
	Schedule *models.ShopSchedule
	// Plan is the closest approved plan of a fact record, if any.
	Plan *models.DayRecord
}

// WorkHours is the result of counting a day record.
type WorkHours struct {
	Work  decimal.Decimal
	Day   decimal.Decimal
	Night decimal.Decimal
	// Start and End delimit the counted interval for interval-based records.
	Start        *time.Time
	End          *time.Time
	BreakMinutes int
	FineMinutes  int
	// Ignored is set for records with an open interval; they produce no rows downstream.
	Ignored bool
}

// WorkHoursCalculator counts work, day and night hours under a network settings snapshot.
type WorkHoursCalculator struct {
	settings   models.NetworkSettings
	fines      []compiledFineRule
	nightStart models.TimeOfDay
	nightEnd   models.TimeOfDay
}

// NewWorkHoursCalculator compiles the fines patterns of the settings once, keeping their order.
func NewWorkHoursCalculator(settings models.NetworkSettings) (*WorkHoursCalculator, error) {
	calc := &WorkHoursCalculator{settings: settings}
	calc.nightStart, calc.nightEnd = settings.NightWindow()

	for _, fp := range settings.FinesSettings {
		re, err := regexp.Compile(fp.Pattern)
		if err != nil {
			return nil, appErrors.Configuration("invalid fines pattern %q: %v", fp.Pattern, err)
		}
		calc.fines = append(calc.fines, compiledFineRule{pattern: fp.Pattern, re: re, rule: fp.FineRule})
	}
	return calc, nil
}

// Calculate dispatches on the day type capability flags.
func (c *WorkHoursCalculator) Calculate(in WorkHoursInput) WorkHours {
	switch {
	case in.DayType.GetWorkHoursMethod == models.WorkHoursZero,
		in.DayType.IsDayOff && !in.DayType.IsWorkHours:
		return zeroHours(in.Record)
	case in.DayType.GetWorkHoursMethod == models.WorkHoursManual:
		return c.manual(in.Record)
	default:
		return c.interval(in)
	}
}

func zeroHours(record models.DayRecord) WorkHours {
	return WorkHours{Work: decimal.Zero, Day: decimal.Zero, Night: decimal.Zero, Start: record.DttmWorkStart, End: record.DttmWorkEnd}
}

func (c *WorkHoursCalculator) manual(record models.DayRecord) WorkHours {
	work := record.WorkHours
	if work.IsNegative() {
		work = decimal.Zero
	}
	if c.settings.RoundWorkHoursAlg == models.RoundToHalfAnHour {
		work = minutesToHours(roundToHalfHour(hoursToMinutes(work)))
	}
	return WorkHours{Work: work, Day: work, Night: decimal.Zero, Start: record.DttmWorkStart, End: record.DttmWorkEnd}
}

func (c *WorkHoursCalculator) interval(in WorkHoursInput) WorkHours {
	start, end, ok := in.Record.Interval()
	if !ok {
		result := zeroHours(in.Record)
		result.Ignored = true
		return result
	}

	fine := 0
	if in.Record.IsFact && in.Plan != nil {
		if planStart, planEnd, planOK := in.Plan.Interval(); planOK {
			start, end, fine = c.applyPlan(in.Position, start, end, planStart, planEnd)
		}
	}

	if c.settings.CropWorkHoursByShopSchedule && in.Schedule != nil {
		if opens, closes, open := in.Schedule.Window(start.Location()); open {
			start, end = maxTime(start, opens), minTime(end, closes)
		}
	}

	result := WorkHours{FineMinutes: fine}
	if !end.After(start) {
		result.Work, result.Day, result.Night = decimal.Zero, decimal.Zero, decimal.Zero
		return result
	}
	s, e := start, end
	result.Start, result.End = &s, &e

	shift := int(end.Sub(start) / time.Minute)
	if in.Position != nil {
		result.BreakMinutes = in.Position.Breaks.Match(shift)
	}
	work := shift - result.BreakMinutes - fine
	if work < 0 {
		work = 0
	}
	if c.settings.RoundWorkHoursAlg == models.RoundToHalfAnHour {
		work = roundToHalfHour(work)
	}
	night := c.nightMinutes(start, end)
	if night > work {
		night = work
	}

	result.Work = minutesToHours(work)
	result.Night = minutesToHours(night)
	result.Day = result.Work.Sub(result.Night)
	return result
}

// applyPlan snaps fact boundaries to fines steps, computes penalties and
// restricts the interval to the plan when configured.
func (c *WorkHoursCalculator) applyPlan(position *models.Position, start, end, planStart, planEnd time.Time) (time.Time, time.Time, int) {
	graceLate := time.Duration(c.settings.AllowedIntervalForLateArrival)
	graceEarly := time.Duration(c.settings.AllowedIntervalForEarlyDeparture)

	fine := 0
	if rule, ok := c.fineRule(position); ok {
		if rule.ArriveStep > 0 {
			start = snapUp(start, rule.ArriveStep)
		}
		if rule.DepartureStep > 0 {
			end = snapDown(end, rule.DepartureStep)
		}
		if late := start.Sub(planStart); late > 0 && late > graceLate {
			fine += lookupFine(rule.ArriveFines, int(late/time.Minute))
		}
		if early := planEnd.Sub(end); early > 0 && early > graceEarly {
			fine += lookupFine(rule.DepartureFines, int(early/time.Minute))
		}
	}

	if c.settings.OnlyFactHoursThatInApprovedPlan {
		start, end = maxTime(start, planStart), minTime(end, planEnd)
		if start.Sub(planStart) <= graceLate {
			start = planStart
		}
		if planEnd.Sub(end) <= graceEarly {
			end = planEnd
		}
	}
	return start, end, fine
}

func (c *WorkHoursCalculator) fineRule(position *models.Position) (models.FineRule, bool) {
	if position == nil || len(c.fines) == 0 {
		return models.FineRule{}, false
	}
	for _, f := range c.fines {
		if f.re.MatchString(position.Name) {
			return f.rule, true
		}
	}
	return models.FineRule{}, false
}

// lookupFine returns the penalty of the first [from, to) tuple containing the deviation.
func lookupFine(fines [][3]int, deviation int) int {
	for _, f := range fines {
		if deviation >= f[0] && deviation < f[1] {
			return f[2]
		}
	}
	return 0
}

// nightMinutes measures the overlap of [start, end) with the nightly window, which may wrap midnight.
func (c *WorkHoursCalculator) nightMinutes(start, end time.Time) int {
	if c.nightStart == c.nightEnd {
		return 0
	}
	total := time.Duration(0)
	for day := models.TruncateDay(start).AddDate(0, 0, -1); day.Before(end); day = day.AddDate(0, 0, 1) {
		ws := c.nightStart.On(day)
		we := c.nightEnd.On(day)
		if !we.After(ws) {
			we = we.Add(24 * time.Hour)
		}
		total += overlap(start, end, ws, we)
	}
	return int(total / time.Minute)
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	s, e := maxTime(aStart, bStart), minTime(aEnd, bEnd)
	if !e.After(s) {
		return 0
	}
	return e.Sub(s)
}

func snapUp(t time.Time, stepMinutes int) time.Time {
	step := time.Duration(stepMinutes) * time.Minute
	offset := t.Sub(models.TruncateDay(t))
	if rem := offset % step; rem != 0 {
		return t.Add(step - rem)
	}
	return t
}

func snapDown(t time.Time, stepMinutes int) time.Time {
	step := time.Duration(stepMinutes) * time.Minute
	offset := t.Sub(models.TruncateDay(t))
	return t.Add(-(offset % step))
}

func roundToHalfHour(minutes int) int {
	return (minutes + 15) / 30 * 30
}

func minutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2)
}

func hoursToMinutes(hours decimal.Decimal) int {
	return int(hours.Mul(sixty).Round(0).IntPart())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
