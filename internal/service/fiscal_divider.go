package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

// Division phases in execution order.
const (
	PhaseDayOff       = "A_dayoff"
	PhaseWeeklyRest   = "B_weekly_rest"
	PhaseDailyCeiling = "C_daily_ceiling"
	PhaseNorm         = "D_norm"
	PhaseWithoutPlan  = "E_fact_without_plan"
)

// PhaseResult is what a single phase did to the month.
type PhaseResult struct {
	Phase    string          `json:"phase"`
	Moved    int             `json:"moved"`
	Promoted int             `json:"promoted,omitempty"`
	Hours    decimal.Decimal `json:"hours"`
	Warnings []string        `json:"warnings,omitempty"`
}

// DivisionReport accumulates phase results of one employee-month.
type DivisionReport struct {
	EmployeeID string          `json:"employee_id"`
	Month      time.Time       `json:"month"`
	Alias      string          `json:"alias"`
	Norm       decimal.Decimal `json:"norm"`
	Phases     []PhaseResult   `json:"phases,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// AllWarnings flattens report and phase warnings.
func (r DivisionReport) AllWarnings() []string {
	out := append([]string(nil), r.Warnings...)
	for _, p := range r.Phases {
		for _, w := range p.Warnings {
			out = append(out, fmt.Sprintf("%s: %s", p.Phase, w))
		}
	}
	return out
}

// DivisionInput is the FACT sheet plus the data the phases check against.
type DivisionInput struct {
	Facts []models.TimesheetItem
	Norm  decimal.Decimal
	// LookBehind holds MAIN rows of the previous month taking part in the weekly rest check.
	LookBehind []models.TimesheetItem
}

// DivisionResult holds the MAIN and ADDITIONAL sheets. Divided is false when the alias skips division.
type DivisionResult struct {
	Main       []models.TimesheetItem
	Additional []models.TimesheetItem
	Report     DivisionReport
	Divided    bool
}

// shift is a working FACT row travelling between MAIN and ADDITIONAL.
type shift struct {
	item    models.TimesheetItem
	dayType models.DayType
	start   time.Time
	end     time.Time
	timed   bool
	fixed   bool
	inMain  bool
	movedBy string

	sliceDay   decimal.Decimal
	sliceNight decimal.Decimal
}

func newShift(item models.TimesheetItem, dayType models.DayType) *shift {
	s := &shift{item: item, dayType: dayType, inMain: true, sliceDay: decimal.Zero, sliceNight: decimal.Zero}
	if item.DttmWorkStart != nil && item.DttmWorkEnd != nil && item.DttmWorkEnd.After(*item.DttmWorkStart) {
		s.start, s.end, s.timed = *item.DttmWorkStart, *item.DttmWorkEnd, true
	}
	return s
}

func (s *shift) total() decimal.Decimal {
	return s.item.DayHours.Add(s.item.NightHours)
}

func (s *shift) mainHours() decimal.Decimal {
	if !s.inMain {
		return decimal.Zero
	}
	return s.total().Sub(s.sliceDay).Sub(s.sliceNight)
}

func (s *shift) sortTime() time.Time {
	if s.timed {
		return s.start
	}
	return s.item.Dt
}

func (s *shift) moveOut(phase string) {
	s.inMain = false
	s.movedBy = phase
	s.sliceDay, s.sliceNight = decimal.Zero, decimal.Zero
}

// dividerStrategy holds the policies that differ between aliases.
type dividerStrategy interface {
	alias() string
	// restCandidate picks the shift leaving MAIN when a week lacks continuous rest.
	restCandidate(candidates []*shift) *shift
	// promotable reports whether an ADDITIONAL shift may return to MAIN on underwork.
	promotable(s *shift) bool
}

// FiscalDivider partitions FACT rows into MAIN and ADDITIONAL sheets.
type FiscalDivider struct {
	strategies map[string]dividerStrategy
	logger     *zap.Logger
}

// NewFiscalDivider registers the built-in strategies.
func NewFiscalDivider(logger *zap.Logger) *FiscalDivider {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &FiscalDivider{strategies: make(map[string]dividerStrategy), logger: logger}
	for _, s := range []dividerStrategy{nahodkaStrategy{}, pobedaStrategy{}} {
		d.strategies[s.alias()] = s
	}
	return d
}

// Aliases lists the registered strategy aliases.
func (d *FiscalDivider) Aliases() []string {
	aliases := []string{models.DividerAliasNone}
	for alias := range d.strategies {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Divide runs phases A to E for the job month. The context is checked between phases.
func (d *FiscalDivider) Divide(ctx context.Context, jc *JobContext, in DivisionInput) (DivisionResult, error) {
	report := DivisionReport{EmployeeID: jc.EmployeeID, Month: jc.Month, Alias: jc.Alias, Norm: in.Norm}
	strategy, ok := d.strategies[jc.Alias]
	if !ok {
		if jc.Alias != models.DividerAliasNone {
			report.Warnings = append(report.Warnings, fmt.Sprintf("unknown divider alias %q, division skipped", jc.Alias))
		}
		return DivisionResult{Report: report}, nil
	}

	st, err := newDivisionState(jc, strategy, in)
	if err != nil {
		return DivisionResult{Report: report}, err
	}
	log := d.logger.With(zap.String("employee_id", jc.EmployeeID), zap.String("month", jc.Month.Format("2006-01")), zap.String("alias", jc.Alias))

	phases := []struct {
		name string
		run  func() PhaseResult
	}{
		{PhaseDayOff, st.phaseDayOff},
		{PhaseWeeklyRest, st.phaseWeeklyRest},
		{PhaseDailyCeiling, st.phaseDailyCeiling},
		{PhaseNorm, st.phaseNorm},
		{PhaseWithoutPlan, st.phaseWithoutPlan},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return DivisionResult{Report: report}, appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, "division cancelled before "+phase.name)
		}
		result := phase.run()
		result.Phase = phase.name
		report.Phases = append(report.Phases, result)
		log.Debug("phase finished", zap.String("phase", phase.name), zap.Int("moved", result.Moved), zap.String("hours", result.Hours.String()))
	}

	main, additional := st.output()
	return DivisionResult{Main: main, Additional: additional, Report: report, Divided: true}, nil
}

type divisionState struct {
	jc         *JobContext
	strategy   dividerStrategy
	norm       decimal.Decimal
	dayOffs    []models.TimesheetItem
	shifts     []*shift
	lookBehind []*shift
	rest       time.Duration
	ceiling    decimal.Decimal
	firstStart time.Time
	lastStart  time.Time
}

func newDivisionState(jc *JobContext, strategy dividerStrategy, in DivisionInput) (*divisionState, error) {
	look := jc.Settings.LookBehind()
	if look > 6 {
		look = 6
	}
	st := &divisionState{
		jc:         jc,
		strategy:   strategy,
		norm:       in.Norm,
		rest:       time.Duration(jc.Settings.WeeklyRestMinutes()) * time.Minute,
		ceiling:    minutesToHours(jc.Settings.DailyCeilingMinutes()),
		firstStart: jc.Month.AddDate(0, 0, -look),
		lastStart:  jc.MonthEnd().AddDate(0, 0, -6),
	}

	for _, item := range in.Facts {
		dayType, err := jc.Catalog.Lookup(item.DayTypeCode)
		if err != nil {
			return nil, err
		}
		if dayType.IsDayOff {
			st.dayOffs = append(st.dayOffs, item)
			continue
		}
		s := newShift(item, dayType)
		if item.FactWithoutPlan {
			s.moveOut(PhaseWithoutPlan)
		}
		st.shifts = append(st.shifts, s)
	}

	for _, item := range in.LookBehind {
		if item.TimesheetType != models.TimesheetMain || item.Dt.Before(st.firstStart) || !item.Dt.Before(jc.Month) {
			continue
		}
		dayType, err := jc.Catalog.Lookup(item.DayTypeCode)
		if err != nil {
			return nil, err
		}
		if dayType.IsDayOff {
			continue
		}
		s := newShift(item, dayType)
		s.fixed = true
		if s.timed {
			st.lookBehind = append(st.lookBehind, s)
		}
	}
	return st, nil
}

func (st *divisionState) phaseDayOff() PhaseResult {
	res := PhaseResult{Hours: decimal.Zero}
	for _, item := range st.dayOffs {
		res.Moved++
		res.Hours = res.Hours.Add(item.TotalHours())
	}
	return res
}

func (st *divisionState) phaseWeeklyRest() PhaseResult {
	res := PhaseResult{Hours: decimal.Zero}
	for d := st.firstStart; !d.After(st.lastStart); d = d.AddDate(0, 0, 1) {
		ws, we := d, d.AddDate(0, 0, 7)
		for !st.windowRested(ws, we) {
			candidates := st.windowCandidates(ws, we)
			if len(candidates) == 0 {
				res.Warnings = append(res.Warnings, fmt.Sprintf("week from %s lacks %s of continuous rest and has no movable shift", ws.Format("2006-01-02"), st.rest))
				break
			}
			picked := st.strategy.restCandidate(candidates)
			res.Moved++
			res.Hours = res.Hours.Add(picked.mainHours())
			picked.moveOut(PhaseWeeklyRest)
		}
	}
	return res
}

// windowRested reports whether [ws, we) contains a stretch without MAIN work of at least the rest threshold.
func (st *divisionState) windowRested(ws, we time.Time) bool {
	type span struct{ start, end time.Time }
	var busy []span
	collect := func(s *shift) {
		if !s.timed || !s.end.After(ws) || !s.start.Before(we) {
			return
		}
		busy = append(busy, span{maxTime(s.start, ws), minTime(s.end, we)})
	}
	for _, s := range st.lookBehind {
		collect(s)
	}
	for _, s := range st.shifts {
		if s.inMain {
			collect(s)
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })

	cursor := ws
	for _, b := range busy {
		if b.start.Sub(cursor) >= st.rest {
			return true
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	return we.Sub(cursor) >= st.rest
}

func (st *divisionState) windowCandidates(ws, we time.Time) []*shift {
	var out []*shift
	for _, s := range st.shifts {
		if s.inMain && !s.fixed && s.timed && s.end.After(ws) && s.start.Before(we) {
			out = append(out, s)
		}
	}
	return out
}

// restHoldsAround re-checks every window touching the shift.
func (st *divisionState) restHoldsAround(s *shift) bool {
	if !s.timed {
		return true
	}
	for d := st.firstStart; !d.After(st.lastStart); d = d.AddDate(0, 0, 1) {
		ws, we := d, d.AddDate(0, 0, 7)
		if s.end.After(ws) && s.start.Before(we) && !st.windowRested(ws, we) {
			return false
		}
	}
	return true
}

func (st *divisionState) dateTotal(dt time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, item := range st.dayOffs {
		if item.Dt.Equal(dt) {
			total = total.Add(item.TotalHours())
		}
	}
	for _, s := range st.shifts {
		if s.item.Dt.Equal(dt) {
			total = total.Add(s.mainHours())
		}
	}
	return total
}

func (st *divisionState) phaseDailyCeiling() PhaseResult {
	res := PhaseResult{Hours: decimal.Zero}
	dates := make(map[time.Time]struct{})
	for _, s := range st.shifts {
		dates[s.item.Dt] = struct{}{}
	}
	ordered := make([]time.Time, 0, len(dates))
	for dt := range dates {
		ordered = append(ordered, dt)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	for _, dt := range ordered {
		overflow := st.dateTotal(dt).Sub(st.ceiling)
		if !overflow.IsPositive() {
			continue
		}
		var candidates []*shift
		for _, s := range st.shifts {
			if s.inMain && s.item.Dt.Equal(dt) {
				candidates = append(candidates, s)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sortTime().After(candidates[j].sortTime()) })

		for _, s := range candidates {
			if !overflow.IsPositive() {
				break
			}
			taken := st.slice(s, overflow)
			if taken.IsPositive() {
				res.Moved++
				res.Hours = res.Hours.Add(taken)
				overflow = overflow.Sub(taken)
			}
		}
		if overflow.IsPositive() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s exceeds the daily ceiling by %s hours with nothing left to slice", dt.Format("2006-01-02"), overflow.String()))
		}
	}
	return res
}

// slice moves up to want hours of the shift's MAIN part to ADDITIONAL keeping the day/night ratio.
func (st *divisionState) slice(s *shift, want decimal.Decimal) decimal.Decimal {
	mainDay := s.item.DayHours.Sub(s.sliceDay)
	mainNight := s.item.NightHours.Sub(s.sliceNight)
	avail := mainDay.Add(mainNight)
	if !avail.IsPositive() {
		return decimal.Zero
	}
	take := decimal.Min(want, avail)
	night := take.Mul(mainNight).Div(avail).Round(2)
	if night.GreaterThan(mainNight) {
		night = mainNight
	}
	day := take.Sub(night)
	if day.GreaterThan(mainDay) {
		day = mainDay
		night = take.Sub(day)
	}
	s.sliceDay = s.sliceDay.Add(day)
	s.sliceNight = s.sliceNight.Add(night)
	return take
}

func (st *divisionState) mainWork() decimal.Decimal {
	total := decimal.Zero
	for _, s := range st.shifts {
		total = total.Add(s.mainHours())
	}
	return total
}

func (st *divisionState) phaseNorm() PhaseResult {
	res := PhaseResult{Hours: decimal.Zero}
	limit := st.norm.Add(st.jc.Settings.MainNormSlackHours)
	overtime := st.mainWork().Sub(limit)

	if overtime.IsPositive() {
		var candidates []*shift
		for _, s := range st.shifts {
			if s.inMain && !s.fixed {
				candidates = append(candidates, s)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sortTime().After(candidates[j].sortTime()) })
		for _, s := range candidates {
			if !overtime.IsPositive() {
				break
			}
			h := s.mainHours()
			s.moveOut(PhaseNorm)
			overtime = overtime.Sub(h)
			res.Moved++
			res.Hours = res.Hours.Add(h)
		}
		if overtime.IsPositive() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("main exceeds norm by %s hours with no shift left to demote", overtime.String()))
		}
	}

	if overtime.IsNegative() {
		var candidates []*shift
		for _, s := range st.shifts {
			if !s.inMain && st.strategy.promotable(s) {
				candidates = append(candidates, s)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sortTime().Before(candidates[j].sortTime()) })
		main := st.mainWork()
		for _, s := range candidates {
			h := s.total()
			if main.Add(h).GreaterThan(limit) {
				continue
			}
			previous := s.movedBy
			s.inMain, s.movedBy = true, ""
			if !st.restHoldsAround(s) || st.dateTotal(s.item.Dt).GreaterThan(st.ceiling) {
				s.inMain, s.movedBy = false, previous
				continue
			}
			main = main.Add(h)
			res.Promoted++
			res.Hours = res.Hours.Sub(h)
		}
	}
	return res
}

func (st *divisionState) phaseWithoutPlan() PhaseResult {
	res := PhaseResult{Hours: decimal.Zero}
	for _, s := range st.shifts {
		if s.movedBy == PhaseWithoutPlan {
			res.Moved++
			res.Hours = res.Hours.Add(s.total())
		}
	}
	return res
}

func (st *divisionState) output() ([]models.TimesheetItem, []models.TimesheetItem) {
	var main, additional []models.TimesheetItem
	for _, item := range st.dayOffs {
		main = append(main, st.derive(item, models.TimesheetMain, item.DayHours, item.NightHours))
	}
	for _, s := range st.shifts {
		if s.inMain {
			main = append(main, st.derive(s.item, models.TimesheetMain, s.item.DayHours.Sub(s.sliceDay), s.item.NightHours.Sub(s.sliceNight)))
			if s.sliceDay.Add(s.sliceNight).IsPositive() {
				additional = append(additional, st.derive(s.item, models.TimesheetAdditional, s.sliceDay, s.sliceNight))
			}
			continue
		}
		additional = append(additional, st.derive(s.item, models.TimesheetAdditional, s.item.DayHours, s.item.NightHours))
	}
	sortTimesheetItems(st.jc.Catalog, main)
	sortTimesheetItems(st.jc.Catalog, additional)
	return main, additional
}

func (st *divisionState) derive(fact models.TimesheetItem, sheet models.TimesheetType, day, night decimal.Decimal) models.TimesheetItem {
	item := fact
	source := derefString(fact.SourceDayRecordID)
	if source == "" {
		source = fact.ID
	}
	item.ID = timesheetItemID(fact.EmployeeID, fact.Dt, sheet, source, 0)
	item.TimesheetType = sheet
	item.DayHours = day
	item.NightHours = night
	return item
}
