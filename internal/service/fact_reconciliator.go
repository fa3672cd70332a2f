package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

var timesheetNamespace = uuid.MustParse("6f1c7a52-3f0e-4c55-9d4e-2b9f4a0c8e11")

// timesheetItemID derives a stable id so that re-runs on unchanged inputs produce identical rows.
func timesheetItemID(employeeID string, dt time.Time, sheet models.TimesheetType, source string, seq int) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%d", employeeID, dt.Format("2006-01-02"), sheet, source, seq)
	return uuid.NewSHA1(timesheetNamespace, []byte(key)).String()
}

// ReconcileResult holds the FACT sheet of one employee-month.
type ReconcileResult struct {
	Items    []models.TimesheetItem
	Warnings []string
}

type dayRecords struct {
	dt    time.Time
	plans []models.DayRecord
	facts []models.DayRecord
}

// FactReconciliator turns approved plan and fact records into FACT timesheet rows.
type FactReconciliator struct {
	logger *zap.Logger
}

// NewFactReconciliator constructs the reconciliator.
func NewFactReconciliator(logger *zap.Logger) *FactReconciliator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactReconciliator{logger: logger}
}

// Reconcile builds the FACT rows of the job month from the approved records.
func (r *FactReconciliator) Reconcile(jc *JobContext, records []models.DayRecord) (ReconcileResult, error) {
	var result ReconcileResult

	days, allPlans, err := r.partition(jc, records)
	if err != nil {
		return result, err
	}

	for _, day := range days {
		if err := r.checkDuplicates(jc, day.dt, day.plans, false); err != nil {
			return result, err
		}
		if err := r.checkDuplicates(jc, day.dt, day.facts, true); err != nil {
			return result, err
		}

		if len(day.facts) == 0 {
			result.Items = append(result.Items, r.planRows(jc, day, &result)...)
			continue
		}
		for _, fact := range day.facts {
			item, ok := r.factRow(jc, fact, allPlans, &result)
			if ok {
				result.Items = append(result.Items, item)
			}
		}
		for _, plan := range day.plans {
			dt := jc.Catalog.MustLookup(plan.DayTypeCode)
			if !dt.IsDayOff || !allowedWithAny(jc.Catalog, plan.DayTypeCode, day.facts) {
				continue
			}
			item, _ := r.buildRow(jc, plan, dt, nil)
			result.Items = append(result.Items, item)
		}
	}

	sortTimesheetItems(jc.Catalog, result.Items)
	return result, nil
}

func (r *FactReconciliator) partition(jc *JobContext, records []models.DayRecord) ([]*dayRecords, []models.DayRecord, error) {
	from, to := jc.Month, jc.MonthEnd()
	byDay := make(map[string]*dayRecords)
	var plans []models.DayRecord
	for _, rec := range records {
		if !rec.IsApproved || rec.EmployeeID != jc.EmployeeID {
			continue
		}
		if _, err := jc.Catalog.Lookup(rec.DayTypeCode); err != nil {
			return nil, nil, appErrors.Configuration("employee %s, %s: %s", jc.EmployeeID, rec.Dt.Format("2006-01-02"), err.Error())
		}
		if !rec.IsFact {
			plans = append(plans, rec)
		}
		dt := models.TruncateDay(rec.Dt)
		if dt.Before(from) || dt.After(to) {
			continue
		}
		key := dt.Format("2006-01-02")
		day, ok := byDay[key]
		if !ok {
			day = &dayRecords{dt: dt}
			byDay[key] = day
		}
		if rec.IsFact {
			day.facts = append(day.facts, rec)
		} else {
			day.plans = append(day.plans, rec)
		}
	}

	days := make([]*dayRecords, 0, len(byDay))
	for _, day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].dt.Before(days[j].dt) })
	return days, plans, nil
}

// checkDuplicates rejects several approved records of one kind on a date unless their types may coexist.
func (r *FactReconciliator) checkDuplicates(jc *JobContext, dt time.Time, records []models.DayRecord, isFact bool) error {
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i].DayTypeCode, records[j].DayTypeCode
			if jc.Catalog.AllowedAdditional(a, b) {
				continue
			}
			if jc.Settings.AllowCreationSeveralWdaysForOneEmployeeForOneDate &&
				!jc.Catalog.MustLookup(a).IsDayOff && !jc.Catalog.MustLookup(b).IsDayOff {
				continue
			}
			kind := "plan"
			if isFact {
				kind = "fact"
			}
			return appErrors.DataIntegrity("employee %s, %s: conflicting approved %s records %s (%s) and %s (%s)",
				jc.EmployeeID, dt.Format("2006-01-02"), kind, records[i].ID, a, records[j].ID, b)
		}
	}
	return nil
}

// planRows emits day-off plans of a date without facts plus plans allowed alongside them.
func (r *FactReconciliator) planRows(jc *JobContext, day *dayRecords, result *ReconcileResult) []models.TimesheetItem {
	var items []models.TimesheetItem
	var dayOffs []models.DayRecord
	for _, plan := range day.plans {
		dt := jc.Catalog.MustLookup(plan.DayTypeCode)
		if !dt.IsDayOff {
			continue
		}
		dayOffs = append(dayOffs, plan)
		item, _ := r.buildRow(jc, plan, dt, nil)
		items = append(items, item)
	}
	for _, plan := range day.plans {
		dt := jc.Catalog.MustLookup(plan.DayTypeCode)
		if dt.IsDayOff || !allowedWithAny(jc.Catalog, plan.DayTypeCode, dayOffs) {
			continue
		}
		item, hours := r.buildRow(jc, plan, dt, nil)
		if hours.Ignored {
			result.Warnings = append(result.Warnings, fmt.Sprintf("employee %s, %s: plan %s has no end time, skipped", jc.EmployeeID, day.dt.Format("2006-01-02"), plan.ID))
			continue
		}
		items = append(items, item)
	}
	return items
}

func (r *FactReconciliator) factRow(jc *JobContext, fact models.DayRecord, plans []models.DayRecord, result *ReconcileResult) (models.TimesheetItem, bool) {
	dt := jc.Catalog.MustLookup(fact.DayTypeCode)
	date := models.TruncateDay(fact.Dt).Format("2006-01-02")

	var plan *models.DayRecord
	withoutPlan := false
	if !dt.IsDayOff {
		var warning string
		plan, warning = closestPlan(jc, fact, plans)
		if warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("employee %s, %s: %s", jc.EmployeeID, date, warning))
		}
		withoutPlan = plan == nil
	}

	item, hours := r.buildRow(jc, fact, dt, plan)
	if hours.Ignored {
		result.Warnings = append(result.Warnings, fmt.Sprintf("employee %s, %s: fact %s has no end time, skipped", jc.EmployeeID, date, fact.ID))
		return item, false
	}
	threshold := jc.Settings.TimesheetMinHoursThreshold
	if !dt.IsDayOff && threshold.IsPositive() && hours.Work.LessThan(threshold) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("employee %s, %s: fact %s below %s hours, skipped", jc.EmployeeID, date, fact.ID, threshold.String()))
		return item, false
	}
	item.FactWithoutPlan = withoutPlan
	return item, true
}

func (r *FactReconciliator) buildRow(jc *JobContext, rec models.DayRecord, dt models.DayType, plan *models.DayRecord) (models.TimesheetItem, WorkHours) {
	position := resolvePosition(jc, rec)
	shopID := rec.ShopID
	if shopID == nil {
		if e, ok := jc.EmploymentOn(rec.Dt); ok {
			id := e.ShopID
			shopID = &id
		}
	}

	hours := jc.Calculator.Calculate(WorkHoursInput{
		Record:   rec,
		DayType:  dt,
		Position: position,
		Schedule: jc.Schedule(shopID, rec.Dt),
		Plan:     plan,
	})

	day := models.TruncateDay(rec.Dt)
	source := rec.ID
	item := models.TimesheetItem{
		ID:                timesheetItemID(jc.EmployeeID, day, models.TimesheetFact, rec.ID, 0),
		EmployeeID:        jc.EmployeeID,
		Dt:                day,
		TimesheetType:     models.TimesheetFact,
		DayTypeCode:       rec.DayTypeCode,
		ShopID:            shopID,
		DayHours:          hours.Day,
		NightHours:        hours.Night,
		DttmWorkStart:     hours.Start,
		DttmWorkEnd:       hours.End,
		SourceDayRecordID: &source,
	}
	if position != nil {
		id := position.ID
		item.PositionID = &id
	}
	return item, hours
}

func resolvePosition(jc *JobContext, rec models.DayRecord) *models.Position {
	if jc.Settings.GetPositionFromWorkTypeNameInCalcTimesheet && rec.WorkTypeName != nil {
		if p := jc.PositionByName(*rec.WorkTypeName); p != nil {
			return p
		}
	}
	if rec.EmploymentID != nil {
		if e, ok := jc.EmploymentByID(*rec.EmploymentID); ok {
			return jc.Position(e.PositionID)
		}
	}
	if e, ok := jc.EmploymentOn(rec.Dt); ok {
		return jc.Position(e.PositionID)
	}
	return nil
}

// closestPlan resolves the plan a fact is compared against. The back-reference wins;
// otherwise the working plan with the nearest start inside the offset is used and
// equidistant plans resolve to the earlier one.
func closestPlan(jc *JobContext, fact models.DayRecord, plans []models.DayRecord) (*models.DayRecord, string) {
	if fact.ClosestPlanApprovedID != nil {
		for i := range plans {
			if plans[i].ID == *fact.ClosestPlanApprovedID {
				return &plans[i], ""
			}
		}
	}
	if fact.DttmWorkStart == nil {
		return nil, ""
	}

	maxOffset := jc.Settings.MaxShiftOffsetOrDefault()
	var best *models.DayRecord
	var bestDist time.Duration
	tie := false
	for i := range plans {
		p := &plans[i]
		if p.DttmWorkStart == nil || jc.Catalog.MustLookup(p.DayTypeCode).IsDayOff {
			continue
		}
		dist := absDuration(fact.DttmWorkStart.Sub(*p.DttmWorkStart))
		if dist > maxOffset {
			continue
		}
		switch {
		case best == nil || dist < bestDist:
			best, bestDist, tie = p, dist, false
		case dist == bestDist:
			tie = true
			if p.DttmWorkStart.Before(*best.DttmWorkStart) {
				best = p
			}
		}
	}
	if tie {
		return best, fmt.Sprintf("fact %s is equidistant to several plans, matched %s", fact.ID, best.ID)
	}
	return best, ""
}

func allowedWithAny(catalog *DayTypeCatalog, code string, records []models.DayRecord) bool {
	for _, rec := range records {
		if catalog.AllowedAdditional(code, rec.DayTypeCode) {
			return true
		}
	}
	return false
}

// sortTimesheetItems orders rows by date, then by higher day type ordering, then by start.
func sortTimesheetItems(catalog *DayTypeCatalog, items []models.TimesheetItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Dt.Equal(b.Dt) {
			return a.Dt.Before(b.Dt)
		}
		oa, ob := catalog.MustLookup(a.DayTypeCode).Ordering, catalog.MustLookup(b.DayTypeCode).Ordering
		if oa != ob {
			return oa > ob
		}
		sa, sb := a.DttmWorkStart, b.DttmWorkStart
		if sa != nil && sb != nil && !sa.Equal(*sb) {
			return sa.Before(*sb)
		}
		if (sa == nil) != (sb == nil) {
			return sa == nil
		}
		if a.TimesheetType != b.TimesheetType {
			return a.TimesheetType < b.TimesheetType
		}
		if sa, sb := derefString(a.SourceDayRecordID), derefString(b.SourceDayRecordID); sa != sb {
			return sa < sb
		}
		return a.ID < b.ID
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
