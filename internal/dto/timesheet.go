package dto

import (
	"time"

	"github.com/noah-isme/wfm-timesheet/internal/models"
)

// DateLayout is the wire format of every date in the timesheet API.
const DateLayout = "2006-01-02"

// CalcTimesheetRequest is the payload of calc_timesheet.
type CalcTimesheetRequest struct {
	EmployeeIDs []string `json:"employee_ids" validate:"required,min=1,dive,required"`
	DtFrom      string   `json:"dt_from" validate:"required,datetime=2006-01-02"`
	DtTo        string   `json:"dt_to" validate:"required,datetime=2006-01-02"`
	Reraise     bool     `json:"reraise"`
}

// Range parses the request dates. Validation has already checked the layout.
func (r CalcTimesheetRequest) Range() (time.Time, time.Time, error) {
	return parseRange(r.DtFrom, r.DtTo)
}

// CalcJobAccepted is returned when a calculation is queued.
type CalcJobAccepted struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// TimesheetStatsQuery captures the query string of get_timesheet_stats.
type TimesheetStatsQuery struct {
	EmployeeIDs []string `validate:"required,min=1,dive,required"`
	DtFrom      string   `validate:"required,datetime=2006-01-02"`
	DtTo        string   `validate:"required,datetime=2006-01-02"`
	IncludeNorm bool
}

// Scope converts the query into a service scope.
func (q TimesheetStatsQuery) Scope() (models.StatsScope, error) {
	from, to, err := parseRange(q.DtFrom, q.DtTo)
	if err != nil {
		return models.StatsScope{}, err
	}
	return models.StatsScope{EmployeeIDs: q.EmployeeIDs, DtFrom: from, DtTo: to, IncludeNorm: q.IncludeNorm}, nil
}

// InvalidateCalendarRequest drops cached production calendar months. An empty region clears all.
type InvalidateCalendarRequest struct {
	RegionID string `json:"region_id"`
}

// CalendarDayPayload is one imported production calendar date.
type CalendarDayPayload struct {
	RegionID string `json:"region_id" yaml:"region_id" validate:"required"`
	Dt       string `json:"dt" yaml:"dt" validate:"required,datetime=2006-01-02"`
	Kind     string `json:"kind" yaml:"kind" validate:"required,oneof=WORK SHORT_WORK HOLIDAY"`
}

// ImportCalendarRequest uploads production calendar dates.
type ImportCalendarRequest struct {
	Days []CalendarDayPayload `json:"days" yaml:"days" validate:"required,min=1,dive"`
}

// Models converts the payload to calendar entries.
func (r ImportCalendarRequest) Models() ([]models.ProductionCalendarDay, error) {
	days := make([]models.ProductionCalendarDay, 0, len(r.Days))
	for _, day := range r.Days {
		dt, err := time.Parse(DateLayout, day.Dt)
		if err != nil {
			return nil, err
		}
		days = append(days, models.ProductionCalendarDay{RegionID: day.RegionID, Dt: dt, Kind: models.DayKind(day.Kind)})
	}
	return days, nil
}

func parseRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(DateLayout, rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
