package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimesheetType names one of the three parallel sheets.
type TimesheetType string

const (
	TimesheetFact       TimesheetType = "FACT"
	TimesheetMain       TimesheetType = "MAIN"
	TimesheetAdditional TimesheetType = "ADDITIONAL"
)

// TimesheetItem is a materialised timesheet row.
type TimesheetItem struct {
	ID                string          `db:"id" json:"id"`
	EmployeeID        string          `db:"employee_id" json:"employee_id"`
	Dt                time.Time       `db:"dt" json:"dt"`
	TimesheetType     TimesheetType   `db:"timesheet_type" json:"timesheet_type"`
	DayTypeCode       string          `db:"day_type" json:"day_type"`
	ShopID            *string         `db:"shop_id" json:"shop_id,omitempty"`
	PositionID        *string         `db:"position_id" json:"position_id,omitempty"`
	DayHours          decimal.Decimal `db:"day_hours" json:"day_hours"`
	NightHours        decimal.Decimal `db:"night_hours" json:"night_hours"`
	DttmWorkStart     *time.Time      `db:"dttm_work_start" json:"dttm_work_start,omitempty"`
	DttmWorkEnd       *time.Time      `db:"dttm_work_end" json:"dttm_work_end,omitempty"`
	SourceDayRecordID *string         `db:"source_day_record_id" json:"source_day_record_id,omitempty"`
	FactWithoutPlan   bool            `db:"fact_without_plan" json:"fact_without_plan"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// TotalHours returns day plus night hours.
func (t TimesheetItem) TotalHours() decimal.Decimal {
	return t.DayHours.Add(t.NightHours)
}

// TimesheetFilter scopes timesheet item reads.
// MonthDayTypeHours is the MAIN total of one day type within a month ("2006-01").
type MonthDayTypeHours struct {
	Month       string          `db:"month" json:"month"`
	DayTypeCode string          `db:"day_type" json:"day_type"`
	Hours       decimal.Decimal `db:"hours" json:"hours"`
}

type TimesheetFilter struct {
	EmployeeIDs []string
	DtFrom      time.Time
	DtTo        time.Time
	Types       []TimesheetType
}

// EmployeeError reports a failed employee-month division.
type EmployeeError struct {
	EmployeeID string    `json:"employee_id"`
	Month      time.Time `json:"month"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}

// CalcStats summarises a calc_timesheet run.
type CalcStats struct {
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Deleted   int             `json:"deleted"`
	Succeeded []string        `json:"succeeded"`
	Errors    []EmployeeError `json:"errors,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Merge folds another run's counters in.
func (s *CalcStats) Merge(other CalcStats) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Deleted += other.Deleted
	s.Succeeded = append(s.Succeeded, other.Succeeded...)
	s.Errors = append(s.Errors, other.Errors...)
	s.Warnings = append(s.Warnings, other.Warnings...)
}

// HoursTotals groups plan/fact/main/additional sums.
type HoursTotals struct {
	Plan       decimal.Decimal `json:"plan"`
	Fact       decimal.Decimal `json:"fact"`
	Main       decimal.Decimal `json:"main"`
	Additional decimal.Decimal `json:"additional"`
}

// EmployeeTimesheetStats aggregates an employee's sheets by day and by month.
type EmployeeTimesheetStats struct {
	EmployeeID string                 `json:"employee_id"`
	Total      HoursTotals            `json:"total"`
	ByDay      map[string]HoursTotals `json:"by_day"`
	ByMonth    map[string]HoursTotals `json:"by_month"`
	Norm       map[string]string      `json:"norm,omitempty"`
}

// StatsScope narrows get_timesheet_stats.
type StatsScope struct {
	EmployeeIDs []string
	DtFrom      time.Time
	DtTo        time.Time
	// IncludeNorm adds the monthly norm of every employee-month in range.
	IncludeNorm bool
}
