package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayRecord is a planned or actual (fact) day of an employee.
type DayRecord struct {
	ID                    string          `db:"id" json:"id"`
	EmployeeID            string          `db:"employee_id" json:"employee_id"`
	Dt                    time.Time       `db:"dt" json:"dt"`
	IsFact                bool            `db:"is_fact" json:"is_fact"`
	IsApproved            bool            `db:"is_approved" json:"is_approved"`
	DayTypeCode           string          `db:"day_type" json:"day_type"`
	DttmWorkStart         *time.Time      `db:"dttm_work_start" json:"dttm_work_start,omitempty"`
	DttmWorkEnd           *time.Time      `db:"dttm_work_end" json:"dttm_work_end,omitempty"`
	ShopID                *string         `db:"shop_id" json:"shop_id,omitempty"`
	EmploymentID          *string         `db:"employment_id" json:"employment_id,omitempty"`
	WorkHours             decimal.Decimal `db:"work_hours" json:"work_hours"`
	WorkTypeName          *string         `db:"work_type_name" json:"work_type_name,omitempty"`
	ClosestPlanApprovedID *string         `db:"closest_plan_approved_id" json:"closest_plan_approved_id,omitempty"`
}

// HasInterval reports whether both boundaries are present.
func (r DayRecord) HasInterval() bool {
	return r.DttmWorkStart != nil && r.DttmWorkEnd != nil
}

// Interval returns the work interval, moving an end before the start to the next day.
func (r DayRecord) Interval() (time.Time, time.Time, bool) {
	if !r.HasInterval() {
		return time.Time{}, time.Time{}, false
	}
	start, end := *r.DttmWorkStart, *r.DttmWorkEnd
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end, true
}

// DayRecordFilter scopes approved record lookups.
type DayRecordFilter struct {
	EmployeeIDs []string
	DtFrom      time.Time
	DtTo        time.Time
}
