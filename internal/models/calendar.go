package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayKind classifies a production calendar date.
type DayKind string

const (
	DayKindWork      DayKind = "WORK"
	DayKindShortWork DayKind = "SHORT_WORK"
	DayKindHoliday   DayKind = "HOLIDAY"
)

// StandardHours returns the statutory daily hours for the kind.
func (k DayKind) StandardHours() decimal.Decimal {
	switch k {
	case DayKindWork:
		return decimal.NewFromInt(8)
	case DayKindShortWork:
		return decimal.NewFromInt(7)
	default:
		return decimal.Zero
	}
}

// ProductionCalendarDay is a single regional production calendar entry.
type ProductionCalendarDay struct {
	RegionID string    `db:"region_id" json:"region_id"`
	Dt       time.Time `db:"dt" json:"dt"`
	Kind     DayKind   `db:"kind" json:"kind"`
}

// DefaultDayKind is the fallback calendar: Monday to Friday are working days.
func DefaultDayKind(dt time.Time) DayKind {
	switch dt.Weekday() {
	case time.Saturday, time.Sunday:
		return DayKindHoliday
	default:
		return DayKindWork
	}
}
