package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Shop is a node of the network's shop tree; regions are inherited from ancestors.
type Shop struct {
	ID        string  `db:"id" json:"id"`
	NetworkID string  `db:"network_id" json:"network_id"`
	ParentID  *string `db:"parent_id" json:"parent_id,omitempty"`
	RegionID  *string `db:"region_id" json:"region_id,omitempty"`
}

// ShopScheduleType distinguishes open days from closed days.
type ShopScheduleType string

const (
	ShopScheduleWorkday ShopScheduleType = "W"
	ShopScheduleDayOff  ShopScheduleType = "H"
)

// ShopSchedule is the opening window of a shop on a date.
type ShopSchedule struct {
	ShopID   string           `db:"shop_id" json:"shop_id"`
	Dt       time.Time        `db:"dt" json:"dt"`
	Type     ShopScheduleType `db:"type" json:"type"`
	OpensAt  *TimeOfDay       `db:"opens" json:"opens,omitempty"`
	ClosesAt *TimeOfDay       `db:"closes" json:"closes,omitempty"`
}

// Window returns the opening interval anchored on the schedule date.
// A closing time at or before the opening time belongs to the next day.
func (s ShopSchedule) Window(loc *time.Location) (time.Time, time.Time, bool) {
	if s.Type == ShopScheduleDayOff || s.OpensAt == nil || s.ClosesAt == nil {
		return time.Time{}, time.Time{}, false
	}
	day := time.Date(s.Dt.Year(), s.Dt.Month(), s.Dt.Day(), 0, 0, 0, 0, loc)
	opens := s.OpensAt.On(day)
	closes := s.ClosesAt.On(day)
	if !closes.After(opens) {
		closes = closes.Add(24 * time.Hour)
	}
	return opens, closes, true
}

// TimeOfDay is a wall-clock time stored as minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", raw)
}

// On anchors the time of day on the given date.
func (t TimeOfDay) On(day time.Time) time.Time {
	return TruncateDay(day).Add(time.Duration(t) * time.Minute)
}

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(data []byte) error {
	parsed, err := ParseTimeOfDay(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as HH:MM:SS.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan reads postgres TIME values.
func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute())
		return nil
	case []byte:
		return t.UnmarshalText(v)
	case string:
		return t.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("unsupported type %T for TimeOfDay", value)
	}
}

// TruncateDay drops the clock part keeping the location.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MonthStart returns the first day of the month containing t.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last day of the month containing t.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// MonthsBetween lists month starts overlapping [from, to].
func MonthsBetween(from, to time.Time) []time.Time {
	var months []time.Time
	for m := MonthStart(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
