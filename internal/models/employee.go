package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the payroll subject, stable across job changes.
type Employee struct {
	ID        string `db:"id" json:"id"`
	NetworkID string `db:"network_id" json:"network_id"`
	TabelCode string `db:"tabel_code" json:"tabel_code"`
}

// Employment binds an employee to a shop for a time window.
type Employment struct {
	ID            string          `db:"id" json:"id"`
	EmployeeID    string          `db:"employee_id" json:"employee_id"`
	ShopID        string          `db:"shop_id" json:"shop_id"`
	PositionID    *string         `db:"position_id" json:"position_id,omitempty"`
	DtHired       time.Time       `db:"dt_hired" json:"dt_hired"`
	DtFired       *time.Time      `db:"dt_fired" json:"dt_fired,omitempty"`
	NormWorkHours decimal.Decimal `db:"norm_work_hours" json:"norm_work_hours"`
	IsVisible     bool            `db:"is_visible" json:"is_visible"`
}

// ActiveOn reports whether the employment covers the given date (hire and fire dates inclusive).
func (e Employment) ActiveOn(dt time.Time) bool {
	d := TruncateDay(dt)
	if d.Before(TruncateDay(e.DtHired)) {
		return false
	}
	if e.DtFired != nil && d.After(TruncateDay(*e.DtFired)) {
		return false
	}
	return true
}

// Fraction returns the employment norm fraction as a share of one (100% -> 1, 0% -> 0).
func (e Employment) Fraction() decimal.Decimal {
	return e.NormWorkHours.Div(decimal.NewFromInt(100))
}

// SortEmployments orders employments by visibility first, then by the larger norm fraction.
func SortEmployments(list []Employment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsVisible != list[j].IsVisible {
			return list[i].IsVisible
		}
		return list[i].NormWorkHours.GreaterThan(list[j].NormWorkHours)
	})
}

// Position carries the weekly hours default and break schedule.
type Position struct {
	ID           string          `db:"id" json:"id"`
	NetworkID    string          `db:"network_id" json:"network_id"`
	Name         string          `db:"name" json:"name"`
	HoursInAWeek decimal.Decimal `db:"hours_in_a_week" json:"hours_in_a_week"`
	Breaks       BreakRules      `db:"breaks" json:"breaks"`
}

// WeekShare returns hours_in_a_week / 40, defaulting to a full week.
func (p *Position) WeekShare() decimal.Decimal {
	if p == nil || p.HoursInAWeek.IsZero() {
		return decimal.NewFromInt(1)
	}
	return p.HoursInAWeek.Div(decimal.NewFromInt(40))
}

// BreakRule applies its breaks to shifts whose length falls in [MinShiftMinutes, MaxShiftMinutes).
type BreakRule struct {
	MinShiftMinutes int
	MaxShiftMinutes int
	Breaks          []int
}

// UnmarshalJSON accepts the tuple form [min, max, [break, ...]].
func (b *BreakRule) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("break rule: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("break rule: expected 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &b.MinShiftMinutes); err != nil {
		return fmt.Errorf("break rule min: %w", err)
	}
	if err := json.Unmarshal(raw[1], &b.MaxShiftMinutes); err != nil {
		return fmt.Errorf("break rule max: %w", err)
	}
	if err := json.Unmarshal(raw[2], &b.Breaks); err != nil {
		return fmt.Errorf("break rule breaks: %w", err)
	}
	if b.MaxShiftMinutes < b.MinShiftMinutes {
		return fmt.Errorf("break rule: max %d below min %d", b.MaxShiftMinutes, b.MinShiftMinutes)
	}
	return nil
}

// MarshalJSON writes the tuple form.
func (b BreakRule) MarshalJSON() ([]byte, error) {
	breaks := b.Breaks
	if breaks == nil {
		breaks = []int{}
	}
	return json.Marshal([]interface{}{b.MinShiftMinutes, b.MaxShiftMinutes, breaks})
}

// BreakRules is the ordered break schedule of a position, persisted as JSONB.
type BreakRules []BreakRule

// Match returns the total break minutes for the first rule whose range contains the shift length.
func (r BreakRules) Match(shiftMinutes int) int {
	for _, rule := range r {
		if shiftMinutes >= rule.MinShiftMinutes && shiftMinutes < rule.MaxShiftMinutes {
			total := 0
			for _, b := range rule.Breaks {
				total += b
			}
			return total
		}
	}
	return 0
}

// Value marshals rules to JSON for persistence.
func (r BreakRules) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal([]BreakRule(r))
	if err != nil {
		return nil, fmt.Errorf("marshal break rules: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the rules.
func (r *BreakRules) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan break rules: %w", err)
	}
	if len(data) == 0 {
		*r = nil
		return nil
	}
	var rules []BreakRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("unmarshal break rules: %w", err)
	}
	*r = rules
	return nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
