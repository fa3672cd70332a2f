package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RoundWorkHoursAlg selects post-computation rounding.
type RoundWorkHoursAlg string

const (
	RoundNone         RoundWorkHoursAlg = ""
	RoundToHalfAnHour RoundWorkHoursAlg = "round_to_half_an_hour"
)

// Divider strategy aliases.
const (
	DividerAliasNahodka = "nahodka"
	DividerAliasPobeda  = "pobeda"
	DividerAliasNone    = "none"
)

const (
	defaultDailyCeilingHrs = 12
	defaultWeeklyRestHrs   = 48
	defaultLookBehindDays  = 6
)

// Network is a retail network owning shops, employees and settings.
type Network struct {
	ID       string          `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Settings NetworkSettings `db:"settings" json:"settings"`
}

// FineRule configures penalties for one position pattern.
// Each fine tuple is [from_minutes, to_minutes, penalty_minutes] over a half-open range.
type FineRule struct {
	ArriveFines    [][3]int `json:"arrive_fines"`
	DepartureFines [][3]int `json:"departure_fines"`
	ArriveStep     int      `json:"arrive_step"`
	DepartureStep  int      `json:"departure_step"`
}

// FinePattern binds a position-name regular expression to its fine rule.
type FinePattern struct {
	Pattern string `json:"pattern"`
	FineRule
}

// FinesSettings is an ordered list of fine patterns; the first one matching a position name wins.
// It reads either an array of patterns or an object keyed by pattern, taken in document order,
// and always writes the array form since jsonb does not keep object key order.
type FinesSettings []FinePattern

// UnmarshalJSON implements json.Unmarshaler.
func (f *FinesSettings) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []FinePattern
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("fines_settings: %w", err)
		}
		*f = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return fmt.Errorf("fines_settings must be an object or an array")
	}
	out := FinesSettings{}
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("fines_settings: %w", err)
		}
		pattern, _ := tok.(string)
		var rule FineRule
		if err := dec.Decode(&rule); err != nil {
			return fmt.Errorf("fines_settings[%q]: %w", pattern, err)
		}
		// a repeated key keeps its first position and its last value
		if idx, ok := seen[pattern]; ok {
			out[idx].FineRule = rule
			continue
		}
		seen[pattern] = len(out)
		out = append(out, FinePattern{Pattern: pattern, FineRule: rule})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("fines_settings: %w", err)
	}
	*f = out
	return nil
}

// Duration accepts seconds, Go durations ("5m") or HH:MM:SS in JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*d = 0
		return nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) == 3 {
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		s, errS := strconv.Atoi(parts[2])
		if errH == nil && errM == nil && errS == nil {
			*d = Duration(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
			return nil
		}
	}
	return fmt.Errorf("invalid duration %q", raw)
}

// MarshalJSON writes whole seconds.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(time.Duration(d)/time.Second), 10)), nil
}

// Minutes returns the duration in whole minutes.
func (d Duration) Minutes() int {
	return int(time.Duration(d) / time.Minute)
}

// NetworkSettings is the flat settings object recognised by the timesheet core.
type NetworkSettings struct {
	CropWorkHoursByShopSchedule                         bool                `json:"crop_work_hours_by_shop_schedule"`
	OnlyFactHoursThatInApprovedPlan                     bool                `json:"only_fact_hours_that_in_approved_plan"`
	RoundWorkHoursAlg                                   RoundWorkHoursAlg   `json:"round_work_hours_alg"`
	AllowedIntervalForLateArrival                       Duration            `json:"allowed_interval_for_late_arrival"`
	AllowedIntervalForEarlyDeparture                    Duration            `json:"allowed_interval_for_early_departure"`
	AccountingPeriodLength                              int                 `json:"accounting_period_length"`
	ConsiderRemainingHoursInPrevMonthsWhenCalcNormHours bool                `json:"consider_remaining_hours_in_prev_months_when_calc_norm_hours"`
	FinesSettings                                       FinesSettings       `json:"fines_settings"`
	TimesheetMinHoursThreshold                          decimal.Decimal     `json:"timesheet_min_hours_threshold"`
	GetPositionFromWorkTypeNameInCalcTimesheet          bool                `json:"get_position_from_work_type_name_in_calc_timesheet"`
	AllowCreationSeveralWdaysForOneEmployeeForOneDate   bool                `json:"allow_creation_several_wdays_for_one_employee_for_one_date"`
	FiscalSheetDividerAlias                             string              `json:"fiscal_sheet_divider_alias"`

	NightStart         *TimeOfDay      `json:"night_start,omitempty"`
	NightEnd           *TimeOfDay      `json:"night_end,omitempty"`
	DailyHoursCeiling  decimal.Decimal `json:"daily_hours_ceiling"`
	WeeklyRestHours    decimal.Decimal `json:"weekly_rest_hours"`
	LookBehindDays     *int            `json:"look_behind_days,omitempty"`
	MaxShiftOffset     Duration        `json:"max_shift_offset"`
	MainNormSlackHours decimal.Decimal `json:"main_norm_slack_hours"`
}

// NightWindow returns the configured night window, 22:00-06:00 by default.
func (s NetworkSettings) NightWindow() (TimeOfDay, TimeOfDay) {
	start, end := NewTimeOfDay(22, 0), NewTimeOfDay(6, 0)
	if s.NightStart != nil {
		start = *s.NightStart
	}
	if s.NightEnd != nil {
		end = *s.NightEnd
	}
	return start, end
}

// DailyCeilingMinutes returns the MAIN per-date ceiling in minutes.
func (s NetworkSettings) DailyCeilingMinutes() int {
	if !s.DailyHoursCeiling.IsPositive() {
		return defaultDailyCeilingHrs * 60
	}
	return int(s.DailyHoursCeiling.Mul(decimal.NewFromInt(60)).Round(0).IntPart())
}

// WeeklyRestMinutes returns the continuous weekly rest threshold in minutes.
func (s NetworkSettings) WeeklyRestMinutes() int {
	if !s.WeeklyRestHours.IsPositive() {
		return defaultWeeklyRestHrs * 60
	}
	return int(s.WeeklyRestHours.Mul(decimal.NewFromInt(60)).Round(0).IntPart())
}

// LookBehind returns how many days of the previous month take part in the rest check.
func (s NetworkSettings) LookBehind() int {
	if s.LookBehindDays == nil || *s.LookBehindDays < 0 {
		return defaultLookBehindDays
	}
	return *s.LookBehindDays
}

// MaxShiftOffsetOrDefault bounds the fact-to-plan matching distance.
func (s NetworkSettings) MaxShiftOffsetOrDefault() time.Duration {
	if s.MaxShiftOffset <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(s.MaxShiftOffset)
}

// DividerAlias returns the configured alias or the provided fallback.
func (s NetworkSettings) DividerAlias(fallback string) string {
	if s.FiscalSheetDividerAlias == "" {
		return fallback
	}
	return s.FiscalSheetDividerAlias
}

// Value marshals settings to JSON for persistence.
func (s NetworkSettings) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal network settings: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the settings struct.
func (s *NetworkSettings) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan network settings: %w", err)
	}
	if len(data) == 0 {
		*s = NetworkSettings{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal network settings: %w", err)
	}
	return nil
}
