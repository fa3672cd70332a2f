package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshalJSONFormats(t *testing.T) {
	cases := map[string]time.Duration{
		`300`:        5 * time.Minute,
		`"5m"`:       5 * time.Minute,
		`"00:05:00"`: 5 * time.Minute,
		`"01:30:00"`: 90 * time.Minute,
		`null`:       0,
	}
	for raw, want := range cases {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.Equal(t, want, time.Duration(d), raw)
	}

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "90", string(out))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("22:30:00")
	require.NoError(t, err)
	assert.Equal(t, "22:30", tod.String())

	day := time.Date(2024, time.January, 8, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.January, 8, 22, 30, 0, 0, time.UTC), tod.On(day))

	var scanned TimeOfDay
	require.NoError(t, scanned.Scan(time.Date(0, 1, 1, 6, 15, 0, 0, time.UTC)))
	assert.Equal(t, NewTimeOfDay(6, 15), scanned)
	assert.Error(t, scanned.Scan(42))

	value, err := NewTimeOfDay(9, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "09:05:00", value)
}

func TestShopScheduleWindowCrossesMidnight(t *testing.T) {
	opens, closes := NewTimeOfDay(20, 0), NewTimeOfDay(2, 0)
	schedule := ShopSchedule{Dt: time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), Type: ShopScheduleWorkday, OpensAt: &opens, ClosesAt: &closes}

	from, to, ok := schedule.Window(time.UTC)
	require.True(t, ok)
	assert.Equal(t, 6*time.Hour, to.Sub(from))
	assert.Equal(t, 9, to.Day())
}

func TestBreakRulesJSON(t *testing.T) {
	var rules BreakRules
	require.NoError(t, rules.Scan([]byte(`[[0, 360, [15]], [360, 1440, [30, 15]]]`)))
	assert.Equal(t, 15, rules.Match(359))
	assert.Equal(t, 45, rules.Match(360))
	assert.Equal(t, 0, rules.Match(1440))

	value, err := rules.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,360,[15]],[360,1440,[30,15]]]`, string(value.([]byte)))

	var bad BreakRules
	assert.Error(t, bad.Scan(`[[360, 0, []]]`))
	assert.Error(t, bad.Scan(`[[0, 360]]`))
}

func TestEmploymentActiveOnAndSort(t *testing.T) {
	fired := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	employment := Employment{DtHired: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), DtFired: &fired}
	assert.False(t, employment.ActiveOn(time.Date(2024, time.January, 9, 23, 0, 0, 0, time.UTC)))
	assert.True(t, employment.ActiveOn(time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)))
	assert.True(t, employment.ActiveOn(fired))
	assert.False(t, employment.ActiveOn(fired.AddDate(0, 0, 1)))

	list := []Employment{
		{ID: "hidden", IsVisible: false, NormWorkHours: decimal.NewFromInt(100)},
		{ID: "half", IsVisible: true, NormWorkHours: decimal.NewFromInt(50)},
		{ID: "full", IsVisible: true, NormWorkHours: decimal.NewFromInt(100)},
	}
	SortEmployments(list)
	assert.Equal(t, []string{"full", "half", "hidden"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "1", list[0].Fraction().String())
	assert.Equal(t, "0.5", list[1].Fraction().String())
	assert.True(t, Employment{}.Fraction().IsZero())
}

func TestNetworkSettingsScanAndDefaults(t *testing.T) {
	var settings NetworkSettings
	require.NoError(t, settings.Scan([]byte(`{"night_start":"23:00","look_behind_days":0,"daily_hours_ceiling":"10"}`)))

	start, end := settings.NightWindow()
	assert.Equal(t, NewTimeOfDay(23, 0), start)
	assert.Equal(t, NewTimeOfDay(6, 0), end)
	assert.Equal(t, 0, settings.LookBehind())
	assert.Equal(t, 600, settings.DailyCeilingMinutes())
	assert.Equal(t, 48*60, settings.WeeklyRestMinutes())
	assert.Equal(t, 12*time.Hour, settings.MaxShiftOffsetOrDefault())
	assert.Equal(t, DividerAliasNahodka, settings.DividerAlias(DividerAliasNahodka))

	var empty NetworkSettings
	require.NoError(t, empty.Scan(nil))
	assert.Equal(t, defaultLookBehindDays, empty.LookBehind())
}

func TestFinesSettingsKeepDocumentOrder(t *testing.T) {
	var settings NetworkSettings
	raw := `{"fines_settings": {"^Load": {"arrive_fines": [[0, 60, 5]]}, ".*": {"arrive_step": 15}, "^Cash": {"departure_step": 30}, "^Load": {"arrive_fines": [[0, 60, 7]]}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &settings))

	fines := settings.FinesSettings
	require.Len(t, fines, 3)
	assert.Equal(t, []string{"^Load", ".*", "^Cash"}, []string{fines[0].Pattern, fines[1].Pattern, fines[2].Pattern})
	assert.Equal(t, [][3]int{{0, 60, 7}}, fines[0].ArriveFines)
	assert.Equal(t, 15, fines[1].ArriveStep)

	out, err := json.Marshal(settings)
	require.NoError(t, err)
	var again NetworkSettings
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, fines, again.FinesSettings)
	assert.Contains(t, string(out), `"fines_settings":[{"pattern":"^Load"`)

	var empty FinesSettings
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Nil(t, empty)
	assert.Error(t, json.Unmarshal([]byte(`"^Cash"`), &empty))
}

func TestMonthsBetween(t *testing.T) {
	months := MonthsBetween(time.Date(2023, time.December, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, months, 3)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), months[2])
	assert.Equal(t, 29, MonthEnd(months[2]).Day())
}
