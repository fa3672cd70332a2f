package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func hours(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func cashier(breaks models.BreakRules) *models.Position {
	return &models.Position{ID: "pos-cashier", Name: "Cashier", HoursInAWeek: decimal.NewFromInt(40), Breaks: breaks}
}

func workRecord(isFact bool, start, end time.Time) models.DayRecord {
	return models.DayRecord{
		ID:            "rec",
		EmployeeID:    "emp-1",
		Dt:            models.TruncateDay(start),
		IsFact:        isFact,
		IsApproved:    true,
		DayTypeCode:   models.DayTypeWorkday,
		DttmWorkStart: timePtr(start),
		DttmWorkEnd:   timePtr(end),
	}
}

func seedType(t *testing.T, code string) models.DayType {
	t.Helper()
	for _, dt := range models.DefaultDayTypes() {
		if dt.Code == code {
			return dt
		}
	}
	t.Fatalf("unknown seed type %s", code)
	return models.DayType{}
}

func TestWorkHoursCalculatorGraceWithinPlan(t *testing.T) {
	settings := models.NetworkSettings{
		OnlyFactHoursThatInApprovedPlan:  true,
		AllowedIntervalForLateArrival:    models.Duration(5 * time.Minute),
		AllowedIntervalForEarlyDeparture: models.Duration(5 * time.Minute),
		FinesSettings: models.FinesSettings{
			{Pattern: ".*", FineRule: models.FineRule{ArriveFines: [][3]int{{-5, 10, 60}, {60, 3600, 120}}}},
		},
	}
	calc, err := NewWorkHoursCalculator(settings)
	require.NoError(t, err)

	plan := workRecord(false, at(10, 10, 0), at(10, 20, 0))
	result := calc.Calculate(WorkHoursInput{
		Record:   workRecord(true, at(10, 9, 53), at(10, 20, 10)),
		DayType:  seedType(t, models.DayTypeWorkday),
		Position: cashier(models.BreakRules{{MinShiftMinutes: 60, MaxShiftMinutes: 1440, Breaks: []int{30}}}),
		Plan:     &plan,
	})

	assert.Equal(t, 0, result.FineMinutes)
	assert.Equal(t, 30, result.BreakMinutes)
	assert.True(t, hours("9.5").Equal(result.Work), result.Work.String())
	assert.True(t, result.Night.IsZero())
	assert.Equal(t, at(10, 10, 0), *result.Start)
	assert.Equal(t, at(10, 20, 0), *result.End)
}

func TestWorkHoursCalculatorLateArrivalFine(t *testing.T) {
	settings := models.NetworkSettings{
		AllowedIntervalForLateArrival: models.Duration(5 * time.Minute),
		FinesSettings: models.FinesSettings{
			{Pattern: "^Cash", FineRule: models.FineRule{ArriveFines: [][3]int{{-5, 10, 60}, {60, 3600, 120}}}},
			{Pattern: "^Load", FineRule: models.FineRule{ArriveFines: [][3]int{{0, 3600, 600}}}},
		},
	}
	calc, err := NewWorkHoursCalculator(settings)
	require.NoError(t, err)

	plan := workRecord(false, at(10, 10, 0), at(10, 20, 0))
	result := calc.Calculate(WorkHoursInput{
		Record:   workRecord(true, at(10, 11, 10), at(10, 20, 0)),
		DayType:  seedType(t, models.DayTypeWorkday),
		Position: cashier(models.BreakRules{{MinShiftMinutes: 60, MaxShiftMinutes: 1440, Breaks: []int{30}}}),
		Plan:     &plan,
	})

	assert.Equal(t, 120, result.FineMinutes)
	// 530 minutes - 30 break - 120 fine
	assert.True(t, hours("6.33").Equal(result.Work), result.Work.String())
}

func TestWorkHoursCalculatorFirstMatchingFinePatternWins(t *testing.T) {
	plan := workRecord(false, at(10, 10, 0), at(10, 20, 0))
	in := WorkHoursInput{
		Record:   workRecord(true, at(10, 11, 10), at(10, 20, 0)),
		DayType:  seedType(t, models.DayTypeWorkday),
		Position: cashier(nil),
		Plan:     &plan,
	}
	specific := models.FineRule{ArriveFines: [][3]int{{0, 3600, 120}}}
	fallback := models.FineRule{ArriveFines: [][3]int{{0, 3600, 10}}}

	// "Cashier" sorts after ".*", so only the declared order can pick it first
	calc, err := NewWorkHoursCalculator(models.NetworkSettings{FinesSettings: models.FinesSettings{
		{Pattern: "Cashier", FineRule: specific},
		{Pattern: ".*", FineRule: fallback},
	}})
	require.NoError(t, err)
	assert.Equal(t, 120, calc.Calculate(in).FineMinutes)

	calc, err = NewWorkHoursCalculator(models.NetworkSettings{FinesSettings: models.FinesSettings{
		{Pattern: ".*", FineRule: fallback},
		{Pattern: "Cashier", FineRule: specific},
	}})
	require.NoError(t, err)
	assert.Equal(t, 10, calc.Calculate(in).FineMinutes)
}

func TestWorkHoursCalculatorSteps(t *testing.T) {
	settings := models.NetworkSettings{
		FinesSettings: models.FinesSettings{
			{Pattern: "Cashier", FineRule: models.FineRule{ArriveStep: 30, DepartureStep: 30}},
		},
	}
	calc, err := NewWorkHoursCalculator(settings)
	require.NoError(t, err)

	plan := workRecord(false, at(10, 10, 0), at(10, 20, 0))
	result := calc.Calculate(WorkHoursInput{
		Record:   workRecord(true, at(10, 10, 7), at(10, 19, 50)),
		DayType:  seedType(t, models.DayTypeWorkday),
		Position: cashier(nil),
		Plan:     &plan,
	})

	assert.Equal(t, at(10, 10, 30), *result.Start)
	assert.Equal(t, at(10, 19, 30), *result.End)
	assert.True(t, hours("9").Equal(result.Work))
}

func TestWorkHoursCalculatorDailyOverflowShift(t *testing.T) {
	calc, err := NewWorkHoursCalculator(models.NetworkSettings{})
	require.NoError(t, err)

	result := calc.Calculate(WorkHoursInput{
		Record:   workRecord(false, at(10, 8, 0), at(10, 22, 0)),
		DayType:  seedType(t, models.DayTypeWorkday),
		Position: cashier(models.BreakRules{{MinShiftMinutes: 0, MaxShiftMinutes: 1440, Breaks: []int{30, 30}}}),
	})
	assert.True(t, hours("13").Equal(result.Work))
	assert.True(t, result.Night.IsZero())
}

func TestWorkHoursCalculatorOvernightShift(t *testing.T) {
	calc, err := NewWorkHoursCalculator(models.NetworkSettings{})
	require.NoError(t, err)

	record := workRecord(false, at(10, 20, 0), at(10, 6, 0))
	result := calc.Calculate(WorkHoursInput{
		Record:  record,
		DayType: seedType(t, models.DayTypeWorkday),
	})
	assert.True(t, hours("10").Equal(result.Work))
	assert.True(t, hours("8").Equal(result.Night))
	assert.True(t, hours("2").Equal(result.Day))
	assert.Equal(t, at(11, 6, 0), *result.End)
}

func TestWorkHoursCalculatorCropAndRounding(t *testing.T) {
	opens, closes := models.NewTimeOfDay(10, 0), models.NewTimeOfDay(18, 20)
	calc, err := NewWorkHoursCalculator(models.NetworkSettings{
		CropWorkHoursByShopSchedule: true,
		RoundWorkHoursAlg:           models.RoundToHalfAnHour,
	})
	require.NoError(t, err)

	result := calc.Calculate(WorkHoursInput{
		Record:   workRecord(false, at(10, 8, 0), at(10, 21, 0)),
		DayType:  seedType(t, models.DayTypeWorkday),
		Schedule: &models.ShopSchedule{ShopID: "shop-1", Dt: at(10, 0, 0), Type: models.ShopScheduleWorkday, OpensAt: &opens, ClosesAt: &closes},
	})
	// 10:00-18:20 is 500 minutes, rounded to 510
	assert.True(t, hours("8.5").Equal(result.Work), result.Work.String())
}

func TestWorkHoursCalculatorDispatch(t *testing.T) {
	calc, err := NewWorkHoursCalculator(models.NetworkSettings{})
	require.NoError(t, err)

	vacation := models.DayRecord{ID: "v", Dt: at(10, 0, 0), DayTypeCode: models.DayTypeVacation, WorkHours: decimal.NewFromInt(8)}
	result := calc.Calculate(WorkHoursInput{Record: vacation, DayType: seedType(t, models.DayTypeVacation)})
	assert.True(t, hours("8").Equal(result.Work))
	assert.True(t, hours("8").Equal(result.Day))

	sick := models.DayRecord{ID: "s", Dt: at(10, 0, 0), DayTypeCode: models.DayTypeSick, WorkHours: decimal.NewFromInt(8)}
	result = calc.Calculate(WorkHoursInput{Record: sick, DayType: seedType(t, models.DayTypeSick)})
	assert.True(t, result.Work.IsZero())

	open := models.DayRecord{ID: "w", Dt: at(10, 0, 0), DayTypeCode: models.DayTypeWorkday, DttmWorkStart: timePtr(at(10, 9, 0))}
	result = calc.Calculate(WorkHoursInput{Record: open, DayType: seedType(t, models.DayTypeWorkday)})
	assert.True(t, result.Ignored)
	assert.True(t, result.Work.IsZero())
}

func TestWorkHoursCalculatorInvalidFinesPattern(t *testing.T) {
	_, err := NewWorkHoursCalculator(models.NetworkSettings{
		FinesSettings: models.FinesSettings{{Pattern: "("}},
	})
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}
