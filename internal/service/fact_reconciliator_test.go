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

func strPtr(value string) *string {
	return &value
}

func reconcileContext(t *testing.T, settings models.NetworkSettings) *JobContext {
	t.Helper()
	catalog, err := NewDayTypeCatalog(models.DefaultDayTypes())
	require.NoError(t, err)
	breaks := models.BreakRules{{MinShiftMinutes: 60, MaxShiftMinutes: 1440, Breaks: []int{30}}}
	jc, err := NewJobContext(JobSnapshot{
		EmployeeID:   "emp-1",
		NetworkID:    "net-1",
		Month:        at(1, 0, 0),
		Settings:     settings,
		Catalog:      catalog,
		DefaultAlias: models.DividerAliasNahodka,
		Employments: []models.Employment{
			{ID: "empl-1", EmployeeID: "emp-1", ShopID: "shop-1", PositionID: strPtr("pos-cashier"), DtHired: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), NormWorkHours: decimal.NewFromInt(100), IsVisible: true},
			{ID: "empl-other", EmployeeID: "emp-2", ShopID: "shop-1", DtHired: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		Positions: []models.Position{
			{ID: "pos-cashier", Name: "Cashier", HoursInAWeek: decimal.NewFromInt(40), Breaks: breaks},
			{ID: "pos-loader", Name: "Loader", HoursInAWeek: decimal.NewFromInt(40)},
		},
		Shops: []models.Shop{{ID: "shop-1", NetworkID: "net-1", RegionID: strPtr("r1")}},
	})
	require.NoError(t, err)
	return jc
}

func planRecord(id string, day int, code string, start, end *time.Time) models.DayRecord {
	return models.DayRecord{ID: id, EmployeeID: "emp-1", Dt: at(day, 0, 0), IsApproved: true, DayTypeCode: code, DttmWorkStart: start, DttmWorkEnd: end}
}

func factRecord(id string, day int, start, end *time.Time) models.DayRecord {
	rec := planRecord(id, day, models.DayTypeWorkday, start, end)
	rec.IsFact = true
	return rec
}

func TestFactReconciliatorCompoundPlansWithoutFacts(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{})
	vacation := planRecord("plan-v", 10, models.DayTypeVacation, nil, nil)
	vacation.WorkHours = decimal.NewFromInt(8)
	work := planRecord("plan-w", 10, models.DayTypeWorkday, timePtr(at(10, 20, 0)), timePtr(at(10, 23, 0)))

	result, err := NewFactReconciliator(nil).Reconcile(jc, []models.DayRecord{vacation, work})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, models.DayTypeWorkday, result.Items[0].DayTypeCode)
	assert.True(t, hours("2.5").Equal(result.Items[0].TotalHours()))
	assert.Equal(t, models.DayTypeVacation, result.Items[1].DayTypeCode)
	assert.True(t, hours("8").Equal(result.Items[1].DayHours))
	for _, item := range result.Items {
		assert.Equal(t, models.TimesheetFact, item.TimesheetType)
		assert.False(t, item.FactWithoutPlan)
		assert.Equal(t, "pos-cashier", *item.PositionID)
		assert.Equal(t, "shop-1", *item.ShopID)
	}
}

func TestFactReconciliatorMatchesClosestPlan(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{
		OnlyFactHoursThatInApprovedPlan:  true,
		AllowedIntervalForLateArrival:    models.Duration(5 * time.Minute),
		AllowedIntervalForEarlyDeparture: models.Duration(5 * time.Minute),
	})
	records := []models.DayRecord{
		planRecord("plan-11", 11, models.DayTypeWorkday, timePtr(at(11, 10, 0)), timePtr(at(11, 20, 0))),
		factRecord("fact-11", 11, timePtr(at(11, 9, 53)), timePtr(at(11, 20, 10))),
		factRecord("fact-12", 12, timePtr(at(12, 10, 0)), timePtr(at(12, 18, 0))),
		planRecord("plan-14", 14, models.DayTypeSick, nil, nil),
	}

	result, err := NewFactReconciliator(nil).Reconcile(jc, records)
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	matched := result.Items[0]
	assert.Equal(t, "fact-11", *matched.SourceDayRecordID)
	assert.False(t, matched.FactWithoutPlan)
	assert.True(t, hours("9.5").Equal(matched.TotalHours()))

	unmatched := result.Items[1]
	assert.Equal(t, "fact-12", *unmatched.SourceDayRecordID)
	assert.True(t, unmatched.FactWithoutPlan)
	assert.True(t, hours("7.5").Equal(unmatched.TotalHours()))

	sick := result.Items[2]
	assert.Equal(t, models.DayTypeSick, sick.DayTypeCode)
	assert.True(t, sick.TotalHours().IsZero())
}

func TestFactReconciliatorBackReferenceWins(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{OnlyFactHoursThatInApprovedPlan: true})
	fact := factRecord("fact-11", 11, timePtr(at(11, 10, 0)), timePtr(at(11, 20, 0)))
	fact.ClosestPlanApprovedID = strPtr("plan-far")
	records := []models.DayRecord{
		planRecord("plan-near", 11, models.DayTypeWorkday, timePtr(at(11, 10, 0)), timePtr(at(11, 20, 0))),
		planRecord("plan-far", 10, models.DayTypeWorkday, timePtr(at(10, 12, 0)), timePtr(at(10, 23, 0))),
		fact,
	}
	plan, warning := closestPlan(jc, fact, records[:2])
	require.NotNil(t, plan)
	assert.Equal(t, "plan-far", plan.ID)
	assert.Empty(t, warning)
}

func TestFactReconciliatorEquidistantPlansPickEarlier(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{AllowCreationSeveralWdaysForOneEmployeeForOneDate: true})
	records := []models.DayRecord{
		planRecord("plan-late", 13, models.DayTypeWorkday, timePtr(at(13, 12, 0)), timePtr(at(13, 16, 0))),
		planRecord("plan-early", 13, models.DayTypeWorkday, timePtr(at(13, 8, 0)), timePtr(at(13, 12, 0))),
		factRecord("fact-13", 13, timePtr(at(13, 10, 0)), timePtr(at(13, 14, 0))),
	}

	plan, warning := closestPlan(jc, records[2], records[:2])
	require.NotNil(t, plan)
	assert.Equal(t, "plan-early", plan.ID)
	assert.Contains(t, warning, "equidistant")

	result, err := NewFactReconciliator(nil).Reconcile(jc, records)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.False(t, result.Items[0].FactWithoutPlan)
	assert.Len(t, result.Warnings, 1)
}

func TestFactReconciliatorRejectsConflictingPlans(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{})
	records := []models.DayRecord{
		planRecord("plan-a", 13, models.DayTypeWorkday, timePtr(at(13, 8, 0)), timePtr(at(13, 12, 0))),
		planRecord("plan-b", 13, models.DayTypeWorkday, timePtr(at(13, 14, 0)), timePtr(at(13, 18, 0))),
	}
	_, err := NewFactReconciliator(nil).Reconcile(jc, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "2024-01-13")

	records[1].DayTypeCode = models.DayTypeSick
	_, err = NewFactReconciliator(nil).Reconcile(jc, records)
	assert.ErrorIs(t, err, appErrors.ErrDataIntegrity)
}

func TestFactReconciliatorUnknownDayType(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{})
	_, err := NewFactReconciliator(nil).Reconcile(jc, []models.DayRecord{planRecord("plan-x", 3, "XX", nil, nil)})
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}

func TestFactReconciliatorSkipsShortAndOpenFacts(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{TimesheetMinHoursThreshold: decimal.NewFromInt(4)})
	records := []models.DayRecord{
		factRecord("fact-short", 5, timePtr(at(5, 10, 0)), timePtr(at(5, 12, 0))),
		factRecord("fact-open", 6, timePtr(at(6, 10, 0)), nil),
		factRecord("fact-ok", 7, timePtr(at(7, 10, 0)), timePtr(at(7, 18, 0))),
		factRecord("fact-other-month", 1, timePtr(at(1, 10, 0)), timePtr(at(1, 18, 0))),
	}
	records[3].Dt = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	result, err := NewFactReconciliator(nil).Reconcile(jc, records)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "fact-ok", *result.Items[0].SourceDayRecordID)
	assert.Len(t, result.Warnings, 2)
}

func TestFactReconciliatorPositionFromWorkTypeName(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{GetPositionFromWorkTypeNameInCalcTimesheet: true})
	fact := factRecord("fact-7", 7, timePtr(at(7, 10, 0)), timePtr(at(7, 18, 0)))
	fact.WorkTypeName = strPtr("Loader")

	result, err := NewFactReconciliator(nil).Reconcile(jc, []models.DayRecord{fact})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "pos-loader", *result.Items[0].PositionID)
	// loader has no break schedule
	assert.True(t, hours("8").Equal(result.Items[0].TotalHours()))
}

func TestFactReconciliatorIsDeterministic(t *testing.T) {
	jc := reconcileContext(t, models.NetworkSettings{})
	records := []models.DayRecord{
		factRecord("fact-7", 7, timePtr(at(7, 10, 0)), timePtr(at(7, 18, 0))),
		planRecord("plan-v", 8, models.DayTypeVacation, nil, nil),
	}
	first, err := NewFactReconciliator(nil).Reconcile(jc, records)
	require.NoError(t, err)
	second, err := NewFactReconciliator(nil).Reconcile(jc, []models.DayRecord{records[1], records[0]})
	require.NoError(t, err)
	assert.Equal(t, first.Items, second.Items)
}
