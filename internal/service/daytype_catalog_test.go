package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type dayTypeRepoStub struct {
	types []models.DayType
	err   error
}

func (s dayTypeRepoStub) ListAll(ctx context.Context) ([]models.DayType, error) {
	return s.types, s.err
}

func TestDayTypeCatalogDefaults(t *testing.T) {
	catalog, err := NewDayTypeCatalog(models.DefaultDayTypes())
	require.NoError(t, err)

	off, err := catalog.IsDayOff(models.DayTypeVacation)
	require.NoError(t, err)
	assert.True(t, off)

	workHours, err := catalog.IsWorkHours(models.DayTypeVacation)
	require.NoError(t, err)
	assert.True(t, workHours)

	reduce, err := catalog.IsReduceNorm(models.DayTypeSick)
	require.NoError(t, err)
	assert.True(t, reduce)

	assert.True(t, catalog.AllowedAdditional(models.DayTypeVacation, models.DayTypeWorkday))
	assert.True(t, catalog.AllowedAdditional(models.DayTypeWorkday, models.DayTypeVacation))
	assert.False(t, catalog.AllowedAdditional(models.DayTypeSick, models.DayTypeWorkday))

	ordering, err := catalog.Ordering(models.DayTypeWorkday)
	require.NoError(t, err)
	assert.Equal(t, 100, ordering)
	assert.Equal(t, models.DayTypeWorkday, catalog.All()[0].Code)
}

func TestDayTypeCatalogUnknownCodeIsConfigurationError(t *testing.T) {
	catalog, err := NewDayTypeCatalog(models.DefaultDayTypes())
	require.NoError(t, err)

	_, err = catalog.Lookup("ZZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
	assert.Panics(t, func() { catalog.MustLookup("ZZ") })
}

func TestDayTypeCatalogValidation(t *testing.T) {
	_, err := NewDayTypeCatalog([]models.DayType{{Code: "W"}, {Code: "W"}})
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)

	_, err = NewDayTypeCatalog([]models.DayType{{Code: "V", AllowedAdditionalTypes: []string{"X"}}})
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)

	_, err = NewDayTypeCatalog([]models.DayType{{Code: "W", GetWorkHoursMethod: "guess"}})
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}

func TestLoadDayTypeCatalogFallsBackToSeed(t *testing.T) {
	catalog, err := LoadDayTypeCatalog(context.Background(), dayTypeRepoStub{})
	require.NoError(t, err)
	_, err = catalog.Lookup(models.DayTypeSelfVacation)
	assert.NoError(t, err)

	_, err = LoadDayTypeCatalog(context.Background(), dayTypeRepoStub{err: errors.New("conn refused")})
	assert.True(t, appErrors.IsRetryable(err))
}

func TestParseDayTypeSeedRoundTrip(t *testing.T) {
	seed := []byte(`
day_types:
  - code: W
    name: Workday
    get_work_hours_method: interval
    is_work_hours: true
    ordering: 100
  - code: V
    name: Vacation
    is_dayoff: true
    is_work_hours: true
    is_reduce_norm: true
    get_work_hours_method: manual
    ordering: 90
    allowed_additional_types: [W]
`)
	catalog, err := ParseDayTypeSeed(seed)
	require.NoError(t, err)
	assert.True(t, catalog.AllowedAdditional("W", "V"))

	out, err := catalog.MarshalSeed()
	require.NoError(t, err)
	again, err := ParseDayTypeSeed(out)
	require.NoError(t, err)
	assert.Equal(t, catalog.All(), again.All())

	_, err = ParseDayTypeSeed([]byte("day_types: []"))
	assert.ErrorIs(t, err, appErrors.ErrConfiguration)
}
