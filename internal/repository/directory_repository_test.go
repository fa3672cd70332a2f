package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

func newDirectoryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestEmployeeRepositoryListByIDs(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectQuery("SELECT id, network_id, tabel_code FROM employees").
		WithArgs(pq.Array([]string{"emp-1", "emp-2"})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "network_id", "tabel_code"}).AddRow("emp-1", "net-1", "0001"))

	employees, err := repo.ListByIDs(context.Background(), []string{"emp-1", "emp-2"})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "net-1", employees[0].NetworkID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmploymentRepositoryActive(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()
	repo := NewEmploymentRepository(db)

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	fired := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM employments e").
		WithArgs("net-1", pq.Array([]string{"emp-1"}), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "shop_id", "position_id", "dt_hired", "dt_fired", "norm_work_hours", "is_visible"}).
			AddRow("empl-1", "emp-1", "shop-1", "pos-1", time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC), fired, "50", true))

	employments, err := repo.Active(context.Background(), "net-1", from, to, []string{"emp-1"})
	require.NoError(t, err)
	require.Len(t, employments, 1)
	assert.Equal(t, "0.5", employments[0].Fraction().String())
	require.NotNil(t, employments[0].DtFired)
	assert.True(t, employments[0].ActiveOn(fired))
	assert.False(t, employments[0].ActiveOn(fired.AddDate(0, 0, 1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionRepositoryListByNetworkParsesBreaks(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()
	repo := NewPositionRepository(db)

	mock.ExpectQuery("SELECT id, network_id, name, hours_in_a_week, breaks FROM positions").
		WithArgs("net-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "network_id", "name", "hours_in_a_week", "breaks"}).
			AddRow("pos-1", "net-1", "Cashier", "40", []byte(`[[0, 360, [15]], [360, 1440, [30, 15]]]`)).
			AddRow("pos-2", "net-1", "Loader", "20", nil))

	positions, err := repo.ListByNetwork(context.Background(), "net-1")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, 45, positions[0].Breaks.Match(480))
	assert.Equal(t, 15, positions[0].Breaks.Match(300))
	assert.Empty(t, positions[1].Breaks)
	assert.Equal(t, "0.5", positions[1].WeekShare().String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShopRepositoriesList(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, network_id, parent_id, region_id FROM shops").
		WithArgs("net-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "network_id", "parent_id", "region_id"}).
			AddRow("root", "net-1", nil, "r1").
			AddRow("shop-1", "net-1", "root", nil))
	shops, err := NewShopRepository(db).ListByNetwork(context.Background(), "net-1")
	require.NoError(t, err)
	require.Len(t, shops, 2)
	assert.Nil(t, shops[1].RegionID)
	assert.Equal(t, "root", *shops[1].ParentID)

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM shop_schedules").
		WithArgs(pq.Array([]string{"shop-1"}), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"shop_id", "dt", "type", "opens", "closes"}).
			AddRow("shop-1", from, "W", "09:00:00", "22:00:00").
			AddRow("shop-1", from.AddDate(0, 0, 1), "H", nil, nil))
	schedules, err := NewShopScheduleRepository(db).List(context.Background(), []string{"shop-1"}, from, to)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	require.NotNil(t, schedules[0].OpensAt)
	assert.Equal(t, "09:00", schedules[0].OpensAt.String())
	_, _, open := schedules[1].Window(time.UTC)
	assert.False(t, open)
	assert.NoError(t, mock.ExpectationsWereMet())

	none, err := NewShopScheduleRepository(db).List(context.Background(), nil, from, to)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNetworkRepositoryGetSettings(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()
	repo := NewNetworkRepository(db)

	payload := []byte(`{"fiscal_sheet_divider_alias":"pobeda","accounting_period_length":3,"allowed_interval_for_late_arrival":"00:05:00","timesheet_min_hours_threshold":"4"}`)
	mock.ExpectQuery("SELECT id, name, settings FROM networks").
		WithArgs("net-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "settings"}).AddRow("net-1", "Retail", payload))

	settings, err := repo.GetSettings(context.Background(), "net-1")
	require.NoError(t, err)
	assert.Equal(t, models.DividerAliasPobeda, settings.DividerAlias(models.DividerAliasNahodka))
	assert.Equal(t, 3, settings.AccountingPeriodLength)
	assert.Equal(t, 5, settings.AllowedIntervalForLateArrival.Minutes())
	assert.Equal(t, "4", settings.TimesheetMinHoursThreshold.String())

	mock.ExpectQuery("SELECT id, name, settings FROM networks").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetSettings(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNetworkRepositoryUpdateSettings(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()
	repo := NewNetworkRepository(db)

	mock.ExpectExec("UPDATE networks SET settings").
		WithArgs("net-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateSettings(context.Background(), "net-1", models.NetworkSettings{FiscalSheetDividerAlias: "none"}))

	mock.ExpectExec("UPDATE networks SET settings").
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateSettings(context.Background(), "ghost", models.NetworkSettings{}), appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
