package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/pkg/database"
)

const timesheetColumns = `id, employee_id, dt, timesheet_type, day_type, shop_id, position_id, day_hours, night_hours,
       dttm_work_start, dttm_work_end, source_day_record_id, fact_without_plan, created_at`

// TimesheetRepository persists materialised timesheet items.
type TimesheetRepository struct {
	db *sqlx.DB
}

// NewTimesheetRepository constructs the repository.
func NewTimesheetRepository(db *sqlx.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// monthLockKey identifies the advisory lock serialising writers of one employee-month.
func monthLockKey(employeeID string, month time.Time) string {
	return fmt.Sprintf("%s|%04d|%02d", employeeID, month.Year(), int(month.Month()))
}

// ReplaceForEmployeeMonth atomically swaps all sheets of an employee-month for items.
func (r *TimesheetRepository) ReplaceForEmployeeMonth(ctx context.Context, employeeID string, month time.Time, items []models.TimesheetItem) (int, int, error) {
	from := models.MonthStart(month)
	to := models.MonthEnd(month)
	const insert = `INSERT INTO timesheet_items (id, employee_id, dt, timesheet_type, day_type, shop_id, position_id, day_hours, night_hours,
       dttm_work_start, dttm_work_end, source_day_record_id, fact_without_plan)
VALUES (:id, :employee_id, :dt, :timesheet_type, :day_type, :shop_id, :position_id, :day_hours, :night_hours,
       :dttm_work_start, :dttm_work_end, :source_day_record_id, :fact_without_plan)`

	var deleted, inserted int
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, monthLockKey(employeeID, from)); err != nil {
			return fmt.Errorf("lock timesheet month: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM timesheet_items WHERE employee_id = $1 AND dt BETWEEN $2 AND $3`, employeeID, from, to)
		if err != nil {
			return fmt.Errorf("delete timesheet items: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete timesheet items: %w", err)
		}
		deleted = int(affected)

		for i := range items {
			if items[i].EmployeeID != employeeID || items[i].Dt.Before(from) || items[i].Dt.After(to) {
				return fmt.Errorf("timesheet item %s outside %s", items[i].ID, monthLockKey(employeeID, from))
			}
			if _, err := tx.NamedExecContext(ctx, insert, items[i]); err != nil {
				return fmt.Errorf("insert timesheet item %s: %w", items[i].ID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, inserted, nil
}

// List returns items matching the filter in a stable order.
func (r *TimesheetRepository) List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetItem, error) {
	if len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	clauses := []string{"employee_id = ANY($1)", "dt BETWEEN $2 AND $3"}
	args := []interface{}{pq.Array(filter.EmployeeIDs), filter.DtFrom, filter.DtTo}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		clauses = append(clauses, fmt.Sprintf("timesheet_type = ANY($%d)", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM timesheet_items WHERE %s
ORDER BY employee_id, dt, timesheet_type, dttm_work_start NULLS FIRST, id`, timesheetColumns, strings.Join(clauses, " AND "))

	var items []models.TimesheetItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list timesheet items: %w", err)
	}
	return items, nil
}

// SumMainHoursByDayType totals MAIN hours per month and day type within [from, to].
// Day-off filtering is left to the caller's catalog.
func (r *TimesheetRepository) SumMainHoursByDayType(ctx context.Context, employeeID string, from, to time.Time) ([]models.MonthDayTypeHours, error) {
	const query = `SELECT to_char(dt, 'YYYY-MM') AS month, day_type, COALESCE(SUM(day_hours + night_hours), 0) AS hours
FROM timesheet_items
WHERE employee_id = $1 AND timesheet_type = 'MAIN' AND dt BETWEEN $2 AND $3
GROUP BY 1, 2 ORDER BY 1, 2`
	var rows []models.MonthDayTypeHours
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("sum main hours by day type: %w", err)
	}
	return rows, nil
}
