package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/wfm-timesheet/internal/models"
)

// DayRecordRepository reads planned and fact day records.
type DayRecordRepository struct {
	db *sqlx.DB
}

// NewDayRecordRepository constructs the repository.
func NewDayRecordRepository(db *sqlx.DB) *DayRecordRepository {
	return &DayRecordRepository{db: db}
}

// ListApproved returns approved records of the employees within [DtFrom, DtTo].
func (r *DayRecordRepository) ListApproved(ctx context.Context, filter models.DayRecordFilter) ([]models.DayRecord, error) {
	if len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, employee_id, dt, is_fact, is_approved, day_type, dttm_work_start, dttm_work_end,
       shop_id, employment_id, work_hours, work_type_name, closest_plan_approved_id
FROM day_records
WHERE is_approved AND employee_id = ANY($1) AND dt BETWEEN $2 AND $3
ORDER BY employee_id, dt, is_fact, dttm_work_start NULLS FIRST, id`
	var records []models.DayRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(filter.EmployeeIDs), filter.DtFrom, filter.DtTo); err != nil {
		return nil, fmt.Errorf("list approved day records: %w", err)
	}
	return records, nil
}
