package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/pkg/database"
)

// DayTypeRepository persists the day type catalog.
type DayTypeRepository struct {
	db *sqlx.DB
}

// NewDayTypeRepository constructs the repository.
func NewDayTypeRepository(db *sqlx.DB) *DayTypeRepository {
	return &DayTypeRepository{db: db}
}

// ListAll returns every configured day type.
func (r *DayTypeRepository) ListAll(ctx context.Context) ([]models.DayType, error) {
	const query = `SELECT code, name, is_dayoff, is_work_hours, is_reduce_norm, get_work_hours_method, excel_load_code, ordering, allowed_additional_types
FROM day_types ORDER BY ordering DESC, code ASC`
	var types []models.DayType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list day types: %w", err)
	}
	return types, nil
}

// UpsertAll writes the catalog in one transaction.
func (r *DayTypeRepository) UpsertAll(ctx context.Context, types []models.DayType) error {
	if len(types) == 0 {
		return nil
	}
	const query = `INSERT INTO day_types (code, name, is_dayoff, is_work_hours, is_reduce_norm, get_work_hours_method, excel_load_code, ordering, allowed_additional_types)
VALUES (:code, :name, :is_dayoff, :is_work_hours, :is_reduce_norm, :get_work_hours_method, :excel_load_code, :ordering, :allowed_additional_types)
ON CONFLICT (code)
DO UPDATE SET name = EXCLUDED.name, is_dayoff = EXCLUDED.is_dayoff, is_work_hours = EXCLUDED.is_work_hours,
              is_reduce_norm = EXCLUDED.is_reduce_norm, get_work_hours_method = EXCLUDED.get_work_hours_method,
              excel_load_code = EXCLUDED.excel_load_code, ordering = EXCLUDED.ordering,
              allowed_additional_types = EXCLUDED.allowed_additional_types`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range types {
			if _, err := tx.NamedExecContext(ctx, query, types[i]); err != nil {
				return fmt.Errorf("upsert day type %s: %w", types[i].Code, err)
			}
		}
		return nil
	})
}
