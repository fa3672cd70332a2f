package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/pkg/database"
)

// ProductionCalendarRepository persists regional production calendars.
type ProductionCalendarRepository struct {
	db *sqlx.DB
}

// NewProductionCalendarRepository constructs the repository.
func NewProductionCalendarRepository(db *sqlx.DB) *ProductionCalendarRepository {
	return &ProductionCalendarRepository{db: db}
}

// ListByRegion returns the calendar entries of a region within [from, to].
func (r *ProductionCalendarRepository) ListByRegion(ctx context.Context, regionID string, from, to time.Time) ([]models.ProductionCalendarDay, error) {
	const query = `SELECT region_id, dt, kind FROM production_calendar WHERE region_id = $1 AND dt BETWEEN $2 AND $3 ORDER BY dt`
	var days []models.ProductionCalendarDay
	if err := r.db.SelectContext(ctx, &days, query, regionID, from, to); err != nil {
		return nil, fmt.Errorf("list production calendar: %w", err)
	}
	return days, nil
}

// Upsert writes calendar entries in one transaction.
func (r *ProductionCalendarRepository) Upsert(ctx context.Context, days []models.ProductionCalendarDay) error {
	if len(days) == 0 {
		return nil
	}
	const query = `INSERT INTO production_calendar (region_id, dt, kind) VALUES (:region_id, :dt, :kind)
ON CONFLICT (region_id, dt) DO UPDATE SET kind = EXCLUDED.kind`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range days {
			if _, err := tx.NamedExecContext(ctx, query, days[i]); err != nil {
				return fmt.Errorf("upsert production calendar %s %s: %w", days[i].RegionID, days[i].Dt.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}
