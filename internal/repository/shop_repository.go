package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/wfm-timesheet/internal/models"
)

// ShopRepository reads the shop tree and positions of a network.
type ShopRepository struct {
	db *sqlx.DB
}

// NewShopRepository constructs the repository.
func NewShopRepository(db *sqlx.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// ListByNetwork returns every shop of the network.
func (r *ShopRepository) ListByNetwork(ctx context.Context, networkID string) ([]models.Shop, error) {
	const query = `SELECT id, network_id, parent_id, region_id FROM shops WHERE network_id = $1 ORDER BY id`
	var shops []models.Shop
	if err := r.db.SelectContext(ctx, &shops, query, networkID); err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return shops, nil
}

// PositionRepository reads positions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository constructs the repository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// ListByNetwork returns every position of the network with its break schedule.
func (r *PositionRepository) ListByNetwork(ctx context.Context, networkID string) ([]models.Position, error) {
	const query = `SELECT id, network_id, name, hours_in_a_week, breaks FROM positions WHERE network_id = $1 ORDER BY name, id`
	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, query, networkID); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// ShopScheduleRepository reads shop opening hours.
type ShopScheduleRepository struct {
	db *sqlx.DB
}

// NewShopScheduleRepository constructs the repository.
func NewShopScheduleRepository(db *sqlx.DB) *ShopScheduleRepository {
	return &ShopScheduleRepository{db: db}
}

// List returns schedules of the shops within [from, to].
func (r *ShopScheduleRepository) List(ctx context.Context, shopIDs []string, from, to time.Time) ([]models.ShopSchedule, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT shop_id, dt, type, opens, closes FROM shop_schedules
WHERE shop_id = ANY($1) AND dt BETWEEN $2 AND $3 ORDER BY shop_id, dt`
	var schedules []models.ShopSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, pq.Array(shopIDs), from, to); err != nil {
		return nil, fmt.Errorf("list shop schedules: %w", err)
	}
	return schedules, nil
}
