package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

// NetworkRepository reads networks and their settings.
type NetworkRepository struct {
	db *sqlx.DB
}

// NewNetworkRepository constructs the repository.
func NewNetworkRepository(db *sqlx.DB) *NetworkRepository {
	return &NetworkRepository{db: db}
}

// Get fetches a network by id.
func (r *NetworkRepository) Get(ctx context.Context, id string) (*models.Network, error) {
	const query = `SELECT id, name, settings FROM networks WHERE id = $1`
	var network models.Network
	if err := r.db.GetContext(ctx, &network, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get network: %w", err)
	}
	return &network, nil
}

// GetSettings returns the settings object of the network.
func (r *NetworkRepository) GetSettings(ctx context.Context, networkID string) (models.NetworkSettings, error) {
	network, err := r.Get(ctx, networkID)
	if err != nil {
		return models.NetworkSettings{}, err
	}
	return network.Settings, nil
}

// UpdateSettings replaces the settings object of the network.
func (r *NetworkRepository) UpdateSettings(ctx context.Context, networkID string, settings models.NetworkSettings) error {
	const query = `UPDATE networks SET settings = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, networkID, settings)
	if err != nil {
		return fmt.Errorf("update network settings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}
