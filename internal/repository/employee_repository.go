package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/wfm-timesheet/internal/models"
)

// EmployeeRepository reads employees.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// ListByIDs returns the employees found among ids.
func (r *EmployeeRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, network_id, tabel_code FROM employees WHERE id = ANY($1) ORDER BY id`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// EmploymentRepository reads employments.
type EmploymentRepository struct {
	db *sqlx.DB
}

// NewEmploymentRepository constructs the repository.
func NewEmploymentRepository(db *sqlx.DB) *EmploymentRepository {
	return &EmploymentRepository{db: db}
}

// Active returns employments of the network overlapping [from, to] for the employees.
func (r *EmploymentRepository) Active(ctx context.Context, networkID string, from, to time.Time, employeeIDs []string) ([]models.Employment, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT e.id, e.employee_id, e.shop_id, e.position_id, e.dt_hired, e.dt_fired, e.norm_work_hours, e.is_visible
FROM employments e
JOIN shops s ON s.id = e.shop_id
WHERE s.network_id = $1 AND e.employee_id = ANY($2)
  AND e.dt_hired <= $4 AND (e.dt_fired IS NULL OR e.dt_fired >= $3)
ORDER BY e.employee_id, e.dt_hired, e.id`
	var employments []models.Employment
	if err := r.db.SelectContext(ctx, &employments, query, networkID, pq.Array(employeeIDs), from, to); err != nil {
		return nil, fmt.Errorf("list active employments: %w", err)
	}
	return employments, nil
}
