package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kp7425/personalized-cyber/internal/engine"
)

// Employee represents a row in the employees table. Created during
// onboarding ingestion; immutable here except upsert-refreshed HR fields.
type Employee struct {
	ID         string
	ExternalID string // stable key in the HR system
	Email      string
	FullName   string
	Role       string
	Department string
	HiredAt    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpsertEmployee inserts or refreshes an employee keyed by external ID.
func (s *Store) UpsertEmployee(ctx context.Context, e *Employee) (*Employee, error) {
	var out Employee
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO employees (external_id, email, full_name, role, department, hired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE SET
			email      = EXCLUDED.email,
			full_name  = EXCLUDED.full_name,
			role       = EXCLUDED.role,
			department = EXCLUDED.department,
			hired_at   = EXCLUDED.hired_at,
			updated_at = now()
		RETURNING id, external_id, email, full_name, role, department, hired_at, created_at, updated_at`,
		e.ExternalID, e.Email, e.FullName, e.Role, e.Department, e.HiredAt,
	).Scan(&out.ID, &out.ExternalID, &out.Email, &out.FullName, &out.Role,
		&out.Department, &out.HiredAt, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("UpsertEmployee: %w", err)
	}
	return &out, nil
}

// ListEmployees returns the scoring view of every employee.
func (s *Store) ListEmployees(ctx context.Context) ([]engine.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, hired_at FROM employees ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ListEmployees: %w: %w", engine.ErrStorage, err)
	}
	defer rows.Close()

	var employees []engine.Employee
	for rows.Next() {
		var e engine.Employee
		if err := rows.Scan(&e.ID, &e.Role, &e.HiredAt); err != nil {
			return nil, fmt.Errorf("ListEmployees: %w: %w", engine.ErrStorage, err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetEmployee returns the scoring view of one employee, or nil if not found.
func (s *Store) GetEmployee(ctx context.Context, id string) (*engine.Employee, error) {
	var e engine.Employee
	err := s.db.QueryRowContext(ctx,
		`SELECT id, role, hired_at FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.Role, &e.HiredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetEmployee: %w: %w", engine.ErrStorage, err)
	}
	return &e, nil
}

// GetEmployeeRecord returns the full employee row, or nil if not found.
func (s *Store) GetEmployeeRecord(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, email, full_name, role, department, hired_at, created_at, updated_at
		FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.ExternalID, &e.Email, &e.FullName, &e.Role,
		&e.Department, &e.HiredAt, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetEmployeeRecord: %w", err)
	}
	return &e, nil
}
