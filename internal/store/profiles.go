package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kp7425/personalized-cyber/internal/engine"
)

// Profile represents a row in the risk_profiles table: the live,
// most-recently-computed scores for one employee.
type Profile struct {
	EmployeeID    string
	SubScores     map[engine.Source]float64
	Multiplier    float64
	Pattern       string
	Score         float64
	Level         string
	Frequency     string
	NotifyManager bool
	ComputedAt    time.Time
	UpdatedAt     time.Time
}

// HistoryEntry is one immutable snapshot from the risk_history table.
type HistoryEntry struct {
	EmployeeID    string
	SubScores     map[engine.Source]float64
	Multiplier    float64
	Pattern       string
	Score         float64
	Level         string
	Frequency     string
	NotifyManager bool
	CalculatedAt  time.Time
}

// HighRiskEntry joins a profile with employee identity for reporting.
type HighRiskEntry struct {
	Profile
	Email    string
	FullName string
	Role     string
}

// SaveAssessment upserts the live profile and appends the history
// snapshot in a single transaction. The two writes land together or not
// at all, so a crash mid-batch leaves every employee's data consistent.
// Transient failures wrap engine.ErrStorage for the orchestrator's retry.
func (s *Store) SaveAssessment(ctx context.Context, a *engine.Assessment) error {
	subScores, err := json.Marshal(a.SubScores)
	if err != nil {
		return fmt.Errorf("SaveAssessment: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveAssessment: %w: %w", engine.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO risk_profiles (
			employee_id, sub_scores, multiplier, pattern, overall_score,
			risk_level, training_frequency, notify_manager, computed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (employee_id) DO UPDATE SET
			sub_scores         = EXCLUDED.sub_scores,
			multiplier         = EXCLUDED.multiplier,
			pattern            = EXCLUDED.pattern,
			overall_score      = EXCLUDED.overall_score,
			risk_level         = EXCLUDED.risk_level,
			training_frequency = EXCLUDED.training_frequency,
			notify_manager     = EXCLUDED.notify_manager,
			computed_at        = EXCLUDED.computed_at,
			updated_at         = now()`,
		a.EmployeeID, subScores, a.Multiplier, a.Pattern, a.Score,
		a.Level.String(), a.Frequency.String(), a.NotifyManager, a.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveAssessment profile: %w: %w", engine.ErrStorage, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO risk_history (
			employee_id, sub_scores, multiplier, pattern, overall_score,
			risk_level, training_frequency, notify_manager, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.EmployeeID, subScores, a.Multiplier, a.Pattern, a.Score,
		a.Level.String(), a.Frequency.String(), a.NotifyManager, a.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveAssessment history: %w: %w", engine.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveAssessment commit: %w: %w", engine.ErrStorage, err)
	}
	return nil
}

// GetProfile returns the live profile for an employee, or nil if the
// employee has never been scored.
func (s *Store) GetProfile(ctx context.Context, employeeID string) (*Profile, error) {
	var p Profile
	var subScores []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT employee_id, sub_scores, multiplier, pattern, overall_score,
		       risk_level, training_frequency, notify_manager, computed_at, updated_at
		FROM risk_profiles WHERE employee_id = $1`, employeeID,
	).Scan(&p.EmployeeID, &subScores, &p.Multiplier, &p.Pattern, &p.Score,
		&p.Level, &p.Frequency, &p.NotifyManager, &p.ComputedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}
	if err := json.Unmarshal(subScores, &p.SubScores); err != nil {
		return nil, fmt.Errorf("GetProfile sub_scores: %w", err)
	}
	return &p, nil
}

// ListHistory returns the employee's history entries within [start, end],
// oldest first, for trend-line consumption.
func (s *Store) ListHistory(ctx context.Context, employeeID string, start, end time.Time) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, sub_scores, multiplier, pattern, overall_score,
		       risk_level, training_frequency, notify_manager, calculated_at
		FROM risk_history
		WHERE employee_id = $1 AND calculated_at >= $2 AND calculated_at <= $3
		ORDER BY calculated_at ASC`,
		employeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("ListHistory: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var subScores []byte
		if err := rows.Scan(&h.EmployeeID, &subScores, &h.Multiplier, &h.Pattern,
			&h.Score, &h.Level, &h.Frequency, &h.NotifyManager, &h.CalculatedAt); err != nil {
			return nil, fmt.Errorf("ListHistory: %w", err)
		}
		if err := json.Unmarshal(subScores, &h.SubScores); err != nil {
			return nil, fmt.Errorf("ListHistory sub_scores: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// ListHighRisk returns profiles at or above the threshold, highest first.
func (s *Store) ListHighRisk(ctx context.Context, threshold float64) ([]HighRiskEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rp.employee_id, rp.sub_scores, rp.multiplier, rp.pattern,
		       rp.overall_score, rp.risk_level, rp.training_frequency,
		       rp.notify_manager, rp.computed_at, rp.updated_at,
		       e.email, e.full_name, e.role
		FROM risk_profiles rp
		JOIN employees e ON e.id = rp.employee_id
		WHERE rp.overall_score >= $1
		ORDER BY rp.overall_score DESC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("ListHighRisk: %w", err)
	}
	defer rows.Close()

	var entries []HighRiskEntry
	for rows.Next() {
		var h HighRiskEntry
		var subScores []byte
		if err := rows.Scan(&h.EmployeeID, &subScores, &h.Multiplier, &h.Pattern,
			&h.Score, &h.Level, &h.Frequency, &h.NotifyManager,
			&h.ComputedAt, &h.UpdatedAt, &h.Email, &h.FullName, &h.Role); err != nil {
			return nil, fmt.Errorf("ListHighRisk: %w", err)
		}
		if err := json.Unmarshal(subScores, &h.SubScores); err != nil {
			return nil, fmt.Errorf("ListHighRisk sub_scores: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
