package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmployeeLister enumerates the employees a batch run covers.
type EmployeeLister interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployee(ctx context.Context, id string) (*Employee, error)
}

// AssessmentWriter persists the profile upsert and history append as one
// atomic unit per employee. Implementations wrap transient failures with
// ErrStorage.
type AssessmentWriter interface {
	SaveAssessment(ctx context.Context, a *Assessment) error
}

// BatchConfig tunes the orchestrator. Parallelism is a tuning parameter,
// not a correctness concern: per-employee computations are independent.
type BatchConfig struct {
	Workers       int
	RetryAttempts int           // retries after the first try, storage errors only
	RetryBackoff  time.Duration // doubled per retry
}

// DefaultBatchConfig returns the stock orchestrator tuning.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Workers:       8,
		RetryAttempts: 2,
		RetryBackoff:  100 * time.Millisecond,
	}
}

// BatchStats is the aggregate result of one recompute run. Per-employee
// profiles are never returned inline; they are fetched via the profile
// query.
type BatchStats struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"-"`
}

// Orchestrator drives recomputation over employees with a bounded worker
// pool. A failure for one employee is logged, counted, and never aborts
// the batch.
type Orchestrator struct {
	engine *Engine
	lister EmployeeLister
	writer AssessmentWriter
	cfg    BatchConfig
	logger *zap.Logger

	onResult func(succeeded bool) // metrics hook, optional
}

// NewOrchestrator wires the orchestrator. onResult may be nil.
func NewOrchestrator(engine *Engine, lister EmployeeLister, writer AssessmentWriter,
	cfg BatchConfig, logger *zap.Logger, onResult func(bool)) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		engine:   engine,
		lister:   lister,
		writer:   writer,
		cfg:      cfg,
		logger:   logger,
		onResult: onResult,
	}
}

// RecomputeAll scores every known employee for the window and returns
// aggregate counters. Idempotent: rerunning with an unchanged event log
// and window end produces identical profiles (history entries differ only
// by timestamp). Cancelling ctx stops between employees; already-written
// employees stay consistent because each is its own transaction.
func (o *Orchestrator) RecomputeAll(ctx context.Context, window Window) (BatchStats, error) {
	start := time.Now()
	stats := BatchStats{RunID: uuid.New().String()}

	employees, err := o.lister.ListEmployees(ctx)
	if err != nil {
		return stats, fmt.Errorf("RecomputeAll: %w", err)
	}
	stats.Total = len(employees)

	o.logger.Info("batch recompute started",
		zap.String("run_id", stats.RunID),
		zap.Int("employees", len(employees)),
		zap.Int("workers", o.cfg.Workers),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
	)

	jobs := make(chan Employee)
	var succeeded, failed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for emp := range jobs {
				if err := o.processEmployee(ctx, emp, window); err != nil {
					// Cancellation is not an employee failure; the next
					// run rescores the employee anyway.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						o.logger.Debug("employee recompute cancelled",
							zap.String("run_id", stats.RunID),
							zap.String("employee_id", emp.ID),
						)
						continue
					}
					failed.Add(1)
					o.report(false)
					o.logger.Error("employee recompute failed",
						zap.String("run_id", stats.RunID),
						zap.String("employee_id", emp.ID),
						zap.Error(err),
					)
					continue
				}
				succeeded.Add(1)
				o.report(true)
			}
		}()
	}

feed:
	for _, emp := range employees {
		select {
		case jobs <- emp:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	stats.Succeeded = int(succeeded.Load())
	stats.Failed = int(failed.Load())
	stats.Duration = time.Since(start)

	o.logger.Info("batch recompute finished",
		zap.String("run_id", stats.RunID),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// RecomputeOne scores a single employee on demand.
func (o *Orchestrator) RecomputeOne(ctx context.Context, employeeID string, window Window) error {
	emp, err := o.lister.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("RecomputeOne: %w", err)
	}
	if emp == nil {
		return fmt.Errorf("RecomputeOne: employee %q not found", employeeID)
	}
	return o.processEmployee(ctx, *emp, window)
}

// processEmployee is the per-employee unit: compute, then persist
// atomically, with bounded-backoff retries on storage failures. Panics
// from malformed event data are converted to errors here so a single bad
// record never takes down the batch.
func (o *Orchestrator) processEmployee(ctx context.Context, emp Employee, window Window) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic scoring employee %s: %v", emp.ID, r)
		}
	}()

	backoff := o.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = o.scoreAndSave(ctx, emp, window)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStorage) || attempt >= o.cfg.RetryAttempts {
			return err
		}
		o.logger.Warn("storage failure, retrying employee",
			zap.String("employee_id", emp.ID),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (o *Orchestrator) scoreAndSave(ctx context.Context, emp Employee, window Window) error {
	assessment, err := o.engine.Score(ctx, emp, window)
	if err != nil {
		return err
	}
	if err := o.writer.SaveAssessment(ctx, assessment); err != nil {
		return err
	}
	o.logger.Debug("risk profile updated",
		zap.String("employee_id", emp.ID),
		zap.Float64("score", assessment.Score),
		zap.String("level", assessment.Level.String()),
		zap.String("frequency", assessment.Frequency.String()),
	)
	return nil
}

func (o *Orchestrator) report(succeeded bool) {
	if o.onResult != nil {
		o.onResult(succeeded)
	}
}
