// Package engine computes per-employee cybersecurity risk scores from
// behavioral event streams: per-source sub-scores, a cross-source
// correlation multiplier, a role-weighted aggregate in [0,1], and the
// derived risk level and training frequency.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// EventReader is the engine's read-only view of the behavioral event log.
// Implementations wrap transient failures with ErrStorage.
type EventReader interface {
	// SourceEvents returns the employee's events for one source within
	// the window, ordered by timestamp.
	SourceEvents(ctx context.Context, employeeID string, source Source, window Window) ([]Event, error)

	// Signals returns the cross-source raw signals for the window.
	Signals(ctx context.Context, employeeID string, window Window) (RawSignals, error)
}

// Config bundles the injected scoring configuration. All of it is
// validated at load time and immutable afterwards.
type Config struct {
	Tables      Tables
	Decay       DecayConfig
	Correlation CorrelationConfig
	Classifier  ClassifierConfig
}

// Validate checks every table and band set; any error wraps ErrConfig.
func (c Config) Validate() error {
	if err := c.Tables.Validate(); err != nil {
		return err
	}
	if err := c.Classifier.Validate(); err != nil {
		return err
	}
	if c.Decay.Enabled && c.Decay.Lambda < 0 {
		return fmt.Errorf("%w: decay lambda %v must be >= 0", ErrConfig, c.Decay.Lambda)
	}
	return nil
}

// Engine scores a single employee. It holds no mutable state, so one
// instance is shared by all workers of a batch run.
type Engine struct {
	cfg        Config
	sources    []Source
	reader     EventReader
	calculator *Calculator
	detector   *Detector
	aggregator *Aggregator
	logger     *zap.Logger
}

// New constructs an Engine from validated configuration. Callers must run
// cfg.Validate() first; New does not re-check.
func New(cfg Config, reader EventReader, logger *zap.Logger) *Engine {
	sources := cfg.Tables.Sources()
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	return &Engine{
		cfg:        cfg,
		sources:    sources,
		reader:     reader,
		calculator: NewCalculator(cfg.Tables.Severity, cfg.Decay, logger),
		detector:   NewDetector(DefaultRules(cfg.Correlation)),
		aggregator: NewAggregator(cfg.Tables.RoleWeights, cfg.Tables.DefaultRole, logger),
		logger:     logger,
	}
}

// Score computes the employee's assessment for the window. Pure over the
// event log plus configuration: prior profile state never feeds back in,
// which is what makes batch recomputation idempotent.
func (e *Engine) Score(ctx context.Context, emp Employee, window Window) (*Assessment, error) {
	subScores := make(map[Source]float64, len(e.sources))
	for _, src := range e.sources {
		events, err := e.reader.SourceEvents(ctx, emp.ID, src, window)
		if err != nil {
			return nil, fmt.Errorf("Score %s/%s: %w", emp.ID, src, err)
		}
		subScores[src] = e.calculator.SubScore(src, events, window.End)
	}

	signals, err := e.reader.Signals(ctx, emp.ID, window)
	if err != nil {
		return nil, fmt.Errorf("Score %s signals: %w", emp.ID, err)
	}

	multiplier, pattern := e.detector.Multiplier(signals)
	score := e.aggregator.Combine(emp.Role, subScores, multiplier)
	level, freq, notify := Classify(score, e.cfg.Classifier)

	if pattern != "" {
		e.logger.Info("correlation pattern fired",
			zap.String("employee_id", emp.ID),
			zap.String("pattern", pattern),
			zap.Float64("multiplier", multiplier),
		)
	}

	return &Assessment{
		EmployeeID:    emp.ID,
		SubScores:     subScores,
		Multiplier:    multiplier,
		Pattern:       pattern,
		Score:         score,
		Level:         level,
		Frequency:     freq,
		NotifyManager: notify,
		ComputedAt:    time.Now().UTC(),
	}, nil
}
