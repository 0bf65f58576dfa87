package engine

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// DefaultDecayLambda corresponds to a 7-day half-life, per day.
var DefaultDecayLambda = math.Ln2 / 7.0

// DecayConfig controls temporal weighting of event contributions.
type DecayConfig struct {
	Enabled bool
	Lambda  float64 // per-day decay constant
}

// DefaultDecayConfig enables decay with a 7-day half-life.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{Enabled: true, Lambda: DefaultDecayLambda}
}

// Calculator turns a source's events within a window into a normalized
// [0,1] sub-score. Read-only: it never touches the event store itself.
type Calculator struct {
	severity SeverityTable
	decay    DecayConfig
	logger   *zap.Logger
}

// NewCalculator creates a calculator over the given severity table.
func NewCalculator(severity SeverityTable, decay DecayConfig, logger *zap.Logger) *Calculator {
	return &Calculator{severity: severity, decay: decay, logger: logger}
}

// SubScore sums severity-weighted (and optionally time-decayed) event
// contributions and clamps to [0,1]. Zero events yield 0. An event type
// missing from the severity table contributes 0 and is logged as a
// warning, never treated as fatal.
func (c *Calculator) SubScore(source Source, events []Event, windowEnd time.Time) float64 {
	entries := c.severity[source]

	var sum float64
	for _, ev := range events {
		weight, ok := entries[ev.Type]
		if !ok {
			c.logger.Warn("unrecognized event type, contributes 0",
				zap.String("source", string(source)),
				zap.String("event_type", ev.Type),
			)
			continue
		}
		sum += weight * c.decayFactor(windowEnd, ev.Timestamp)
	}

	return math.Min(1.0, sum)
}

// decayFactor returns exp(-λ·age) with age in days, or 1 when decay is off.
// Events timestamped after the window end (clock skew) are not amplified.
func (c *Calculator) decayFactor(windowEnd, eventTime time.Time) float64 {
	if !c.decay.Enabled {
		return 1.0
	}
	ageDays := windowEnd.Sub(eventTime).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-c.decay.Lambda * ageDays)
}
