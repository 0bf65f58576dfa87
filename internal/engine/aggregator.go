package engine

import (
	"math"

	"go.uber.org/zap"
)

// Aggregator combines per-source sub-scores into a final score using the
// role weight matrix and the correlation multiplier.
type Aggregator struct {
	weights     RoleWeightMatrix
	defaultRole string
	logger      *zap.Logger
}

// NewAggregator creates an aggregator over a pre-validated weight matrix.
func NewAggregator(weights RoleWeightMatrix, defaultRole string, logger *zap.Logger) *Aggregator {
	return &Aggregator{weights: weights, defaultRole: defaultRole, logger: logger}
}

// Combine computes min(1, Σ w[role][src]·sub[src] · multiplier).
//
// The raw sum is a convex combination of values in [0,1] (rows are
// validated to sum to 1 at load), and the multiplier only scales upward
// before clamping, so the result is always in [0,1]. A source present in
// only one of the weight row or the sub-score set contributes 0.
//
// An unknown role falls back to the default row with a warning; it is
// never a fatal error for the batch.
func (a *Aggregator) Combine(role string, subScores map[Source]float64, multiplier float64) float64 {
	row, ok := a.weights[role]
	if !ok {
		a.logger.Warn("role not in weight matrix, using default row",
			zap.String("role", role),
			zap.String("default_role", a.defaultRole),
		)
		row = a.weights[a.defaultRole]
	}

	var raw float64
	for src, weight := range row {
		raw += weight * subScores[src]
	}

	return math.Min(1.0, raw*multiplier)
}
