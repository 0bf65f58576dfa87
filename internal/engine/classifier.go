package engine

import "fmt"

// ClassifierConfig holds the two independent threshold sets. Level bands
// and frequency bands deliberately use different boundary points: risk
// reporting and training cadence serve different stakeholders, so one
// table is never derived from the other.
type ClassifierConfig struct {
	// LevelBands are the ascending lower bounds of MEDIUM, HIGH, CRITICAL.
	LevelBands [3]float64
	// FrequencyBands are the ascending lower bounds of monthly, weekly,
	// immediate.
	FrequencyBands [3]float64
}

// DefaultClassifierConfig returns the stock bands:
// LOW < 0.3 ≤ MEDIUM < 0.5 ≤ HIGH < 0.7 ≤ CRITICAL and
// quarterly < 0.3 ≤ monthly < 0.6 ≤ weekly < 0.8 ≤ immediate.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		LevelBands:     [3]float64{0.3, 0.5, 0.7},
		FrequencyBands: [3]float64{0.3, 0.6, 0.8},
	}
}

// Validate rejects bands that are not strictly increasing within (0,1).
func (c ClassifierConfig) Validate() error {
	for name, bands := range map[string][3]float64{
		"level":     c.LevelBands,
		"frequency": c.FrequencyBands,
	} {
		if bands[0] <= 0 || bands[2] >= 1 || bands[0] >= bands[1] || bands[1] >= bands[2] {
			return fmt.Errorf("%w: %s bands %v must be strictly increasing within (0,1)", ErrConfig, name, bands)
		}
	}
	return nil
}

// Classify maps a final score to its risk level, training frequency, and
// whether the manager-notification flag is set (immediate tier only).
// Pure function of the score: no state between invocations.
func Classify(score float64, cfg ClassifierConfig) (RiskLevel, TrainingFrequency, bool) {
	var level RiskLevel
	switch {
	case score < cfg.LevelBands[0]:
		level = LevelLow
	case score < cfg.LevelBands[1]:
		level = LevelMedium
	case score < cfg.LevelBands[2]:
		level = LevelHigh
	default:
		level = LevelCritical
	}

	var freq TrainingFrequency
	switch {
	case score < cfg.FrequencyBands[0]:
		freq = FrequencyQuarterly
	case score < cfg.FrequencyBands[1]:
		freq = FrequencyMonthly
	case score < cfg.FrequencyBands[2]:
		freq = FrequencyWeekly
	default:
		freq = FrequencyImmediate
	}

	return level, freq, freq == FrequencyImmediate
}
