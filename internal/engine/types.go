package engine

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Source tags a behavioral data origin. The set of sources is closed at
// configuration time (keys of the severity table) but open at code time:
// adding a source is a configuration change, not an engine change.
type Source string

// Sources configured by default. Collectors may register more via config.
const (
	SourceGit      Source = "git"
	SourceIAM      Source = "iam"
	SourceSIEM     Source = "siem"
	SourceTraining Source = "training"
)

// RiskLevel is the coarse classification of a final score.
type RiskLevel int

const (
	LevelLow RiskLevel = iota + 1
	LevelMedium
	LevelHigh
	LevelCritical
)

// String returns the uppercase level name as stored and reported.
func (l RiskLevel) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNSPECIFIED"
	}
}

// TrainingFrequency is the cadence tier derived from a final score.
type TrainingFrequency int

const (
	FrequencyQuarterly TrainingFrequency = iota + 1
	FrequencyMonthly
	FrequencyWeekly
	FrequencyImmediate
)

// String returns the lowercase tier name as stored and reported.
func (f TrainingFrequency) String() string {
	switch f {
	case FrequencyQuarterly:
		return "quarterly"
	case FrequencyMonthly:
		return "monthly"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyImmediate:
		return "immediate"
	default:
		return "unspecified"
	}
}

// Employee is the slice of an employee record the engine needs to score it.
type Employee struct {
	ID      string
	Role    string
	HiredAt time.Time
}

// Event is a single behavioral event as seen by the calculator:
// its per-source type and when it happened. The full record (payload,
// flags, ticket reference) stays in the event store.
type Event struct {
	Type      string
	Timestamp time.Time
}

// Window is the observation interval scores are computed over.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEnding returns a window of the given number of days closing at end.
func WindowEnding(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// RawSignals holds the cross-source signals the correlation detector
// inspects for one employee over the window.
type RawSignals struct {
	CommitCount        int
	PrivilegedIAMCount int
	SIEMAlertCount     int
	OffHoursAccess     bool
	LargeExport        bool
	ApprovedTicket     bool
}

// Assessment is the full result of scoring one employee: the unit that is
// upserted as the live profile and appended to history in one transaction.
type Assessment struct {
	EmployeeID    string
	SubScores     map[Source]float64
	Multiplier    float64
	Pattern       string // correlation pattern that fired, "" if none
	Score         float64
	Level         RiskLevel
	Frequency     TrainingFrequency
	NotifyManager bool
	ComputedAt    time.Time
}

// ErrStorage marks transient event-store or profile-store failures.
// The batch orchestrator retries per-employee work that fails with it.
var ErrStorage = errors.New("storage failure")

// ErrConfig marks configuration that would produce systematically wrong
// scores. It is fatal at load time and never tolerated at runtime.
var ErrConfig = errors.New("invalid engine configuration")

// SeverityTable maps (source, event type) to a severity weight in [0,1].
type SeverityTable map[Source]map[string]float64

// RoleWeightMatrix maps (role, source) to a contribution weight in [0,1].
// Each row must sum to 1 within weightSumTolerance.
type RoleWeightMatrix map[string]map[Source]float64

const weightSumTolerance = 1e-9

// Tables is the immutable scoring configuration injected into the engine
// at construction time. Never mutated after Validate passes.
type Tables struct {
	Severity    SeverityTable
	RoleWeights RoleWeightMatrix
	DefaultRole string
}

// Sources returns the configured source registry: every source with a
// severity sub-table. The calculator and aggregator iterate this set.
func (t Tables) Sources() []Source {
	sources := make([]Source, 0, len(t.Severity))
	for src := range t.Severity {
		sources = append(sources, src)
	}
	return sources
}

// Validate checks the invariants that make scores trustworthy. Any
// violation wraps ErrConfig and must abort startup.
func (t Tables) Validate() error {
	if len(t.Severity) == 0 {
		return fmt.Errorf("%w: severity table is empty", ErrConfig)
	}
	for src, entries := range t.Severity {
		for eventType, weight := range entries {
			if weight < 0 || weight > 1 {
				return fmt.Errorf("%w: severity %s/%s = %v outside [0,1]", ErrConfig, src, eventType, weight)
			}
		}
	}

	if len(t.RoleWeights) == 0 {
		return fmt.Errorf("%w: role weight matrix is empty", ErrConfig)
	}
	if _, ok := t.RoleWeights[t.DefaultRole]; !ok {
		return fmt.Errorf("%w: default role %q has no weight row", ErrConfig, t.DefaultRole)
	}
	for role, row := range t.RoleWeights {
		var sum float64
		for src, weight := range row {
			if weight < 0 || weight > 1 {
				return fmt.Errorf("%w: role weight %s/%s = %v outside [0,1]", ErrConfig, role, src, weight)
			}
			if _, ok := t.Severity[src]; !ok {
				return fmt.Errorf("%w: role %q weights unknown source %q", ErrConfig, role, src)
			}
			sum += weight
		}
		if math.Abs(sum-1.0) > weightSumTolerance {
			return fmt.Errorf("%w: role %q weights sum to %v, want 1.0", ErrConfig, role, sum)
		}
	}
	return nil
}
