package engine

// Correlation pattern names, recorded on the assessment for audit.
const (
	PatternCompromisedAccount = "compromised_account"
	PatternInsiderThreat      = "insider_threat"
)

// CorrelationConfig holds the tunable thresholds for the correlation rules.
type CorrelationConfig struct {
	PrivilegedIAMThreshold int
	SIEMAlertThreshold     int
}

// DefaultCorrelationConfig returns the stock thresholds.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		PrivilegedIAMThreshold: 3,
		SIEMAlertThreshold:     2,
	}
}

// CorrelationRule pairs a predicate over raw signals with the multiplier
// applied when it matches.
type CorrelationRule struct {
	Name       string
	Multiplier float64
	Match      func(RawSignals) bool
}

// Detector evaluates an ordered rule list against an employee's raw
// signals. First match wins, so precedence is explicit in rule order
// rather than buried in nested conditionals.
type Detector struct {
	rules []CorrelationRule
}

// NewDetector creates a detector over the given ordered rules.
func NewDetector(rules []CorrelationRule) *Detector {
	return &Detector{rules: rules}
}

// DefaultRules returns the stock rule list, highest multiplier first.
//
// compromised_account (2.0): no commit activity, yet privileged IAM
// actions and SIEM alerts both exceed their thresholds. Activity without
// corresponding work output suggests the account, not the employee.
//
// insider_threat (1.5): off-hours access plus a large data export with no
// approved ticket covering the activity.
func DefaultRules(cfg CorrelationConfig) []CorrelationRule {
	return []CorrelationRule{
		{
			Name:       PatternCompromisedAccount,
			Multiplier: 2.0,
			Match: func(s RawSignals) bool {
				return s.CommitCount == 0 &&
					s.PrivilegedIAMCount > cfg.PrivilegedIAMThreshold &&
					s.SIEMAlertCount > cfg.SIEMAlertThreshold
			},
		},
		{
			Name:       PatternInsiderThreat,
			Multiplier: 1.5,
			Match: func(s RawSignals) bool {
				return s.OffHoursAccess && s.LargeExport && !s.ApprovedTicket
			},
		},
	}
}

// Multiplier returns the multiplier and pattern name of the first matching
// rule, or (1.0, "") when no pattern fires.
func (d *Detector) Multiplier(signals RawSignals) (float64, string) {
	for _, rule := range d.rules {
		if rule.Match(signals) {
			return rule.Multiplier, rule.Name
		}
	}
	return 1.0, ""
}
