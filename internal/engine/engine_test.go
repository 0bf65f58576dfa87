package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeReader serves canned events and signals for one employee.
type fakeReader struct {
	events  map[Source][]Event
	signals RawSignals
	err     error
}

func (f *fakeReader) SourceEvents(_ context.Context, _ string, source Source, _ Window) ([]Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events[source], nil
}

func (f *fakeReader) Signals(_ context.Context, _ string, _ Window) (RawSignals, error) {
	if f.err != nil {
		return RawSignals{}, f.err
	}
	return f.signals, nil
}

func fullTables() Tables {
	return Tables{
		Severity: SeverityTable{
			SourceGit: {
				"commit":          0.0,
				"force_push":      0.1,
				"secret_detected": 0.3,
			},
			SourceIAM: {
				"role_assumption":   0.05,
				"privileged_action": 0.15,
				"mfa_disabled":      0.2,
			},
			SourceSIEM: {
				"policy_violation":  0.1,
				"phishing_click":    0.2,
				"malware_detection": 0.3,
			},
			SourceTraining: {
				"ticket_approved":   0.0,
				"security_ticket":   0.05,
				"overdue_task":      0.1,
				"failed_assessment": 0.15,
			},
		},
		RoleWeights: testRoleWeights(),
		DefaultRole: "default",
	}
}

func testConfig() Config {
	return Config{
		Tables:      fullTables(),
		Decay:       DecayConfig{Enabled: false},
		Correlation: DefaultCorrelationConfig(),
		Classifier:  DefaultClassifierConfig(),
	}
}

func testWindow() Window {
	return WindowEnding(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 30)
}

func TestConfigValidate(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := testConfig()
	bad.Tables.RoleWeights["backend_developer"][SourceGit] = 0.5 // row now sums to 1.15
	if err := bad.Validate(); err == nil {
		t.Error("config with bad weight row sum passed validation")
	}

	neg := testConfig()
	neg.Decay = DecayConfig{Enabled: true, Lambda: -0.1}
	if err := neg.Validate(); err == nil {
		t.Error("config with negative lambda passed validation")
	}
}

func TestTablesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{"empty severity", func(tb *Tables) { tb.Severity = nil }},
		{"severity out of range", func(tb *Tables) { tb.Severity[SourceGit]["secret_detected"] = 1.5 }},
		{"empty role weights", func(tb *Tables) { tb.RoleWeights = nil }},
		{"missing default role", func(tb *Tables) { tb.DefaultRole = "nonexistent" }},
		{"weight out of range", func(tb *Tables) { tb.RoleWeights["default"][SourceGit] = -0.1 }},
		{"unknown source in weights", func(tb *Tables) {
			tb.RoleWeights["default"] = map[Source]float64{"satellite": 1.0}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := fullTables()
			tt.mutate(&tables)
			if err := tables.Validate(); err == nil {
				t.Error("invalid tables passed validation")
			}
		})
	}
}

func TestScoreZeroEvents(t *testing.T) {
	eng := New(testConfig(), &fakeReader{}, zap.NewNop())

	a, err := eng.Score(context.Background(), Employee{ID: "e1", Role: "backend_developer"}, testWindow())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if a.Score != 0 {
		t.Errorf("score = %v, want 0", a.Score)
	}
	if a.Level != LevelLow || a.Frequency != FrequencyQuarterly {
		t.Errorf("classification = %v/%v, want LOW/quarterly", a.Level, a.Frequency)
	}
	if a.Multiplier != 1.0 || a.Pattern != "" {
		t.Errorf("multiplier = %v pattern = %q, want 1.0 and none", a.Multiplier, a.Pattern)
	}
	if len(a.SubScores) != 4 {
		t.Errorf("sub-scores for %d sources, want 4", len(a.SubScores))
	}
}

func TestScoreGitActivity(t *testing.T) {
	window := testWindow()
	reader := &fakeReader{
		events: map[Source][]Event{
			SourceGit: {
				{Type: "secret_detected", Timestamp: window.End.AddDate(0, 0, -1)},
				{Type: "secret_detected", Timestamp: window.End.AddDate(0, 0, -2)},
				{Type: "secret_detected", Timestamp: window.End.AddDate(0, 0, -3)},
			},
		},
		signals: RawSignals{CommitCount: 12},
	}
	eng := New(testConfig(), reader, zap.NewNop())

	a, err := eng.Score(context.Background(), Employee{ID: "e1", Role: "backend_developer"}, window)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// git sub-score 0.9, weight 0.35, no pattern: 0.315.
	if math.Abs(a.Score-0.315) > 1e-9 {
		t.Errorf("score = %v, want 0.315", a.Score)
	}
	if a.Level != LevelMedium || a.Frequency != FrequencyMonthly {
		t.Errorf("classification = %v/%v, want MEDIUM/monthly", a.Level, a.Frequency)
	}
	if a.NotifyManager {
		t.Error("notify flag set below immediate tier")
	}
}

func TestScoreCompromisedAccountDoubles(t *testing.T) {
	window := testWindow()
	reader := &fakeReader{
		events: map[Source][]Event{
			SourceIAM: {
				{Type: "mfa_disabled", Timestamp: window.End.AddDate(0, 0, -1)},
				{Type: "privileged_action", Timestamp: window.End.AddDate(0, 0, -1)},
				{Type: "privileged_action", Timestamp: window.End.AddDate(0, 0, -2)},
				{Type: "privileged_action", Timestamp: window.End.AddDate(0, 0, -2)},
			},
			SourceSIEM: {
				{Type: "malware_detection", Timestamp: window.End.AddDate(0, 0, -1)},
				{Type: "malware_detection", Timestamp: window.End.AddDate(0, 0, -2)},
				{Type: "phishing_click", Timestamp: window.End.AddDate(0, 0, -3)},
			},
		},
		signals: RawSignals{
			CommitCount:        0,
			PrivilegedIAMCount: 4,
			SIEMAlertCount:     3,
		},
	}
	eng := New(testConfig(), reader, zap.NewNop())

	a, err := eng.Score(context.Background(), Employee{ID: "e1", Role: "default"}, window)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if a.Multiplier != 2.0 || a.Pattern != PatternCompromisedAccount {
		t.Fatalf("multiplier = %v pattern = %q, want 2.0 %q", a.Multiplier, a.Pattern, PatternCompromisedAccount)
	}
	// iam 0.65, siem 0.8, equal weights 0.25: raw 0.3625, doubled 0.725.
	if math.Abs(a.Score-0.725) > 1e-9 {
		t.Errorf("score = %v, want 0.725", a.Score)
	}
	if a.Level != LevelCritical {
		t.Errorf("level = %v, want CRITICAL", a.Level)
	}
}

func TestScoreIdempotent(t *testing.T) {
	window := testWindow()
	reader := &fakeReader{
		events: map[Source][]Event{
			SourceGit:  {{Type: "force_push", Timestamp: window.End.AddDate(0, 0, -4)}},
			SourceSIEM: {{Type: "phishing_click", Timestamp: window.End.AddDate(0, 0, -2)}},
		},
		signals: RawSignals{CommitCount: 3, SIEMAlertCount: 1},
	}
	eng := New(testConfig(), reader, zap.NewNop())
	emp := Employee{ID: "e1", Role: "backend_developer"}

	first, err := eng.Score(context.Background(), emp, window)
	if err != nil {
		t.Fatalf("first Score: %v", err)
	}
	second, err := eng.Score(context.Background(), emp, window)
	if err != nil {
		t.Fatalf("second Score: %v", err)
	}

	if first.Score != second.Score || first.Level != second.Level ||
		first.Frequency != second.Frequency || first.Multiplier != second.Multiplier {
		t.Errorf("recompute over unchanged log diverged: %+v vs %+v", first, second)
	}
	for src, sub := range first.SubScores {
		if second.SubScores[src] != sub {
			t.Errorf("sub-score %s diverged: %v vs %v", src, sub, second.SubScores[src])
		}
	}
}

func TestScorePropagatesReaderError(t *testing.T) {
	eng := New(testConfig(), &fakeReader{err: ErrStorage}, zap.NewNop())

	if _, err := eng.Score(context.Background(), Employee{ID: "e1"}, testWindow()); err == nil {
		t.Error("Score swallowed reader error")
	}
}
