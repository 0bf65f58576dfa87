package engine

import "testing"

func TestDetectorMultiplier(t *testing.T) {
	detector := NewDetector(DefaultRules(DefaultCorrelationConfig()))

	tests := []struct {
		name        string
		signals     RawSignals
		wantMult    float64
		wantPattern string
	}{
		{
			name:        "no signals",
			signals:     RawSignals{},
			wantMult:    1.0,
			wantPattern: "",
		},
		{
			name: "compromised account",
			signals: RawSignals{
				CommitCount:        0,
				PrivilegedIAMCount: 4,
				SIEMAlertCount:     3,
			},
			wantMult:    2.0,
			wantPattern: PatternCompromisedAccount,
		},
		{
			name: "iam count at threshold does not fire",
			signals: RawSignals{
				CommitCount:        0,
				PrivilegedIAMCount: 3,
				SIEMAlertCount:     3,
			},
			wantMult:    1.0,
			wantPattern: "",
		},
		{
			name: "alert count at threshold does not fire",
			signals: RawSignals{
				CommitCount:        0,
				PrivilegedIAMCount: 4,
				SIEMAlertCount:     2,
			},
			wantMult:    1.0,
			wantPattern: "",
		},
		{
			name: "commits suppress compromised account",
			signals: RawSignals{
				CommitCount:        1,
				PrivilegedIAMCount: 10,
				SIEMAlertCount:     10,
			},
			wantMult:    1.0,
			wantPattern: "",
		},
		{
			name: "insider threat",
			signals: RawSignals{
				CommitCount:    5,
				OffHoursAccess: true,
				LargeExport:    true,
			},
			wantMult:    1.5,
			wantPattern: PatternInsiderThreat,
		},
		{
			name: "approved ticket suppresses insider threat",
			signals: RawSignals{
				OffHoursAccess: true,
				LargeExport:    true,
				ApprovedTicket: true,
			},
			wantMult:    1.0,
			wantPattern: "",
		},
		{
			name: "off-hours alone is not insider threat",
			signals: RawSignals{
				OffHoursAccess: true,
			},
			wantMult:    1.0,
			wantPattern: "",
		},
		{
			name: "both patterns match, higher multiplier wins",
			signals: RawSignals{
				CommitCount:        0,
				PrivilegedIAMCount: 5,
				SIEMAlertCount:     4,
				OffHoursAccess:     true,
				LargeExport:        true,
			},
			wantMult:    2.0,
			wantPattern: PatternCompromisedAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mult, pattern := detector.Multiplier(tt.signals)
			if mult != tt.wantMult {
				t.Errorf("Multiplier = %v, want %v", mult, tt.wantMult)
			}
			if pattern != tt.wantPattern {
				t.Errorf("pattern = %q, want %q", pattern, tt.wantPattern)
			}
		})
	}
}

func TestDetectorCustomThresholds(t *testing.T) {
	cfg := CorrelationConfig{PrivilegedIAMThreshold: 1, SIEMAlertThreshold: 0}
	detector := NewDetector(DefaultRules(cfg))

	mult, pattern := detector.Multiplier(RawSignals{
		PrivilegedIAMCount: 2,
		SIEMAlertCount:     1,
	})
	if mult != 2.0 || pattern != PatternCompromisedAccount {
		t.Errorf("Multiplier = (%v, %q), want (2.0, %q)", mult, pattern, PatternCompromisedAccount)
	}
}
