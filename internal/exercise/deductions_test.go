package exercise

import "testing"

// allIssueCodes enumerates every code a check can emit. A code missing
// from the deduction table would silently score zero points.
var allIssueCodes = []IssueCode{
	IssueLowVisibility,
	IssueShallowDepth,
	IssueBackRounded,
	IssueKneeValgus,
	IssueKneeOverToe,
	IssueAsymmetry,
	IssueTempoFast,
	IssueHipsSagging,
	IssueHipsPiking,
	IssueElbowFlare,
	IssueIncompleteRange,
}

func TestDeductionTable_Complete(t *testing.T) {
	for _, code := range allIssueCodes {
		d, ok := DeductionFor(code)
		if !ok {
			t.Errorf("missing deduction entry for %s", code)
			continue
		}
		if d.Points <= 0 {
			t.Errorf("%s: non-positive deduction %v", code, d.Points)
		}
		if d.Priority.Rank() == 0 {
			t.Errorf("%s: invalid priority %q", code, d.Priority)
		}
		if d.Message == "" || d.Suggestion == "" {
			t.Errorf("%s: missing message or suggestion", code)
		}
	}

	if len(deductionTable) != len(allIssueCodes) {
		t.Errorf("deduction table has %d entries, expected %d (orphaned code?)",
			len(deductionTable), len(allIssueCodes))
	}
}

func TestDeductionTable_SeverityOrdering(t *testing.T) {
	// Visibility loss must dominate: it zeroes any frame on its own.
	if deductionTable[IssueLowVisibility].Points < 100 {
		t.Error("visibility deduction must zero the frame score")
	}

	// Critical issues must deduct at least as much as any low issue.
	for code, d := range deductionTable {
		if d.Priority != PriorityCritical {
			continue
		}
		for other, od := range deductionTable {
			if od.Priority == PriorityLow && od.Points > d.Points {
				t.Errorf("low-priority %s outweighs critical %s", other, code)
			}
		}
	}
}

func TestNewIssue_UnknownCode(t *testing.T) {
	issue := newIssue(IssueCode("made:up"))
	if issue.Points != 0 {
		t.Errorf("unknown code must deduct nothing, got %v", issue.Points)
	}
	if issue.Priority != PriorityLow {
		t.Errorf("unknown code must rank low, got %s", issue.Priority)
	}
}

func TestConfigFor_AllTypes(t *testing.T) {
	for _, typ := range []Type{Squat, Pushup, Lunge, Plank} {
		cfg, ok := ConfigFor(typ)
		if !ok {
			t.Errorf("missing config for %s", typ)
			continue
		}
		if cfg.Type != typ {
			t.Errorf("config type mismatch for %s", typ)
		}
		if len(cfg.RequiredLandmarks) == 0 {
			t.Errorf("%s: no required landmarks", typ)
		}
		if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
			t.Errorf("%s: min confidence %v out of range", typ, cfg.MinConfidence)
		}
		if !cfg.Isometric {
			th := cfg.Thresholds
			// Hysteresis: leave thresholds must sit strictly outside the
			// matching enter thresholds.
			if th.StartEnterAbove <= th.DownEnterBelow {
				t.Errorf("%s: no hysteresis between start and down", typ)
			}
			if th.BottomExitAbove <= th.BottomEnterBelow {
				t.Errorf("%s: no hysteresis around bottom", typ)
			}
		}
	}

	if _, ok := ConfigFor(Type("burpee")); ok {
		t.Error("expected no config for unknown type")
	}
}
