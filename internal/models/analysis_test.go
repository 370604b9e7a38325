package models

import "testing"

func TestConfidenceLevelBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{0.95, ConfidenceHigh},
		{0.8, ConfidenceHigh},
		{0.79, ConfidenceMedium},
		{0.6, ConfidenceMedium},
		{0.59, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tc := range cases {
		if got := ConfidenceLevelFor(tc.score); got != tc.want {
			t.Fatalf("%v: got %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestNewHypothesisClampsConfidence(t *testing.T) {
	if h := NewHypothesis("x", 1.5, CategoryOther); h.Confidence != 1 {
		t.Fatalf("expected clamp to 1, got %v", h.Confidence)
	}
	if h := NewHypothesis("x", -0.2, CategoryOther); h.Confidence != 0 {
		t.Fatalf("expected clamp to 0, got %v", h.Confidence)
	}
}

func TestTopHypothesis(t *testing.T) {
	var empty Analysis
	if _, ok := empty.TopHypothesis(); ok {
		t.Fatal("empty analysis has no top hypothesis")
	}

	a := Analysis{Hypotheses: []RootCauseHypothesis{
		{Cause: "first", Confidence: 0.9},
		{Cause: "second", Confidence: 0.7},
	}}
	top, ok := a.TopHypothesis()
	if !ok || top.Cause != "first" {
		t.Fatalf("unexpected top hypothesis %+v", top)
	}
}

func TestEventValidate(t *testing.T) {
	valid := Event{ID: "EVT-1", Severity: SeverityHigh, Type: EventTypeNetwork}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []Event{
		{Severity: SeverityHigh, Type: EventTypeNetwork},
		{ID: "EVT-1", Severity: "Extreme", Type: EventTypeNetwork},
		{ID: "EVT-1", Severity: SeverityHigh, Type: "Mainframe"},
	}
	for i, e := range cases {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d should be rejected", i)
		}
	}
}
