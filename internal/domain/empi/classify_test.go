package empi

import "testing"

func TestClassifyBands(t *testing.T) {
	th := Thresholds{Low: 0.60, High: 0.80}
	tests := []struct {
		score float64
		want  MatchResult
	}{
		{0.0, MatchResultNoMatch},
		{0.59, MatchResultNoMatch},
		{0.60, MatchResultPossibleMatch},
		{0.79, MatchResultPossibleMatch},
		{0.80, MatchResultMatch},
		{1.0, MatchResultMatch},
	}
	for _, tt := range tests {
		if got := th.Classify(Comparison{Score: tt.score}); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClassifyEIDMatchAlwaysMatches(t *testing.T) {
	th := Thresholds{Low: 0.60, High: 0.80}
	if got := th.Classify(Comparison{Score: 0.0, EIDMatch: true}); got != MatchResultMatch {
		t.Errorf("eid match must classify as MATCH, got %s", got)
	}
}

func TestNewThresholdsValidation(t *testing.T) {
	if _, err := NewThresholds(0.60, 0.80); err != nil {
		t.Errorf("valid thresholds rejected: %v", err)
	}
	invalid := []struct{ low, high float64 }{
		{0, 0.80},
		{1.0, 1.0},
		{0.80, 0.60},
		{0.60, 0.60},
		{0.60, 1.1},
	}
	for _, tt := range invalid {
		if _, err := NewThresholds(tt.low, tt.high); err == nil {
			t.Errorf("NewThresholds(%v, %v) must fail", tt.low, tt.high)
		}
	}
}
