package empi

import (
	"math"
	"testing"
	"time"

	"github.com/trustmedis/empi/internal/config"
	"github.com/trustmedis/empi/internal/domain/patient"
	"github.com/trustmedis/empi/internal/domain/person"
)

func TestJaroWinklerSimilarity(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
		approx bool
	}{
		{"", "", 0.0, false},
		{"jane", "", 0.0, false},
		{"jane", "jane", 1.0, false},
		{"Jane", "jane", 1.0, false},
		{"martha", "marhta", 0.961, true},
		{"dwayne", "duane", 0.840, true},
		{"abc", "xyz", 0.0, false},
	}
	for _, tt := range tests {
		got := jaroWinklerSimilarity(tt.s1, tt.s2)
		if tt.approx {
			if math.Abs(got-tt.want) > 0.005 {
				t.Errorf("jaroWinklerSimilarity(%q, %q) = %v, want ~%v", tt.s1, tt.s2, got, tt.want)
			}
		} else if got != tt.want {
			t.Errorf("jaroWinklerSimilarity(%q, %q) = %v, want %v", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestCompareIdenticalSparseRecordsScoreFull(t *testing.T) {
	s := NewScorer(config.DefaultMatchWeights())
	bd := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)

	pat := &patient.Patient{NameFamily: "Doe", NameGiven: "Jane", BirthDate: &bd}
	cand := &person.Person{NameFamily: strp("Doe"), NameGiven: strp("Jane"), BirthDate: &bd}

	cmp := s.Compare(pat, cand)
	if cmp.Score != 1.0 {
		t.Errorf("identical sparse records must score 1.0, got %v", cmp.Score)
	}
	if cmp.Vector&VectorNameFamily == 0 || cmp.Vector&VectorNameGiven == 0 || cmp.Vector&VectorBirthDate == 0 {
		t.Errorf("vector missing agreed fields: %b", cmp.Vector)
	}
}

func TestCompareOnlySharedFieldsCount(t *testing.T) {
	s := NewScorer(config.DefaultMatchWeights())
	bd := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)

	// Candidate has extra fields the patient lacks; they must not dilute.
	pat := &patient.Patient{NameFamily: "Doe", NameGiven: "Jane", BirthDate: &bd}
	cand := &person.Person{
		NameFamily: strp("Doe"),
		NameGiven:  strp("Jane"),
		BirthDate:  &bd,
		Phone:      strp("555-0100"),
		Email:      strp("jane@example.com"),
	}

	cmp := s.Compare(pat, cand)
	if cmp.Score != 1.0 {
		t.Errorf("one-sided fields must not count, got %v", cmp.Score)
	}
}

func TestCompareEIDForcesMatch(t *testing.T) {
	s := NewScorer(config.DefaultMatchWeights())
	bd := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)
	other := time.Date(1955, time.March, 3, 0, 0, 0, 0, time.UTC)

	pat := &patient.Patient{EID: strp("MRN-1"), NameFamily: "Doe", BirthDate: &bd}
	cand := &person.Person{
		EIDs:       []person.EID{{Value: "MRN-1"}},
		NameFamily: strp("Xavier"),
		BirthDate:  &other,
	}

	cmp := s.Compare(pat, cand)
	if !cmp.EIDMatch {
		t.Error("shared eid must set EIDMatch")
	}
	if cmp.Score != 1.0 {
		t.Errorf("shared eid forces score 1.0, got %v", cmp.Score)
	}
	if cmp.Vector != VectorEID {
		t.Errorf("eid short-circuit sets only the eid bit, got %b", cmp.Vector)
	}
}

func TestCompareNoSharedFields(t *testing.T) {
	s := NewScorer(config.DefaultMatchWeights())
	bd := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)

	pat := &patient.Patient{NameFamily: "Doe", NameGiven: "Jane"}
	cand := &person.Person{BirthDate: &bd, Phone: strp("555-0100")}

	cmp := s.Compare(pat, cand)
	if cmp.Score != 0.0 || cmp.Vector != 0 {
		t.Errorf("no comparable fields must score zero, got %+v", cmp)
	}
}

func TestPhoneDigitsMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"(555) 010-0199", "555.010.0199", true},
		{"555-0100", "555-0199", false},
		{"123", "123", true},
		{"123", "124", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := phoneDigitsMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("phoneDigitsMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	got := normalizeAddress("123 Main St., Apt. #4")
	if got != "123 main st apt 4" {
		t.Errorf("normalizeAddress = %q", got)
	}
}
