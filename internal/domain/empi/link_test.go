package empi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLinkValidate(t *testing.T) {
	personID := uuid.New()
	targetID := uuid.New()

	tests := []struct {
		name    string
		link    Link
		wantErr bool
	}{
		{"auto match", Link{PersonID: personID, TargetID: targetID, MatchResult: MatchResultMatch, LinkSource: LinkSourceAuto}, false},
		{"manual no match", Link{PersonID: personID, TargetID: targetID, MatchResult: MatchResultNoMatch, LinkSource: LinkSourceManual}, false},
		{"auto no match", Link{PersonID: personID, TargetID: targetID, MatchResult: MatchResultNoMatch, LinkSource: LinkSourceAuto}, true},
		{"missing person", Link{TargetID: targetID, MatchResult: MatchResultMatch, LinkSource: LinkSourceAuto}, true},
		{"missing target", Link{PersonID: personID, MatchResult: MatchResultMatch, LinkSource: LinkSourceAuto}, true},
		{"bad result", Link{PersonID: personID, TargetID: targetID, MatchResult: "MAYBE", LinkSource: LinkSourceAuto}, true},
		{"bad source", Link{PersonID: personID, TargetID: targetID, MatchResult: MatchResultMatch, LinkSource: "ROBOT"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinkToJSON(t *testing.T) {
	now := time.Now().UTC()
	l := Link{
		ID:          uuid.New(),
		PersonID:    uuid.New(),
		TargetID:    uuid.New(),
		MatchResult: MatchResultMatch,
		LinkSource:  LinkSourceAuto,
		Vector:      VectorNameFamily | VectorBirthDate,
		Score:       0.92,
		EIDMatch:    false,
		NewPerson:   true,
		VersionID:   3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	j := l.ToJSON()
	if j.PersonID != l.PersonID.String() || j.TargetID != l.TargetID.String() {
		t.Error("pair ids not carried into interchange form")
	}
	if j.MatchResult != "MATCH" || j.LinkSource != "AUTO" {
		t.Errorf("classification not carried: %s/%s", j.MatchResult, j.LinkSource)
	}
	if j.Version != "3" {
		t.Errorf("version = %q, want \"3\"", j.Version)
	}
	if j.NewPerson == nil || !*j.NewPerson {
		t.Error("newPerson flag lost")
	}

	raw, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"personId", "targetId", "matchResult", "linkSource", "vector", "score", "eidMatch", "newPerson"} {
		if _, ok := m[field]; !ok {
			t.Errorf("interchange field %q missing", field)
		}
	}
}
