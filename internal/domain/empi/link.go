package empi

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MatchResult is the classification of one (Person, target) pair.
type MatchResult string

const (
	MatchResultNoMatch       MatchResult = "NO_MATCH"
	MatchResultPossibleMatch MatchResult = "POSSIBLE_MATCH"
	MatchResultMatch         MatchResult = "MATCH"
)

func (m MatchResult) Valid() bool {
	switch m {
	case MatchResultNoMatch, MatchResultPossibleMatch, MatchResultMatch:
		return true
	}
	return false
}

// LinkSource records whether a link was produced by the automatic pipeline
// or by an explicit human decision.
type LinkSource string

const (
	LinkSourceAuto   LinkSource = "AUTO"
	LinkSourceManual LinkSource = "MANUAL"
)

func (s LinkSource) Valid() bool {
	return s == LinkSourceAuto || s == LinkSourceManual
}

// Link maps to the empi_link table: the durable record of classifying one
// (Person, Patient) pair. At most one row exists per ordered pair; revisions
// update the row and increment its version.
type Link struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	PersonID    uuid.UUID   `db:"person_id" json:"person_id"`
	TargetID    uuid.UUID   `db:"target_id" json:"target_id"`
	MatchResult MatchResult `db:"match_result" json:"match_result"`
	LinkSource  LinkSource  `db:"link_source" json:"link_source"`
	Vector      uint64      `db:"vector" json:"vector"`
	Score       float64     `db:"score" json:"score"`
	EIDMatch    bool        `db:"eid_match" json:"eid_match"`
	NewPerson   bool        `db:"new_person" json:"new_person"`
	VersionID   int         `db:"version_id" json:"version_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Validate enforces link invariants ahead of the persistence boundary. The
// automatic pipeline never records a NO_MATCH: absence of a link is the
// negative outcome, so AUTO NO_MATCH rows are rejected outright.
func (l *Link) Validate() error {
	if l.PersonID == uuid.Nil {
		return fmt.Errorf("link person_id is required")
	}
	if l.TargetID == uuid.Nil {
		return fmt.Errorf("link target_id is required")
	}
	if !l.MatchResult.Valid() {
		return fmt.Errorf("invalid match result: %s", l.MatchResult)
	}
	if !l.LinkSource.Valid() {
		return fmt.Errorf("invalid link source: %s", l.LinkSource)
	}
	if l.MatchResult == MatchResultNoMatch && l.LinkSource == LinkSourceAuto {
		return fmt.Errorf("NO_MATCH links must be MANUAL")
	}
	return nil
}

// LinkJSON is the flat interchange representation of a Link for transport
// and audit. Only the pair and its classification are mandatory.
type LinkJSON struct {
	PersonID    string     `json:"personId"`
	TargetID    string     `json:"targetId"`
	MatchResult string     `json:"matchResult"`
	LinkSource  string     `json:"linkSource"`
	Created     *time.Time `json:"created,omitempty"`
	Updated     *time.Time `json:"updated,omitempty"`
	Version     string     `json:"version,omitempty"`
	EIDMatch    *bool      `json:"eidMatch,omitempty"`
	NewPerson   *bool      `json:"newPerson,omitempty"`
	Vector      *uint64    `json:"vector,omitempty"`
	Score       *float64   `json:"score,omitempty"`
}

// ToJSON converts a Link to its interchange form.
func (l *Link) ToJSON() LinkJSON {
	created := l.CreatedAt
	updated := l.UpdatedAt
	eidMatch := l.EIDMatch
	newPerson := l.NewPerson
	vector := l.Vector
	score := l.Score
	return LinkJSON{
		PersonID:    l.PersonID.String(),
		TargetID:    l.TargetID.String(),
		MatchResult: string(l.MatchResult),
		LinkSource:  string(l.LinkSource),
		Created:     &created,
		Updated:     &updated,
		Version:     fmt.Sprintf("%d", l.VersionID),
		EIDMatch:    &eidMatch,
		NewPerson:   &newPerson,
		Vector:      &vector,
		Score:       &score,
	}
}
