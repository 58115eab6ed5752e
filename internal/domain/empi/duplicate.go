package empi

import (
	"time"

	"github.com/google/uuid"
)

// PersonDuplicate maps to the person_duplicate table: a review-queue entry
// recording that two distinct Persons each matched the same incoming Patient
// and are therefore probable duplicates of one another. The pair is stored
// ordered (PersonID < OtherPersonID lexically) so each pair appears once.
type PersonDuplicate struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PersonID      uuid.UUID `db:"person_id" json:"person_id"`
	OtherPersonID uuid.UUID `db:"other_person_id" json:"other_person_id"`
	TargetID      uuid.UUID `db:"target_id" json:"target_id"`
	Resolved      bool      `db:"resolved" json:"resolved"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// NewPersonDuplicate builds an ordered duplicate entry for the pair (a, b)
// flagged while resolving target.
func NewPersonDuplicate(a, b, target uuid.UUID) PersonDuplicate {
	if b.String() < a.String() {
		a, b = b, a
	}
	return PersonDuplicate{PersonID: a, OtherPersonID: b, TargetID: target}
}
