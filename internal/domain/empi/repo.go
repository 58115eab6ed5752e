package empi

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrManualOverride is returned when the automatic pipeline attempts to
	// rewrite a link a human has already decided.
	ErrManualOverride = errors.New("link is manually decided and cannot be overwritten automatically")

	// ErrLinkNotFound is returned when no link exists for a requested pair.
	ErrLinkNotFound = errors.New("link not found")

	// ErrDuplicateNotFound is returned when no unresolved duplicate entry
	// exists for a requested id.
	ErrDuplicateNotFound = errors.New("duplicate entry not found")
)

// LinkRepository is the persistence port for links. There is at most one
// link row per (person, target) pair; Upsert revises it in place.
type LinkRepository interface {
	// Upsert inserts the link or, if a row for the pair exists, updates its
	// classification and increments version_id. The stored id, version and
	// timestamps are written back into l.
	Upsert(ctx context.Context, l *Link) error

	GetByPair(ctx context.Context, personID, targetID uuid.UUID) (*Link, error)
	FindByPerson(ctx context.Context, personID uuid.UUID) ([]*Link, error)
	FindByTarget(ctx context.Context, targetID uuid.UUID) ([]*Link, error)
	Delete(ctx context.Context, personID, targetID uuid.UUID) error

	// LockPersons serializes resolution touching the given Persons for the
	// duration of the surrounding transaction.
	LockPersons(ctx context.Context, personIDs []uuid.UUID) error
}

// DuplicateRepository persists probable-duplicate review entries.
type DuplicateRepository interface {
	// Record inserts the entry unless an unresolved one already exists for
	// the same Person pair.
	Record(ctx context.Context, d *PersonDuplicate) error

	List(ctx context.Context, includeResolved bool, limit, offset int) ([]*PersonDuplicate, int, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}
