package person

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CandidateFilter is the demographic blocking filter: a Person passes when at
// least one populated field agrees. Empty fields are ignored.
type CandidateFilter struct {
	NameFamily string
	BirthDate  *time.Time
	PostalCode string
}

type Repository interface {
	Create(ctx context.Context, p *Person) error
	GetByID(ctx context.Context, id uuid.UUID) (*Person, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Person, error)
	Update(ctx context.Context, p *Person) error
	List(ctx context.Context, limit, offset int) ([]*Person, int, error)

	// FindByEID returns active Persons holding the given external
	// identifier, in identifier-ascending order.
	FindByEID(ctx context.Context, value string) ([]*Person, error)

	// FindCandidates returns up to limit active Persons passing the blocking
	// filter, in a stable deterministic order (creation time, then id).
	FindCandidates(ctx context.Context, filter CandidateFilter, limit int) ([]*Person, error)
}
