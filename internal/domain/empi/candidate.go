package empi

import (
	"context"

	"github.com/trustmedis/empi/internal/domain/patient"
	"github.com/trustmedis/empi/internal/domain/person"
)

// CandidateFinder narrows the Person population to plausible candidates for
// one incoming Patient before any pairwise scoring happens.
type CandidateFinder struct {
	persons person.Repository
	limit   int
}

// NewCandidateFinder creates a finder returning at most limit candidates per
// search.
func NewCandidateFinder(persons person.Repository, limit int) *CandidateFinder {
	return &CandidateFinder{persons: persons, limit: limit}
}

// Find returns candidate Persons for pat in a stable order. A Patient
// carrying an external identifier searches by that identifier first; EID hits
// are authoritative and skip demographic blocking entirely. Otherwise
// candidates are those agreeing on at least one blocking field (birth date,
// family name or postal code). A Patient with no blocking data yields no
// candidates, which resolves to a new Person downstream.
func (f *CandidateFinder) Find(ctx context.Context, pat *patient.Patient) ([]*person.Person, error) {
	if pat.EID != nil && *pat.EID != "" {
		byEID, err := f.persons.FindByEID(ctx, *pat.EID)
		if err != nil {
			return nil, err
		}
		if len(byEID) > 0 {
			return byEID, nil
		}
	}

	filter := person.CandidateFilter{
		NameFamily: pat.NameFamily,
		BirthDate:  pat.BirthDate,
	}
	if pat.PostalCode != nil {
		filter.PostalCode = *pat.PostalCode
	}
	if filter.NameFamily == "" && filter.BirthDate == nil && filter.PostalCode == "" {
		return nil, nil
	}
	return f.persons.FindCandidates(ctx, filter, f.limit)
}
