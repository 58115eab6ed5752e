package empi

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/trustmedis/empi/internal/domain/patient"
	"github.com/trustmedis/empi/internal/domain/person"
)

// reconcile applies the linkage policy to the scored candidate sets. Exactly
// one of three outcomes happens: a new Person is created, the single matched
// Person is reused, or POSSIBLE_MATCH links are laid down for review.
func (s *Service) reconcile(ctx context.Context, pat *patient.Patient, matches, possibles []scored) (*Resolution, error) {
	res := &Resolution{PatientID: pat.ID}

	switch {
	case len(matches) == 1:
		m := matches[0]

		// A Patient-sourced identifier colliding with a different
		// Patient-sourced identifier on the matched Person means the match
		// is suspect: the Person population probably holds a duplicate.
		if pat.EID != nil && !m.person.HasEID(*pat.EID) {
			if primary := m.person.PrimaryEID(); primary != nil && !primary.SystemAssigned {
				return s.flagProbableDuplicate(ctx, pat, m.person)
			}
			// Replace the generated placeholder with the Patient-sourced
			// identifier.
			m.person.EIDs = []person.EID{{Value: *pat.EID, SystemAssigned: false}}
			if err := s.persons.Update(ctx, m.person); err != nil {
				return nil, fmt.Errorf("update person eid: %w", err)
			}
		}

		if m.existing != nil && m.existing.LinkSource == LinkSourceManual {
			// Human already decided this pair; leave the link untouched.
			res.Links = append(res.Links, m.existing)
			return res, nil
		}

		link := &Link{
			PersonID:    m.person.ID,
			TargetID:    pat.ID,
			MatchResult: MatchResultMatch,
			LinkSource:  LinkSourceAuto,
			Vector:      m.comparison.Vector,
			Score:       m.comparison.Score,
			EIDMatch:    m.comparison.EIDMatch,
		}
		if err := s.links.Upsert(ctx, link); err != nil {
			return nil, fmt.Errorf("upsert match link: %w", err)
		}
		res.Links = append(res.Links, link)
		return res, nil

	case len(possibles) > 0:
		for _, p := range possibles {
			if p.existing != nil && p.existing.LinkSource == LinkSourceManual {
				res.Links = append(res.Links, p.existing)
				continue
			}
			link := &Link{
				PersonID:    p.person.ID,
				TargetID:    pat.ID,
				MatchResult: MatchResultPossibleMatch,
				LinkSource:  LinkSourceAuto,
				Vector:      p.comparison.Vector,
				Score:       p.comparison.Score,
				EIDMatch:    p.comparison.EIDMatch,
			}
			if err := s.links.Upsert(ctx, link); err != nil {
				return nil, fmt.Errorf("upsert possible link: %w", err)
			}
			res.Links = append(res.Links, link)
		}
		return res, nil

	default:
		return s.createPersonFor(ctx, pat, nil)
	}
}

// createPersonFor builds a new Person from the Patient's demographics and
// links the pair as a MATCH. When the Patient carries no identifier a fresh
// system identifier is generated and marked as such, so a later
// Patient-sourced identifier can supersede it.
func (s *Service) createPersonFor(ctx context.Context, pat *patient.Patient, duplicateOf *person.Person) (*Resolution, error) {
	p := personFromPatient(pat)
	if err := s.persons.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}

	link := &Link{
		PersonID:    p.ID,
		TargetID:    pat.ID,
		MatchResult: MatchResultMatch,
		LinkSource:  LinkSourceAuto,
		NewPerson:   true,
	}
	if err := s.links.Upsert(ctx, link); err != nil {
		return nil, fmt.Errorf("upsert new-person link: %w", err)
	}

	res := &Resolution{PatientID: pat.ID, Links: []*Link{link}, NewPersonID: &p.ID}
	if duplicateOf != nil {
		d := NewPersonDuplicate(p.ID, duplicateOf.ID, pat.ID)
		if err := s.duplicates.Record(ctx, &d); err != nil {
			return nil, fmt.Errorf("record duplicate: %w", err)
		}
		res.DuplicateOf = &duplicateOf.ID
	}
	return res, nil
}

// flagProbableDuplicate handles the identifier conflict case: the incoming
// Patient matched a Person whose identifier came from a different Patient.
// The Patient gets its own new Person and the two Persons are queued for
// human review; no automatic merge happens.
func (s *Service) flagProbableDuplicate(ctx context.Context, pat *patient.Patient, matched *person.Person) (*Resolution, error) {
	s.log.Warn().
		Str("patient_id", pat.ID.String()).
		Str("person_id", matched.ID.String()).
		Msg("eid conflict on matched person, flagging probable duplicate")
	return s.createPersonFor(ctx, pat, matched)
}

// personFromPatient copies a Patient's demographics onto a fresh Person.
func personFromPatient(pat *patient.Patient) *person.Person {
	p := &person.Person{
		Active:      true,
		NameGiven:   optStr(pat.NameGiven),
		NameFamily:  optStr(pat.NameFamily),
		Gender:      pat.Gender,
		BirthDate:   pat.BirthDate,
		AddressLine: pat.AddressLine,
		City:        pat.City,
		State:       pat.State,
		PostalCode:  pat.PostalCode,
		Phone:       pat.Phone,
		Email:       pat.Email,
	}
	if pat.EID != nil && *pat.EID != "" {
		p.EIDs = []person.EID{{Value: *pat.EID, SystemAssigned: false}}
	} else {
		p.EIDs = []person.EID{{Value: uuid.NewString(), SystemAssigned: true}}
	}
	return p
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
