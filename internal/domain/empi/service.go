package empi

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/trustmedis/empi/internal/domain/patient"
	"github.com/trustmedis/empi/internal/domain/person"
	"github.com/trustmedis/empi/internal/platform/db"
)

var (
	// ErrInactivePatient is returned when resolution is requested for a
	// Patient that is not active.
	ErrInactivePatient = errors.New("patient is not active")

	// ErrContention is returned when a concurrent resolution touched the
	// same Person or link pair; the caller may retry.
	ErrContention = errors.New("concurrent resolution conflict, retry")

	// ErrPatientNotFound is returned when a FHIR resource id does not
	// address a known Patient.
	ErrPatientNotFound = errors.New("patient not found")
)

// TxRunner executes a function inside one atomic unit. Repositories called
// with the context it provides join that unit.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type pgTxRunner struct{ pool *pgxpool.Pool }

// NewPgTxRunner returns a TxRunner backed by a pgx transaction.
func NewPgTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgTxRunner{pool: pool}
}

func (r *pgTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

// Resolution reports the outcome of resolving one Patient.
type Resolution struct {
	PatientID   uuid.UUID   `json:"patient_id"`
	Links       []*Link     `json:"links"`
	NewPersonID *uuid.UUID  `json:"new_person_id,omitempty"`
	DuplicateOf *uuid.UUID  `json:"duplicate_of,omitempty"`
}

// Service orchestrates record linkage: candidate search, pairwise scoring,
// classification and reconciliation, committed as a single atomic unit.
type Service struct {
	patients   patient.Repository
	persons    person.Repository
	links      LinkRepository
	duplicates DuplicateRepository
	finder     *CandidateFinder
	scorer     *Scorer
	thresholds Thresholds
	tx         TxRunner
	log        zerolog.Logger
}

func NewService(
	patients patient.Repository,
	persons person.Repository,
	links LinkRepository,
	duplicates DuplicateRepository,
	finder *CandidateFinder,
	scorer *Scorer,
	thresholds Thresholds,
	tx TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		patients:   patients,
		persons:    persons,
		links:      links,
		duplicates: duplicates,
		finder:     finder,
		scorer:     scorer,
		thresholds: thresholds,
		tx:         tx,
		log:        log,
	}
}

// scored pairs one candidate Person with its comparison outcome and any
// pre-existing link for the pair.
type scored struct {
	person     *person.Person
	comparison Comparison
	result     MatchResult
	existing   *Link
}

// UpdateLinksForPatient resolves one Patient against the known Person
// population. All link writes and any new Person commit together or not at
// all. Re-running against unchanged data revises the same link rows instead
// of adding new ones.
func (s *Service) UpdateLinksForPatient(ctx context.Context, patientID uuid.UUID) (*Resolution, error) {
	pat, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if !pat.Active {
		return nil, ErrInactivePatient
	}

	var res *Resolution
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		candidates, err := s.finder.Find(ctx, pat)
		if err != nil {
			return fmt.Errorf("find candidates: %w", err)
		}
		candidates, err = s.withLinkedPersons(ctx, pat.ID, candidates)
		if err != nil {
			return fmt.Errorf("load linked persons: %w", err)
		}

		ids := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		if err := s.links.LockPersons(ctx, ids); err != nil {
			return fmt.Errorf("lock persons: %w", err)
		}

		matches, possibles, err := s.scoreCandidates(ctx, pat, candidates)
		if err != nil {
			return err
		}

		res, err = s.reconcile(ctx, pat, matches, possibles)
		return err
	})
	if err != nil {
		return nil, asContention(err)
	}
	return res, nil
}

// withLinkedPersons extends the candidate set with Persons already linked to
// the target. A sparse record can carry none of the blocking fields, so the
// Person its first resolution created is invisible to the finder; the
// existing links recover it and keep re-runs from minting another one.
func (s *Service) withLinkedPersons(ctx context.Context, targetID uuid.UUID, candidates []*person.Person) ([]*person.Person, error) {
	existing, err := s.links.FindByTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		seen[c.ID] = true
	}
	for _, l := range existing {
		if seen[l.PersonID] {
			continue
		}
		p, err := s.persons.GetByID(ctx, l.PersonID)
		if err != nil {
			return nil, err
		}
		seen[p.ID] = true
		candidates = append(candidates, p)
	}
	return candidates, nil
}

// scoreCandidates scores pat against every candidate and splits the results
// into MATCH and POSSIBLE_MATCH sets. Pairs a human already decided are
// honored as decided: MANUAL NO_MATCH excludes the pair outright, any other
// MANUAL result is carried forward unscored. More than one MATCH means the
// population is ambiguous, so all matches degrade to POSSIBLE_MATCH.
func (s *Service) scoreCandidates(ctx context.Context, pat *patient.Patient, candidates []*person.Person) (matches, possibles []scored, err error) {
	for _, cand := range candidates {
		existing, err := s.links.GetByPair(ctx, cand.ID, pat.ID)
		if err != nil && !errors.Is(err, ErrLinkNotFound) {
			return nil, nil, fmt.Errorf("load existing link: %w", err)
		}

		if existing != nil && existing.LinkSource == LinkSourceManual {
			if existing.MatchResult == MatchResultNoMatch {
				s.log.Info().
					Str("person_id", cand.ID.String()).
					Str("patient_id", pat.ID.String()).
					Msg("pair excluded by manual no-match decision")
				continue
			}
			sc := scored{person: cand, result: existing.MatchResult, existing: existing}
			if existing.MatchResult == MatchResultMatch {
				matches = append(matches, sc)
			} else {
				possibles = append(possibles, sc)
			}
			continue
		}

		cmp := s.scorer.Compare(pat, cand)
		sc := scored{person: cand, comparison: cmp, result: s.thresholds.Classify(cmp), existing: existing}
		switch sc.result {
		case MatchResultMatch:
			matches = append(matches, sc)
		case MatchResultPossibleMatch:
			possibles = append(possibles, sc)
		}
	}

	if len(matches) > 1 {
		s.log.Warn().
			Str("patient_id", pat.ID.String()).
			Int("match_count", len(matches)).
			Msg("ambiguous match set, downgrading all matches to possible")
		for i := range matches {
			matches[i].result = MatchResultPossibleMatch
		}
		possibles = append(possibles, matches...)
		matches = nil
	}
	return matches, possibles, nil
}

// UpdateLinksForPatientFHIR resolves links for the Patient addressed by its
// FHIR resource id.
func (s *Service) UpdateLinksForPatientFHIR(ctx context.Context, fhirID string) (*Resolution, error) {
	pat, err := s.patients.GetByFHIRID(ctx, fhirID)
	if err != nil {
		return nil, fmt.Errorf("patient %s: %w", fhirID, ErrPatientNotFound)
	}
	return s.UpdateLinksForPatient(ctx, pat.ID)
}

// SetManualLink records a human decision for a (Person, target) pair,
// overriding any automatic classification. A manual decision is final with
// respect to the automatic pipeline until a later manual decision revises it.
func (s *Service) SetManualLink(ctx context.Context, personID, targetID uuid.UUID, result MatchResult) (*Link, error) {
	if !result.Valid() {
		return nil, fmt.Errorf("invalid match result: %s", result)
	}
	if _, err := s.persons.GetByID(ctx, personID); err != nil {
		return nil, fmt.Errorf("load person: %w", err)
	}
	if _, err := s.patients.GetByID(ctx, targetID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var link *Link
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.links.LockPersons(ctx, []uuid.UUID{personID}); err != nil {
			return err
		}
		link = &Link{PersonID: personID, TargetID: targetID, MatchResult: result, LinkSource: LinkSourceManual}
		if existing, err := s.links.GetByPair(ctx, personID, targetID); err == nil {
			link.Score = existing.Score
			link.Vector = existing.Vector
			link.EIDMatch = existing.EIDMatch
			link.NewPerson = existing.NewPerson
		} else if !errors.Is(err, ErrLinkNotFound) {
			return err
		}
		return s.links.Upsert(ctx, link)
	})
	if err != nil {
		return nil, asContention(err)
	}
	return link, nil
}

// LinksForPerson returns all links held by a Person.
func (s *Service) LinksForPerson(ctx context.Context, personID uuid.UUID) ([]*Link, error) {
	return s.links.FindByPerson(ctx, personID)
}

// LinksForTarget returns all links pointing at a target Patient.
func (s *Service) LinksForTarget(ctx context.Context, targetID uuid.UUID) ([]*Link, error) {
	return s.links.FindByTarget(ctx, targetID)
}

// Duplicates lists recorded probable-duplicate Person pairs for review.
func (s *Service) Duplicates(ctx context.Context, includeResolved bool, limit, offset int) ([]*PersonDuplicate, int, error) {
	return s.duplicates.List(ctx, includeResolved, limit, offset)
}

// ResolveDuplicate marks one review entry handled.
func (s *Service) ResolveDuplicate(ctx context.Context, id uuid.UUID) error {
	return s.duplicates.Resolve(ctx, id)
}

// asContention maps database conflict errors onto the retryable sentinel.
func asContention(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %v", ErrContention, err)
		}
	}
	return err
}
