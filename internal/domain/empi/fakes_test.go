package empi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trustmedis/empi/internal/domain/patient"
	"github.com/trustmedis/empi/internal/domain/person"
)

// In-memory fakes mirroring the Postgres repositories closely enough to
// exercise the orchestrator's semantics.

type fakePatientRepo struct {
	items map[uuid.UUID]*patient.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{items: map[uuid.UUID]*patient.Patient{}}
}

func (r *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	p.VersionID = 1
	p.CreatedAt = time.Now()
	r.items[p.ID] = p
	return nil
}

func (r *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, errors.New("patient not found")
	}
	return p, nil
}

func (r *fakePatientRepo) GetByFHIRID(_ context.Context, fhirID string) (*patient.Patient, error) {
	for _, p := range r.items {
		if p.FHIRID == fhirID {
			return p, nil
		}
	}
	return nil, errors.New("patient not found")
}

func (r *fakePatientRepo) Update(_ context.Context, p *patient.Patient) error {
	if _, ok := r.items[p.ID]; !ok {
		return errors.New("patient not found")
	}
	p.VersionID++
	r.items[p.ID] = p
	return nil
}

func (r *fakePatientRepo) List(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	var all []*patient.Patient
	for _, p := range r.items {
		all = append(all, p)
	}
	return all, len(all), nil
}

type fakePersonRepo struct {
	order []uuid.UUID
	items map[uuid.UUID]*person.Person
}

func newFakePersonRepo() *fakePersonRepo {
	return &fakePersonRepo{items: map[uuid.UUID]*person.Person{}}
}

func (r *fakePersonRepo) Create(_ context.Context, p *person.Person) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	if p.EIDs == nil {
		p.EIDs = []person.EID{}
	}
	p.VersionID = 1
	p.CreatedAt = time.Now()
	r.items[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *fakePersonRepo) GetByID(_ context.Context, id uuid.UUID) (*person.Person, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, errors.New("person not found")
	}
	return p, nil
}

func (r *fakePersonRepo) GetByFHIRID(_ context.Context, fhirID string) (*person.Person, error) {
	for _, p := range r.items {
		if p.FHIRID == fhirID {
			return p, nil
		}
	}
	return nil, errors.New("person not found")
}

func (r *fakePersonRepo) Update(_ context.Context, p *person.Person) error {
	if _, ok := r.items[p.ID]; !ok {
		return errors.New("person not found")
	}
	p.VersionID++
	r.items[p.ID] = p
	return nil
}

func (r *fakePersonRepo) List(_ context.Context, limit, offset int) ([]*person.Person, int, error) {
	var all []*person.Person
	for _, id := range r.order {
		all = append(all, r.items[id])
	}
	return all, len(all), nil
}

func (r *fakePersonRepo) FindByEID(_ context.Context, value string) ([]*person.Person, error) {
	var out []*person.Person
	for _, id := range r.order {
		p := r.items[id]
		if p.Active && p.HasEID(value) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePersonRepo) FindCandidates(_ context.Context, f person.CandidateFilter, limit int) ([]*person.Person, error) {
	var out []*person.Person
	for _, id := range r.order {
		p := r.items[id]
		if !p.Active {
			continue
		}
		hit := false
		if f.BirthDate != nil && p.BirthDate != nil && f.BirthDate.Equal(*p.BirthDate) {
			hit = true
		}
		if f.NameFamily != "" && p.NameFamily != nil && strings.EqualFold(f.NameFamily, *p.NameFamily) {
			hit = true
		}
		if f.PostalCode != "" && p.PostalCode != nil && f.PostalCode == *p.PostalCode {
			hit = true
		}
		if hit {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type pairKey struct{ person, target uuid.UUID }

type fakeLinkRepo struct {
	order     []pairKey
	items     map[pairKey]*Link
	upsertErr error
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{items: map[pairKey]*Link{}}
}

func (r *fakeLinkRepo) Upsert(_ context.Context, l *Link) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if err := l.Validate(); err != nil {
		return err
	}
	key := pairKey{l.PersonID, l.TargetID}
	if existing, ok := r.items[key]; ok {
		l.ID = existing.ID
		l.VersionID = existing.VersionID + 1
		l.CreatedAt = existing.CreatedAt
	} else {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.VersionID = 1
		l.CreatedAt = time.Now()
		r.order = append(r.order, key)
	}
	l.UpdatedAt = time.Now()
	cp := *l
	r.items[key] = &cp
	return nil
}

func (r *fakeLinkRepo) GetByPair(_ context.Context, personID, targetID uuid.UUID) (*Link, error) {
	l, ok := r.items[pairKey{personID, targetID}]
	if !ok {
		return nil, ErrLinkNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLinkRepo) FindByPerson(_ context.Context, personID uuid.UUID) ([]*Link, error) {
	var out []*Link
	for _, key := range r.order {
		if key.person == personID {
			cp := *r.items[key]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) FindByTarget(_ context.Context, targetID uuid.UUID) ([]*Link, error) {
	var out []*Link
	for _, key := range r.order {
		if key.target == targetID {
			cp := *r.items[key]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) Delete(_ context.Context, personID, targetID uuid.UUID) error {
	key := pairKey{personID, targetID}
	if _, ok := r.items[key]; !ok {
		return ErrLinkNotFound
	}
	delete(r.items, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeLinkRepo) LockPersons(_ context.Context, _ []uuid.UUID) error { return nil }

func (r *fakeLinkRepo) count() int { return len(r.items) }

type fakeDuplicateRepo struct {
	items []*PersonDuplicate
}

func (r *fakeDuplicateRepo) Record(_ context.Context, d *PersonDuplicate) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	cp := *d
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeDuplicateRepo) List(_ context.Context, includeResolved bool, limit, offset int) ([]*PersonDuplicate, int, error) {
	var out []*PersonDuplicate
	for _, d := range r.items {
		if includeResolved || !d.Resolved {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (r *fakeDuplicateRepo) Resolve(_ context.Context, id uuid.UUID) error {
	for _, d := range r.items {
		if d.ID == id && !d.Resolved {
			d.Resolved = true
			return nil
		}
	}
	return ErrDuplicateNotFound
}

// fakeTxRunner runs the unit directly; the fakes have no transactions.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
