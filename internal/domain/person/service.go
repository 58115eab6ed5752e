package person

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePerson(ctx context.Context, p *Person) error {
	for _, e := range p.EIDs {
		if e.Value == "" {
			return fmt.Errorf("person eid must not be empty")
		}
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPerson(ctx context.Context, id uuid.UUID) (*Person, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPersonByFHIRID(ctx context.Context, fhirID string) (*Person, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) ListPersons(ctx context.Context, limit, offset int) ([]*Person, int, error) {
	return s.repo.List(ctx, limit, offset)
}
