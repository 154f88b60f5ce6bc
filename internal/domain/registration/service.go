package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMRNImmutable is returned when an update attempts to change an assigned MRN.
var ErrMRNImmutable = errors.New("mrn cannot be changed")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, p *Patient) error {
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.Gender == "" {
		return fmt.Errorf("gender is required")
	}
	if p.ArrivalMode == "" {
		return fmt.Errorf("arrival_mode is required")
	}
	if p.MRN != nil && *p.MRN == "" {
		p.MRN = nil
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	if mrn == "" {
		return nil, fmt.Errorf("mrn is required")
	}
	return s.repo.GetByMRN(ctx, mrn)
}

// FindIDByMRN resolves an MRN to an internal patient identity. The boolean is
// false when no patient carries that MRN; that is a deferred state for the
// reconciliation engine, not an error.
func (s *Service) FindIDByMRN(ctx context.Context, mrn string) (uuid.UUID, bool, error) {
	p, err := s.repo.GetByMRN(ctx, mrn)
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return p.ID, true, nil
}

// Update modifies demographics. An MRN may be assigned once to a patient
// without one; changing or clearing an assigned MRN is rejected.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing.MRN != nil {
		if p.MRN == nil || *p.MRN != *existing.MRN {
			return ErrMRNImmutable
		}
	}
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
