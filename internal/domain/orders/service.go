package orders

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

func (s *Service) Create(ctx context.Context, o *Order) error {
	if o.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if o.TestName == "" {
		return fmt.Errorf("test_name is required")
	}
	if !ValidTestType(o.TestType) {
		return fmt.Errorf("test_type must be %q or %q", TestTypeLaboratory, TestTypeRadiology)
	}
	if o.RequestedBy == "" {
		return fmt.Errorf("requested_by is required")
	}
	if o.Priority == "" {
		o.Priority = PriorityRoutine
	}
	if !ValidPriority(o.Priority) {
		return fmt.Errorf("priority must be %q, %q, or %q", PriorityStat, PriorityUrgent, PriorityRoutine)
	}
	return s.repo.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// FindOpen returns open orders matching the exact key, oldest first.
func (s *Service) FindOpen(ctx context.Context, patientID uuid.UUID, testType, testName string) ([]*Order, error) {
	return s.repo.FindOpen(ctx, patientID, testType, testName)
}

// AddResult records a manually entered result. It completes the order through
// the same single mutation point the reconciliation engine uses, with no
// external result link.
func (s *Service) AddResult(ctx context.Context, orderID uuid.UUID, payload, addedBy string) error {
	if payload == "" {
		return fmt.Errorf("result is required")
	}
	if addedBy == "" {
		return fmt.Errorf("result_added_by is required")
	}
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return err
	}
	return s.repo.CompleteIfOpen(ctx, orderID, payload, addedBy, SourceManual, nil)
}

// CompleteIfOpen is exposed for the reconciliation engine's transactional use.
func (s *Service) CompleteIfOpen(ctx context.Context, id uuid.UUID, payload, completedBy, source string, externalResultID *uuid.UUID) error {
	return s.repo.CompleteIfOpen(ctx, id, payload, completedBy, source, externalResultID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListOpenByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error) {
	return s.repo.ListOpenByPatient(ctx, patientID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return s.repo.List(ctx, limit, offset)
}
