package encounter

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrTriageExists     = errors.New("patient already triaged")
	ErrAssessmentExists = errors.New("patient already assessed")
	ErrAlreadyDispensed = errors.New("prescription already dispensed")
	ErrAlreadyDisposed  = errors.New("patient already has a disposition")
	ErrAlreadyFinalized = errors.New("disposition already completed")
)

// Repository persists the visit workflow chain.
type Repository interface {
	CreateTriage(ctx context.Context, t *Triage) error
	GetTriageByPatient(ctx context.Context, patientID uuid.UUID) (*Triage, error)

	CreateAssessment(ctx context.Context, a *Assessment) error
	GetAssessmentByPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error)
	UpdateAssessment(ctx context.Context, a *Assessment) error

	CreateExamination(ctx context.Context, e *Examination) error
	GetExamination(ctx context.Context, id uuid.UUID) (*Examination, error)
	ListExaminationsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Examination, error)

	CreatePrescription(ctx context.Context, p *Prescription) error
	GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
	ListUndispensed(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	// DispenseIfPending marks the prescription dispensed only if it has
	// not been already.
	DispenseIfPending(ctx context.Context, id uuid.UUID, dispensedBy string) error

	CreateDisposition(ctx context.Context, d *Disposition) error
	GetDispositionByPatient(ctx context.Context, patientID uuid.UUID) (*Disposition, error)
	// FinalizeIfPending marks the disposition completed only once.
	FinalizeIfPending(ctx context.Context, id uuid.UUID) error
}
