package encounter

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

// --- Triage ---

func (s *Service) RecordTriage(ctx context.Context, t *Triage) error {
	if t.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if !ValidCategory(t.Category) {
		return fmt.Errorf("category must be one of: red, yellow, green, black")
	}
	if t.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if t.TriagedBy == "" {
		return fmt.Errorf("triaged_by is required")
	}
	return s.repo.CreateTriage(ctx, t)
}

func (s *Service) TriageForPatient(ctx context.Context, patientID uuid.UUID) (*Triage, error) {
	return s.repo.GetTriageByPatient(ctx, patientID)
}

// --- Assessment ---

func (s *Service) RecordAssessment(ctx context.Context, a *Assessment) error {
	if err := validateAssessment(a); err != nil {
		return err
	}
	return s.repo.CreateAssessment(ctx, a)
}

// AmendAssessment replaces the single assessment on file for the
// patient. The record keeps its identity so later readers see one
// assessment per visit.
func (s *Service) AmendAssessment(ctx context.Context, patientID uuid.UUID, updated *Assessment) (*Assessment, error) {
	existing, err := s.repo.GetAssessmentByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.PatientID = existing.PatientID
	updated.CreatedAt = existing.CreatedAt
	if err := validateAssessment(updated); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAssessment(ctx, updated); err != nil {
		return nil, err
	}
	return s.repo.GetAssessmentByPatient(ctx, patientID)
}

func (s *Service) AssessmentForPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	return s.repo.GetAssessmentByPatient(ctx, patientID)
}

func validateAssessment(a *Assessment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.ChiefComplaint == "" {
		return fmt.Errorf("chief_complaint is required")
	}
	if len(a.VitalSigns) == 0 {
		return fmt.Errorf("vital_signs is required")
	}
	if a.AssessedBy == "" {
		return fmt.Errorf("assessed_by is required")
	}
	return nil
}

// --- Examination ---

func (s *Service) RecordExamination(ctx context.Context, e *Examination) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if e.Assessment == "" {
		return fmt.Errorf("assessment is required")
	}
	if e.Plan == "" {
		return fmt.Errorf("plan is required")
	}
	if e.DoctorName == "" {
		return fmt.Errorf("doctor_name is required")
	}
	return s.repo.CreateExamination(ctx, e)
}

func (s *Service) Examination(ctx context.Context, id uuid.UUID) (*Examination, error) {
	return s.repo.GetExamination(ctx, id)
}

func (s *Service) ExaminationsForPatient(ctx context.Context, patientID uuid.UUID) ([]*Examination, error) {
	return s.repo.ListExaminationsByPatient(ctx, patientID)
}

// --- Prescription ---

func (s *Service) Prescribe(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.MedicationName == "" {
		return fmt.Errorf("medication_name is required")
	}
	if p.Dosage == "" {
		return fmt.Errorf("dosage is required")
	}
	if p.Route == "" {
		return fmt.Errorf("route is required")
	}
	if p.Frequency == "" {
		return fmt.Errorf("frequency is required")
	}
	if p.PrescribedBy == "" {
		return fmt.Errorf("prescribed_by is required")
	}
	return s.repo.CreatePrescription(ctx, p)
}

func (s *Service) Dispense(ctx context.Context, id uuid.UUID, dispensedBy string) (*Prescription, error) {
	if dispensedBy == "" {
		return nil, fmt.Errorf("dispensed_by is required")
	}
	if _, err := s.repo.GetPrescription(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.DispenseIfPending(ctx, id, dispensedBy); err != nil {
		return nil, err
	}
	return s.repo.GetPrescription(ctx, id)
}

func (s *Service) PrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	return s.repo.ListPrescriptionsByPatient(ctx, patientID)
}

func (s *Service) PendingPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListUndispensed(ctx, limit, offset)
}

// --- Disposition ---

func (s *Service) RecordDisposition(ctx context.Context, d *Disposition) error {
	if d.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if !ValidDispositionType(d.Type) {
		return fmt.Errorf("disposition_type must be one of: discharge, outpatient, inpatient, deceased")
	}
	if d.AuthorizedBy == "" {
		return fmt.Errorf("authorized_by is required")
	}
	switch d.Type {
	case DispositionOutpatient:
		if d.ClinicReferredTo == nil || *d.ClinicReferredTo == "" {
			return fmt.Errorf("clinic_referred_to is required for outpatient referral")
		}
	case DispositionInpatient:
		if d.DestinationWard == nil || *d.DestinationWard == "" {
			return fmt.Errorf("destination_ward is required for inpatient transfer")
		}
	case DispositionDeceased:
		if d.TimeOfDeath == nil {
			return fmt.Errorf("time_of_death is required for deceased disposition")
		}
	}
	return s.repo.CreateDisposition(ctx, d)
}

func (s *Service) DispositionForPatient(ctx context.Context, patientID uuid.UUID) (*Disposition, error) {
	return s.repo.GetDispositionByPatient(ctx, patientID)
}

func (s *Service) CompleteDisposition(ctx context.Context, patientID uuid.UUID) (*Disposition, error) {
	d, err := s.repo.GetDispositionByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.FinalizeIfPending(ctx, d.ID); err != nil {
		return nil, err
	}
	return s.repo.GetDispositionByPatient(ctx, patientID)
}
