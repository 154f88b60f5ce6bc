package encounter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edtrack/edtrack/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Triage ---

const triageCols = `id, patient_id, category, reason, vital_signs, triaged_by, triaged_at`

func scanTriage(row pgx.Row) (*Triage, error) {
	var t Triage
	err := row.Scan(&t.ID, &t.PatientID, &t.Category, &t.Reason, &t.VitalSigns, &t.TriagedBy, &t.TriagedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *repoPG) CreateTriage(ctx context.Context, t *Triage) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO triage (id, patient_id, category, reason, vital_signs, triaged_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING triaged_at`,
		t.ID, t.PatientID, t.Category, t.Reason, t.VitalSigns, t.TriagedBy,
	).Scan(&t.TriagedAt)
	if isUniqueViolation(err) {
		return ErrTriageExists
	}
	return err
}

func (r *repoPG) GetTriageByPatient(ctx context.Context, patientID uuid.UUID) (*Triage, error) {
	return scanTriage(r.conn(ctx).QueryRow(ctx, `SELECT `+triageCols+` FROM triage WHERE patient_id = $1`, patientID))
}

// --- Assessment ---

const assessmentCols = `id, patient_id, chief_complaint, history, allergies, medications,
	vital_signs, assessment_details, assessed_by, created_at, updated_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.PatientID, &a.ChiefComplaint, &a.History, &a.Allergies, &a.Medications,
		&a.VitalSigns, &a.AssessmentDetails, &a.AssessedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) CreateAssessment(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nurse_assessment (id, patient_id, chief_complaint, history, allergies, medications,
			vital_signs, assessment_details, assessed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.ChiefComplaint, a.History, a.Allergies, a.Medications,
		a.VitalSigns, a.AssessmentDetails, a.AssessedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAssessmentExists
	}
	return err
}

func (r *repoPG) GetAssessmentByPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	return scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+assessmentCols+` FROM nurse_assessment WHERE patient_id = $1`, patientID))
}

func (r *repoPG) UpdateAssessment(ctx context.Context, a *Assessment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE nurse_assessment SET chief_complaint=$2, history=$3, allergies=$4, medications=$5,
			vital_signs=$6, assessment_details=$7, assessed_by=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.ChiefComplaint, a.History, a.Allergies, a.Medications,
		a.VitalSigns, a.AssessmentDetails, a.AssessedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Examination ---

const examCols = `id, patient_id, subjective, objective, assessment, plan, doctor_name,
	requires_lab_tests, created_at, updated_at`

func scanExamination(row pgx.Row) (*Examination, error) {
	var e Examination
	err := row.Scan(&e.ID, &e.PatientID, &e.Subjective, &e.Objective, &e.Assessment, &e.Plan, &e.DoctorName,
		&e.RequiresLabTests, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *repoPG) CreateExamination(ctx context.Context, e *Examination) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_examination (id, patient_id, subjective, objective, assessment, plan,
			doctor_name, requires_lab_tests)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.Subjective, e.Objective, e.Assessment, e.Plan,
		e.DoctorName, e.RequiresLabTests,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) GetExamination(ctx context.Context, id uuid.UUID) (*Examination, error) {
	return scanExamination(r.conn(ctx).QueryRow(ctx, `SELECT `+examCols+` FROM doctor_examination WHERE id = $1`, id))
}

func (r *repoPG) ListExaminationsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Examination, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+examCols+` FROM doctor_examination WHERE patient_id = $1 ORDER BY created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Examination
	for rows.Next() {
		e, err := scanExamination(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// --- Prescription ---

const rxCols = `id, patient_id, medication_name, dosage, route, frequency, duration,
	special_instructions, prescribed_by, prescribed_at, dispensed, dispensed_by, dispensed_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.MedicationName, &p.Dosage, &p.Route, &p.Frequency, &p.Duration,
		&p.SpecialInstructions, &p.PrescribedBy, &p.PrescribedAt, &p.Dispensed, &p.DispensedBy, &p.DispensedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) CreatePrescription(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, patient_id, medication_name, dosage, route, frequency,
			duration, special_instructions, prescribed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING prescribed_at`,
		p.ID, p.PatientID, p.MedicationName, p.Dosage, p.Route, p.Frequency,
		p.Duration, p.SpecialInstructions, p.PrescribedBy,
	).Scan(&p.PrescribedAt)
}

func (r *repoPG) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+rxCols+` FROM prescription WHERE patient_id = $1 ORDER BY prescribed_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) ListUndispensed(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription WHERE dispensed = false`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+rxCols+` FROM prescription WHERE dispensed = false ORDER BY prescribed_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) DispenseIfPending(ctx context.Context, id uuid.UUID, dispensedBy string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET dispensed = true, dispensed_by = $2, dispensed_at = NOW()
		WHERE id = $1 AND dispensed = false`,
		id, dispensedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDispensed
	}
	return nil
}

// --- Disposition ---

const dispoCols = `id, patient_id, disposition_type, discharge_instructions, follow_up_plan,
	clinic_referred_to, appointment_date, destination_ward, bed_number, bed_available,
	waiting_list_position, time_of_death, cause_of_death, authorized_by, disposition_time,
	notes, completed, completed_at`

func scanDisposition(row pgx.Row) (*Disposition, error) {
	var d Disposition
	err := row.Scan(&d.ID, &d.PatientID, &d.Type, &d.DischargeInstructions, &d.FollowUpPlan,
		&d.ClinicReferredTo, &d.AppointmentDate, &d.DestinationWard, &d.BedNumber, &d.BedAvailable,
		&d.WaitingListPosition, &d.TimeOfDeath, &d.CauseOfDeath, &d.AuthorizedBy, &d.DispositionTime,
		&d.Notes, &d.Completed, &d.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *repoPG) CreateDisposition(ctx context.Context, d *Disposition) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO disposition (id, patient_id, disposition_type, discharge_instructions, follow_up_plan,
			clinic_referred_to, appointment_date, destination_ward, bed_number, bed_available,
			waiting_list_position, time_of_death, cause_of_death, authorized_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING disposition_time`,
		d.ID, d.PatientID, d.Type, d.DischargeInstructions, d.FollowUpPlan,
		d.ClinicReferredTo, d.AppointmentDate, d.DestinationWard, d.BedNumber, d.BedAvailable,
		d.WaitingListPosition, d.TimeOfDeath, d.CauseOfDeath, d.AuthorizedBy, d.Notes,
	).Scan(&d.DispositionTime)
	if isUniqueViolation(err) {
		return ErrAlreadyDisposed
	}
	return err
}

func (r *repoPG) GetDispositionByPatient(ctx context.Context, patientID uuid.UUID) (*Disposition, error) {
	return scanDisposition(r.conn(ctx).QueryRow(ctx, `SELECT `+dispoCols+` FROM disposition WHERE patient_id = $1`, patientID))
}

func (r *repoPG) FinalizeIfPending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE disposition SET completed = true, completed_at = NOW()
		WHERE id = $1 AND completed = false`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}
