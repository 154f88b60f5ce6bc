package encounter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Triage categories.
const (
	CategoryRed    = "red"
	CategoryYellow = "yellow"
	CategoryGreen  = "green"
	CategoryBlack  = "black"
)

// Disposition types.
const (
	DispositionDischarge  = "discharge"
	DispositionOutpatient = "outpatient"
	DispositionInpatient  = "inpatient"
	DispositionDeceased   = "deceased"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryRed, CategoryYellow, CategoryGreen, CategoryBlack:
		return true
	}
	return false
}

func ValidDispositionType(t string) bool {
	switch t {
	case DispositionDischarge, DispositionOutpatient, DispositionInpatient, DispositionDeceased:
		return true
	}
	return false
}

// Triage is the arrival categorization. A patient gets at most one.
type Triage struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	PatientID  uuid.UUID       `db:"patient_id" json:"patient_id"`
	Category   string          `db:"category" json:"category"`
	Reason     string          `db:"reason" json:"reason"`
	VitalSigns json.RawMessage `db:"vital_signs" json:"vital_signs,omitempty"`
	TriagedBy  string          `db:"triaged_by" json:"triaged_by"`
	TriagedAt  time.Time       `db:"triaged_at" json:"triaged_at"`
}

// Assessment is the initial nursing assessment. One per patient,
// updatable while the visit is active.
type Assessment struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	PatientID         uuid.UUID       `db:"patient_id" json:"patient_id"`
	ChiefComplaint    string          `db:"chief_complaint" json:"chief_complaint"`
	History           *string         `db:"history" json:"history,omitempty"`
	Allergies         *string         `db:"allergies" json:"allergies,omitempty"`
	Medications       *string         `db:"medications" json:"medications,omitempty"`
	VitalSigns        json.RawMessage `db:"vital_signs" json:"vital_signs"`
	AssessmentDetails *string         `db:"assessment_details" json:"assessment_details,omitempty"`
	AssessedBy        string          `db:"assessed_by" json:"assessed_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Examination is a physician's SOAP note.
type Examination struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	Subjective       *string   `db:"subjective" json:"subjective,omitempty"`
	Objective        *string   `db:"objective" json:"objective,omitempty"`
	Assessment       string    `db:"assessment" json:"assessment"`
	Plan             string    `db:"plan" json:"plan"`
	DoctorName       string    `db:"doctor_name" json:"doctor_name"`
	RequiresLabTests bool      `db:"requires_lab_tests" json:"requires_lab_tests"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type Prescription struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	MedicationName      string     `db:"medication_name" json:"medication_name"`
	Dosage              string     `db:"dosage" json:"dosage"`
	Route               string     `db:"route" json:"route"`
	Frequency           string     `db:"frequency" json:"frequency"`
	Duration            *string    `db:"duration" json:"duration,omitempty"`
	SpecialInstructions *string    `db:"special_instructions" json:"special_instructions,omitempty"`
	PrescribedBy        string     `db:"prescribed_by" json:"prescribed_by"`
	PrescribedAt        time.Time  `db:"prescribed_at" json:"prescribed_at"`
	Dispensed           bool       `db:"dispensed" json:"dispensed"`
	DispensedBy         *string    `db:"dispensed_by" json:"dispensed_by,omitempty"`
	DispensedAt         *time.Time `db:"dispensed_at" json:"dispensed_at,omitempty"`
}

// Disposition closes out a visit. The typed fields are nullable and
// only the group matching Type is expected to be filled.
type Disposition struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Type      string    `db:"disposition_type" json:"disposition_type"`

	DischargeInstructions *string `db:"discharge_instructions" json:"discharge_instructions,omitempty"`
	FollowUpPlan          *string `db:"follow_up_plan" json:"follow_up_plan,omitempty"`

	ClinicReferredTo *string    `db:"clinic_referred_to" json:"clinic_referred_to,omitempty"`
	AppointmentDate  *time.Time `db:"appointment_date" json:"appointment_date,omitempty"`

	DestinationWard     *string `db:"destination_ward" json:"destination_ward,omitempty"`
	BedNumber           *string `db:"bed_number" json:"bed_number,omitempty"`
	BedAvailable        *bool   `db:"bed_available" json:"bed_available,omitempty"`
	WaitingListPosition *int    `db:"waiting_list_position" json:"waiting_list_position,omitempty"`

	TimeOfDeath  *time.Time `db:"time_of_death" json:"time_of_death,omitempty"`
	CauseOfDeath *string    `db:"cause_of_death" json:"cause_of_death,omitempty"`

	AuthorizedBy    string     `db:"authorized_by" json:"authorized_by"`
	DispositionTime time.Time  `db:"disposition_time" json:"disposition_time"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Completed       bool       `db:"completed" json:"completed"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
