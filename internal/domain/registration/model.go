package registration

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. The MRN is the externally visible
// identifier external lab systems use; it is optional at registration and
// immutable once set.
type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	MRN                   *string    `db:"mrn" json:"mrn,omitempty"`
	FirstName             string     `db:"first_name" json:"first_name"`
	LastName              string     `db:"last_name" json:"last_name"`
	DateOfBirth           *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                string     `db:"gender" json:"gender"`
	Address               *string    `db:"address" json:"address,omitempty"`
	PhoneNumber           *string    `db:"phone_number" json:"phone_number,omitempty"`
	ArrivalMode           string     `db:"arrival_mode" json:"arrival_mode"`
	ReferralSource        *string    `db:"referral_source" json:"referral_source,omitempty"`
	InsuranceType         *string    `db:"insurance_type" json:"insurance_type,omitempty"`
	InsuranceNumber       *string    `db:"insurance_number" json:"insurance_number,omitempty"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
