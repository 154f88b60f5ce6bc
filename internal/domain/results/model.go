package results

import (
	"time"

	"github.com/google/uuid"
)

// Reconciliation outcome statuses.
const (
	StatusMatched     = "matched"
	StatusNoPatient   = "no-patient"
	StatusNoOpenOrder = "no-open-order"
)

// ExternalResult is a lab or radiology result delivered by an outside
// system, keyed by the sender's own identifier. It stays unimported
// until reconciliation links it to an open order.
type ExternalResult struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ExternalSystemID string     `db:"external_system_id" json:"external_system_id"`
	PatientMRN       string     `db:"patient_mrn" json:"patient_mrn"`
	TestType         string     `db:"test_type" json:"test_type"`
	TestName         string     `db:"test_name" json:"test_name"`
	Result           string     `db:"result" json:"result"`
	ResultDate       *time.Time `db:"result_date" json:"result_date,omitempty"`
	Imported         bool       `db:"imported" json:"imported"`
	OrderID          *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Outcome records how a reconciliation pass resolved a result.
type Outcome struct {
	Status  string     `json:"status"`
	OrderID *uuid.UUID `json:"order_id,omitempty"`
}
