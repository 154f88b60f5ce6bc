package orders

import (
	"time"

	"github.com/google/uuid"
)

// Test types accepted by the ledger.
const (
	TestTypeLaboratory = "laboratory"
	TestTypeRadiology  = "radiology"
)

// Priorities, highest urgency first.
const (
	PriorityStat    = "stat"
	PriorityUrgent  = "urgent"
	PriorityRoutine = "routine"
)

// Completion provenance. Manual completions carry no external result link;
// the two import sources always do.
const (
	SourceManual         = "manual"
	SourceAutoImport     = "auto-import"
	SourceManualOverride = "manual-import-override"
)

// Order maps to the lab_order table. An order transitions open→completed at
// most once and is never deleted.
type Order struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	TestType         string     `db:"test_type" json:"test_type"`
	TestName         string     `db:"test_name" json:"test_name"`
	Priority         string     `db:"priority" json:"priority"`
	ClinicalInfo     *string    `db:"clinical_info" json:"clinical_info,omitempty"`
	RequestedBy      string     `db:"requested_by" json:"requested_by"`
	RequestedAt      time.Time  `db:"requested_at" json:"requested_at"`
	Completed        bool       `db:"completed" json:"completed"`
	Result           *string    `db:"result" json:"result,omitempty"`
	ResultAddedBy    *string    `db:"result_added_by" json:"result_added_by,omitempty"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Source           *string    `db:"source" json:"source,omitempty"`
	ExternalResultID *uuid.UUID `db:"external_result_id" json:"external_result_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidTestType reports whether t is a test type the ledger accepts.
func ValidTestType(t string) bool {
	return t == TestTypeLaboratory || t == TestTypeRadiology
}

// ValidPriority reports whether p is a recognised priority.
func ValidPriority(p string) bool {
	return p == PriorityStat || p == PriorityUrgent || p == PriorityRoutine
}
