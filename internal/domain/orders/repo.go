package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no order matches the lookup key.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyCompleted is returned when a completion attempt finds the
	// order no longer open. It signals a race or duplicate delivery and is
	// surfaced, never silently retried.
	ErrAlreadyCompleted = errors.New("order already completed")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindOpen returns open orders for the exact (patient, test_type,
	// test_name) key, ordered by requested_at then id ascending.
	FindOpen(ctx context.Context, patientID uuid.UUID, testType, testName string) ([]*Order, error)
	// CompleteIfOpen is the single mutation point: it sets the result
	// payload, completion timestamp, provenance, and external result link
	// together, and only if the order is still open at write time.
	CompleteIfOpen(ctx context.Context, id uuid.UUID, payload, completedBy, source string, externalResultID *uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error)
	ListOpenByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error)
	List(ctx context.Context, limit, offset int) ([]*Order, int, error)
}
