package results

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("external result not found")
	ErrDuplicateExternalID = errors.New("external result already received")
	ErrAlreadyImported     = errors.New("external result already imported")
)

// Repository persists external results.
type Repository interface {
	Create(ctx context.Context, r *ExternalResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*ExternalResult, error)
	GetByExternalSystemID(ctx context.Context, externalSystemID string) (*ExternalResult, error)
	// MarkImported links the result to an order and flips the imported
	// flag. Returns ErrAlreadyImported if another pass got there first.
	MarkImported(ctx context.Context, id, orderID uuid.UUID) error
	ListUnimported(ctx context.Context, limit, offset int) ([]*ExternalResult, int, error)
	List(ctx context.Context, limit, offset int) ([]*ExternalResult, int, error)
}
