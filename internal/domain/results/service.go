package results

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edtrack/edtrack/internal/domain/orders"
	"github.com/edtrack/edtrack/internal/platform/webhook"
)

var (
	// ErrOrderNotOpen is returned by manual import when the chosen order
	// has already been completed.
	ErrOrderNotOpen = errors.New("order is not open")
	// ErrInvalidResult wraps ingest validation failures so the handler
	// can tell a malformed delivery from a backend failure.
	ErrInvalidResult = errors.New("invalid external result")
)

const autoImportActor = "external-lab-interface"

// PatientDirectory resolves medical record numbers to patient IDs.
// Satisfied by registration.Service.
type PatientDirectory interface {
	FindIDByMRN(ctx context.Context, mrn string) (uuid.UUID, bool, error)
}

// OrderLedger exposes the order operations reconciliation depends on.
// Satisfied by orders.Service.
type OrderLedger interface {
	Get(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	FindOpen(ctx context.Context, patientID uuid.UUID, testType, testName string) ([]*orders.Order, error)
	CompleteIfOpen(ctx context.Context, id uuid.UUID, payload, completedBy, source string, externalResultID *uuid.UUID) error
}

// EventPublisher pushes lifecycle events to registered webhook
// endpoints. Satisfied by webhook.Manager.
type EventPublisher interface {
	Publish(event webhook.Event)
}

// TxRunner executes fn inside a database transaction. The default
// runner is a passthrough so the service works against in-memory
// stores in tests.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo     Repository
	patients PatientDirectory
	ledger   OrderLedger
	events   EventPublisher
	tx       TxRunner
}

type Option func(*Service)

// WithTxRunner wraps reconciliation side effects in a transaction.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// WithPublisher enables webhook event publication.
func WithPublisher(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

func NewService(repo Repository, patients PatientDirectory, ledger OrderLedger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		patients: patients,
		ledger:   ledger,
		tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates and persists an externally delivered result, then
// immediately attempts to reconcile it against open orders. The result
// is stored even when no order matches, so it can be reconciled again
// later.
func (s *Service) Ingest(ctx context.Context, res *ExternalResult) (*ExternalResult, *Outcome, error) {
	if err := validateIngest(res); err != nil {
		return nil, nil, err
	}
	if res.ResultDate == nil {
		now := time.Now()
		res.ResultDate = &now
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, nil, err
	}
	s.publish(webhook.EventResultReceived, res, nil)

	outcome, err := s.Reconcile(ctx, res.ID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := s.repo.GetByID(ctx, res.ID)
	if err != nil {
		return nil, nil, err
	}
	return stored, outcome, nil
}

func validateIngest(res *ExternalResult) error {
	if res.ExternalSystemID == "" {
		return fmt.Errorf("%w: external_system_id is required", ErrInvalidResult)
	}
	if res.PatientMRN == "" {
		return fmt.Errorf("%w: patient_mrn is required", ErrInvalidResult)
	}
	if !orders.ValidTestType(res.TestType) {
		return fmt.Errorf("%w: test_type must be one of: laboratory, radiology", ErrInvalidResult)
	}
	if res.TestName == "" {
		return fmt.Errorf("%w: test_name is required", ErrInvalidResult)
	}
	if res.Result == "" {
		return fmt.Errorf("%w: result is required", ErrInvalidResult)
	}
	return nil
}

// Reconcile attempts to match the result to the oldest open order for
// the same patient, test type and test name. A result that is already
// imported reports its recorded outcome without any further side
// effects, so the operation is safe to repeat.
func (s *Service) Reconcile(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Imported {
		return &Outcome{Status: StatusMatched, OrderID: res.OrderID}, nil
	}

	patientID, ok, err := s.patients.FindIDByMRN(ctx, res.PatientMRN)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.publish(webhook.EventResultUnmatched, res, nil)
		return &Outcome{Status: StatusNoPatient}, nil
	}

	var outcome *Outcome
	err = s.tx(ctx, func(ctx context.Context) error {
		open, err := s.ledger.FindOpen(ctx, patientID, res.TestType, res.TestName)
		if err != nil {
			return err
		}
		target := oldestOpen(open)
		if target == nil {
			outcome = &Outcome{Status: StatusNoOpenOrder}
			return nil
		}
		err = s.ledger.CompleteIfOpen(ctx, target.ID, res.Result, autoImportActor, orders.SourceAutoImport, &res.ID)
		if errors.Is(err, orders.ErrAlreadyCompleted) {
			outcome = &Outcome{Status: StatusNoOpenOrder}
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.repo.MarkImported(ctx, res.ID, target.ID); err != nil {
			return err
		}
		orderID := target.ID
		outcome = &Outcome{Status: StatusMatched, OrderID: &orderID}
		return nil
	})
	if errors.Is(err, ErrAlreadyImported) {
		// A concurrent pass won; report its recorded outcome.
		stored, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return &Outcome{Status: StatusMatched, OrderID: stored.OrderID}, nil
	}
	if err != nil {
		return nil, err
	}

	switch outcome.Status {
	case StatusMatched:
		s.publish(webhook.EventResultMatched, res, outcome.OrderID)
		s.publish(webhook.EventResultImported, res, outcome.OrderID)
		s.publishOrderCompleted(*outcome.OrderID, res)
	default:
		s.publish(webhook.EventResultUnmatched, res, nil)
	}
	return outcome, nil
}

// ManualImport completes a specific order with this result, skipping
// the patient and test name matching that automatic reconciliation
// performs. The caller takes responsibility for the pairing.
func (s *Service) ManualImport(ctx context.Context, resultID, orderID uuid.UUID, importedBy string) (*ExternalResult, error) {
	res, err := s.repo.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if res.Imported {
		return nil, ErrAlreadyImported
	}
	order, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Completed {
		return nil, ErrOrderNotOpen
	}
	if importedBy == "" {
		return nil, fmt.Errorf("imported_by is required")
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		err := s.ledger.CompleteIfOpen(ctx, order.ID, res.Result, importedBy, orders.SourceManualOverride, &res.ID)
		if errors.Is(err, orders.ErrAlreadyCompleted) {
			return ErrOrderNotOpen
		}
		if err != nil {
			return err
		}
		return s.repo.MarkImported(ctx, res.ID, order.ID)
	})
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	s.publish(webhook.EventResultImported, stored, &order.ID)
	s.publishOrderCompleted(order.ID, stored)
	return stored, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ExternalResult, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*ExternalResult, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListUnimported(ctx context.Context, limit, offset int) ([]*ExternalResult, int, error) {
	return s.repo.ListUnimported(ctx, limit, offset)
}

// oldestOpen picks the earliest requested order, breaking timestamp
// ties by ID so concurrent reconciliations agree on the winner.
func oldestOpen(open []*orders.Order) *orders.Order {
	var target *orders.Order
	for _, o := range open {
		if target == nil {
			target = o
			continue
		}
		if o.RequestedAt.Before(target.RequestedAt) {
			target = o
			continue
		}
		if o.RequestedAt.Equal(target.RequestedAt) && bytes.Compare(o.ID[:], target.ID[:]) < 0 {
			target = o
		}
	}
	return target
}

func (s *Service) publish(eventType string, res *ExternalResult, orderID *uuid.UUID) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"external_result": res,
	}
	if orderID != nil {
		payload["order_id"] = orderID.String()
	}
	s.events.Publish(webhook.NewEvent(eventType, "external_result", res.ID.String(), payload))
}

func (s *Service) publishOrderCompleted(orderID uuid.UUID, res *ExternalResult) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"order_id":           orderID.String(),
		"external_result_id": res.ID.String(),
	}
	s.events.Publish(webhook.NewEvent(webhook.EventOrderCompleted, "lab_order", orderID.String(), payload))
}
