package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

const orderCols = `id, patient_id, test_type, test_name, priority, clinical_info, requested_by,
	requested_at, completed, result, result_added_by, completed_at, source,
	external_result_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.TestType, &o.TestName, &o.Priority, &o.ClinicalInfo, &o.RequestedBy,
		&o.RequestedAt, &o.Completed, &o.Result, &o.ResultAddedBy, &o.CompletedAt, &o.Source,
		&o.ExternalResultID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	var requestedAt interface{}
	if !o.RequestedAt.IsZero() {
		requestedAt = o.RequestedAt
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_order (id, patient_id, test_type, test_name, priority, clinical_info, requested_by, requested_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, COALESCE($8, NOW()))
		RETURNING requested_at, created_at, updated_at`,
		o.ID, o.PatientID, o.TestType, o.TestName, o.Priority, o.ClinicalInfo, o.RequestedBy, requestedAt).
		Scan(&o.RequestedAt, &o.CreatedAt, &o.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx, `SELECT `+orderCols+` FROM lab_order WHERE id = $1`, id))
}

func (r *repoPG) FindOpen(ctx context.Context, patientID uuid.UUID, testType, testName string) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orderCols+` FROM lab_order
		WHERE patient_id = $1 AND test_type = $2 AND test_name = $3 AND completed = false
		ORDER BY requested_at ASC, id ASC`,
		patientID, testType, testName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *repoPG) CompleteIfOpen(ctx context.Context, id uuid.UUID, payload, completedBy, source string, externalResultID *uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_order
		SET completed = true, result = $2, result_added_by = $3, source = $4,
			external_result_id = $5, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND completed = false`,
		id, payload, completedBy, source, externalResultID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_order WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orderCols+` FROM lab_order WHERE patient_id = $1
		ORDER BY requested_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectOrders(rows)
	return items, total, err
}

func (r *repoPG) ListOpenByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orderCols+` FROM lab_order
		WHERE patient_id = $1 AND completed = false
		ORDER BY requested_at ASC, id ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_order`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+orderCols+` FROM lab_order ORDER BY requested_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectOrders(rows)
	return items, total, err
}

func collectOrders(rows pgx.Rows) ([]*Order, error) {
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
