package results

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

const resultCols = `id, external_system_id, patient_mrn, test_type, test_name, result,
	result_date, imported, order_id, created_at, updated_at`

func scanResult(row pgx.Row) (*ExternalResult, error) {
	var res ExternalResult
	err := row.Scan(&res.ID, &res.ExternalSystemID, &res.PatientMRN, &res.TestType, &res.TestName, &res.Result,
		&res.ResultDate, &res.Imported, &res.OrderID, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &res, err
}

func (r *repoPG) Create(ctx context.Context, res *ExternalResult) error {
	res.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO external_result (id, external_system_id, patient_mrn, test_type, test_name, result, result_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		res.ID, res.ExternalSystemID, res.PatientMRN, res.TestType, res.TestName, res.Result, res.ResultDate,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateExternalID
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ExternalResult, error) {
	return scanResult(r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM external_result WHERE id = $1`, id))
}

func (r *repoPG) GetByExternalSystemID(ctx context.Context, externalSystemID string) (*ExternalResult, error) {
	return scanResult(r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM external_result WHERE external_system_id = $1`, externalSystemID))
}

func (r *repoPG) MarkImported(ctx context.Context, id, orderID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE external_result SET imported = true, order_id = $2, updated_at = NOW()
		WHERE id = $1 AND imported = false`,
		id, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyImported
	}
	return nil
}

func (r *repoPG) ListUnimported(ctx context.Context, limit, offset int) ([]*ExternalResult, int, error) {
	return r.list(ctx, `WHERE imported = false`, limit, offset)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*ExternalResult, int, error) {
	return r.list(ctx, ``, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, limit, offset int) ([]*ExternalResult, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM external_result `+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resultCols+` FROM external_result `+where+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ExternalResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
