package registration

import (
	"context"
	"errors"
	"fmt"

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

const patientCols = `id, mrn, first_name, last_name, date_of_birth, gender, address, phone_number,
	arrival_mode, referral_source, insurance_type, insurance_number,
	emergency_contact_name, emergency_contact_phone, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.Address, &p.PhoneNumber,
		&p.ArrivalMode, &p.ReferralSource, &p.InsuranceType, &p.InsuranceNumber,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, mrn, first_name, last_name, date_of_birth, gender, address, phone_number,
			arrival_mode, referral_source, insurance_type, insurance_number,
			emergency_contact_name, emergency_contact_phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Address, p.PhoneNumber,
		p.ArrivalMode, p.ReferralSource, p.InsuranceType, p.InsuranceNumber,
		p.EmergencyContactName, p.EmergencyContactPhone)
	if isUniqueViolation(err) {
		return ErrMRNTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE mrn = $1`, mrn))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET mrn=$2, first_name=$3, last_name=$4, date_of_birth=$5, gender=$6,
			address=$7, phone_number=$8, arrival_mode=$9, referral_source=$10,
			insurance_type=$11, insurance_number=$12,
			emergency_contact_name=$13, emergency_contact_phone=$14, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Address, p.PhoneNumber, p.ArrivalMode, p.ReferralSource,
		p.InsuranceType, p.InsuranceNumber,
		p.EmergencyContactName, p.EmergencyContactPhone)
	if isUniqueViolation(err) {
		return ErrMRNTaken
	}
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["mrn"]; ok {
		query += fmt.Sprintf(` AND mrn = $%d`, idx)
		countQuery += fmt.Sprintf(` AND mrn = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["last_name"]; ok {
		query += fmt.Sprintf(` AND last_name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND last_name ILIKE $%d`, idx)
		args = append(args, p+"%")
		idx++
	}
	if p, ok := params["arrival_mode"]; ok {
		query += fmt.Sprintf(` AND arrival_mode = $%d`, idx)
		countQuery += fmt.Sprintf(` AND arrival_mode = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
