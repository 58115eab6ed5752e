package person

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustmedis/empi/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const personCols = `id, fhir_id, active, eids, name_family, name_given, gender, birth_date,
	address_line, city, state, postal_code, phone, email,
	version_id, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.FHIRID, &p.Active, &p.EIDs, &p.NameFamily, &p.NameGiven, &p.Gender, &p.BirthDate,
		&p.AddressLine, &p.City, &p.State, &p.PostalCode, &p.Phone, &p.Email,
		&p.VersionID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) scanRows(rows pgx.Rows) ([]*Person, error) {
	defer rows.Close()
	var items []*Person
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, p *Person) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	if p.EIDs == nil {
		p.EIDs = []EID{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO person (id, fhir_id, active, eids, name_family, name_given, gender, birth_date,
			address_line, city, state, postal_code, phone, email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.FHIRID, p.Active, p.EIDs, p.NameFamily, p.NameGiven, p.Gender, p.BirthDate,
		p.AddressLine, p.City, p.State, p.PostalCode, p.Phone, p.Email)
	if err == nil {
		p.VersionID = 1
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Person, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+personCols+` FROM person WHERE id = $1`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Person, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+personCols+` FROM person WHERE fhir_id = $1`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, p *Person) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE person SET active=$2, eids=$3, name_family=$4, name_given=$5, gender=$6, birth_date=$7,
			address_line=$8, city=$9, state=$10, postal_code=$11, phone=$12, email=$13,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version_id, updated_at`,
		p.ID, p.Active, p.EIDs, p.NameFamily, p.NameGiven, p.Gender, p.BirthDate,
		p.AddressLine, p.City, p.State, p.PostalCode, p.Phone, p.Email)
	return row.Scan(&p.VersionID, &p.UpdatedAt)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Person, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM person`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+personCols+` FROM person ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.scanRows(rows)
	return items, total, err
}

func (r *repoPG) FindByEID(ctx context.Context, value string) ([]*Person, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+personCols+` FROM person
		WHERE active AND eids @> jsonb_build_array(jsonb_build_object('value', $1::text))
		ORDER BY created_at ASC, id ASC`, value)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}

func (r *repoPG) FindCandidates(ctx context.Context, filter CandidateFilter, limit int) ([]*Person, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+personCols+` FROM person
		WHERE active AND (
			($1::date IS NOT NULL AND birth_date = $1) OR
			($2::text <> '' AND lower(name_family) = lower($2)) OR
			($3::text <> '' AND postal_code = $3)
		)
		ORDER BY created_at ASC, id ASC
		LIMIT $4`,
		filter.BirthDate, filter.NameFamily, filter.PostalCode, limit)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}
