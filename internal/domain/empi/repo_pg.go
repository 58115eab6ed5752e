package empi

import (
	"context"
	"errors"
	"sort"

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

type linkRepoPG struct{ pool *pgxpool.Pool }

func NewLinkRepoPG(pool *pgxpool.Pool) LinkRepository {
	return &linkRepoPG{pool: pool}
}

func (r *linkRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const linkCols = `id, person_id, target_id, match_result, link_source, vector, score,
	eid_match, new_person, version_id, created_at, updated_at`

func (r *linkRepoPG) scanRow(row pgx.Row) (*Link, error) {
	var l Link
	var vector int64
	err := row.Scan(&l.ID, &l.PersonID, &l.TargetID, &l.MatchResult, &l.LinkSource, &vector, &l.Score,
		&l.EIDMatch, &l.NewPerson, &l.VersionID, &l.CreatedAt, &l.UpdatedAt)
	l.Vector = uint64(vector)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	return &l, err
}

func (r *linkRepoPG) scanRows(rows pgx.Rows) ([]*Link, error) {
	defer rows.Close()
	var items []*Link
	for rows.Next() {
		l, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *linkRepoPG) Upsert(ctx context.Context, l *Link) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO empi_link (id, person_id, target_id, match_result, link_source, vector, score, eid_match, new_person)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (person_id, target_id) DO UPDATE SET
			match_result = EXCLUDED.match_result,
			link_source = EXCLUDED.link_source,
			vector = EXCLUDED.vector,
			score = EXCLUDED.score,
			eid_match = EXCLUDED.eid_match,
			new_person = EXCLUDED.new_person,
			version_id = empi_link.version_id + 1,
			updated_at = NOW()
		RETURNING id, version_id, created_at, updated_at`,
		l.ID, l.PersonID, l.TargetID, l.MatchResult, l.LinkSource, int64(l.Vector), l.Score, l.EIDMatch, l.NewPerson)
	return row.Scan(&l.ID, &l.VersionID, &l.CreatedAt, &l.UpdatedAt)
}

func (r *linkRepoPG) GetByPair(ctx context.Context, personID, targetID uuid.UUID) (*Link, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+linkCols+` FROM empi_link WHERE person_id = $1 AND target_id = $2`, personID, targetID))
}

func (r *linkRepoPG) FindByPerson(ctx context.Context, personID uuid.UUID) ([]*Link, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+linkCols+` FROM empi_link WHERE person_id = $1 ORDER BY created_at ASC, id ASC`, personID)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}

func (r *linkRepoPG) FindByTarget(ctx context.Context, targetID uuid.UUID) ([]*Link, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+linkCols+` FROM empi_link WHERE target_id = $1 ORDER BY created_at ASC, id ASC`, targetID)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}

func (r *linkRepoPG) Delete(ctx context.Context, personID, targetID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM empi_link WHERE person_id = $1 AND target_id = $2`, personID, targetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// LockPersons takes transaction-scoped advisory locks on the given Persons.
// IDs are locked in sorted order so concurrent resolutions touching
// overlapping Person sets cannot deadlock.
func (r *linkRepoPG) LockPersons(ctx context.Context, personIDs []uuid.UUID) error {
	ids := make([]uuid.UUID, len(personIDs))
	copy(ids, personIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	c := r.conn(ctx)
	for _, id := range ids {
		// hashtextextended gives a stable 64-bit key for the uuid text.
		if _, err := c.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, id); err != nil {
			return err
		}
	}
	return nil
}

// duplicateRepoPG relies on the partial unique index on
// (person_id, other_person_id) WHERE NOT resolved for its upsert.
type duplicateRepoPG struct{ pool *pgxpool.Pool }

func NewDuplicateRepoPG(pool *pgxpool.Pool) DuplicateRepository {
	return &duplicateRepoPG{pool: pool}
}

func (r *duplicateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *duplicateRepoPG) Record(ctx context.Context, d *PersonDuplicate) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO person_duplicate (id, person_id, other_person_id, target_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (person_id, other_person_id) WHERE NOT resolved DO UPDATE SET target_id = EXCLUDED.target_id
		RETURNING id, created_at`,
		d.ID, d.PersonID, d.OtherPersonID, d.TargetID)
	return row.Scan(&d.ID, &d.CreatedAt)
}

func (r *duplicateRepoPG) List(ctx context.Context, includeResolved bool, limit, offset int) ([]*PersonDuplicate, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM person_duplicate WHERE $1 OR NOT resolved`, includeResolved).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, person_id, other_person_id, target_id, resolved, created_at
		FROM person_duplicate
		WHERE $1 OR NOT resolved
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`, includeResolved, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PersonDuplicate
	for rows.Next() {
		var d PersonDuplicate
		if err := rows.Scan(&d.ID, &d.PersonID, &d.OtherPersonID, &d.TargetID, &d.Resolved, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}

func (r *duplicateRepoPG) Resolve(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE person_duplicate SET resolved = TRUE WHERE id = $1 AND NOT resolved`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateNotFound
	}
	return nil
}
