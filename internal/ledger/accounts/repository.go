package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

const accountColumns = `id, code, name, category, parent_id, is_active, created_at, updated_at`

// SearchFilter narrows and pages account listings.
type SearchFilter struct {
	Query   string
	Page    int
	PerPage int
}

// Repository persists chart-of-accounts rows.
type Repository interface {
	Create(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Search(ctx context.Context, filter SearchFilter) ([]Account, int, error)
	HasPostings(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (code, name, category, parent_id, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING `+accountColumns, a.Code, a.Name, a.Category, a.ParentID, a.IsActive)
	created, err := scanAccount(row)
	if err != nil {
		return Account{}, mapCodeConflict(err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET code=$2, name=$3, category=$4, parent_id=$5, is_active=$6, updated_at=NOW()
WHERE id=$1 RETURNING `+accountColumns, a.ID, a.Code, a.Name, a.Category, a.ParentID, a.IsActive)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, mapCodeConflict(err)
	}
	return updated, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Search(ctx context.Context, filter SearchFilter) ([]Account, int, error) {
	pattern := "%" + filter.Query + "%"

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE ($1 = '%%' OR code ILIKE $1 OR name ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := internalshared.NewPagination(filter.Page, filter.PerPage, total)
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE ($1 = '%%' OR code ILIKE $1 OR name ILIKE $1)
ORDER BY code LIMIT $2 OFFSET $3`, pattern, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repository) HasPostings(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrAccountReferenced
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Category, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func mapCodeConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicateCode
	}
	return err
}
