package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
	"github.com/glowdesk/glowdesk/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	Get(ctx context.Context, entryID int64) (JournalEntry, error)
	GetBySource(ctx context.Context, refType ReferenceType, refID uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the write operations available within one posting
// transaction. Inserting the entry and all its lines through a single
// TxRepository is what rules out partial commits.
type TxRepository interface {
	InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	EnsureAccounts(ctx context.Context, accountIDs []int64) error
	LinkSource(ctx context.Context, refType ReferenceType, refID uuid.UUID, entryID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `id, entry_date, memo, posted, reference_type, reference_id, created_by, created_at, updated_at`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	from, to := normalizeRange(filter.From, filter.To)
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE entry_date >= $1 AND entry_date <= $2 ORDER BY id DESC LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := r.linesFor(ctx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) GetBySource(ctx context.Context, refType ReferenceType, refID uuid.UUID) (JournalEntry, error) {
	var entryID int64
	err := r.pool.QueryRow(ctx, `SELECT entry_id FROM source_links WHERE reference_type=$1 AND reference_id=$2`, refType, refID).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	return r.Get(ctx, entryID)
}

func (r *repository) linesFor(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, account_id, description, debit, credit, product_id, location_id, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Description, &line.Debit, &line.Credit, &line.ProductID, &line.LocationID, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an existing transaction so callers that manage their
// own transaction boundary (the posting service) can reuse the journal SQL.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_date, memo, posted, reference_type, reference_id, created_by)
VALUES ($1,$2,TRUE,$3,$4,$5) RETURNING id, created_at, updated_at`, in.Date, in.Memo, in.ReferenceType, in.ReferenceID, nullInt(in.CreatedBy))
	entry := JournalEntry{
		Date:          in.Date,
		Memo:          in.Memo,
		Posted:        true,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedBy:     in.CreatedBy,
	}
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, description, debit, credit, product_id, location_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, entryID, line.AccountID, line.Description, toNumeric(line.Debit), toNumeric(line.Credit), nullIntPtr(line.ProductID), nullIntPtr(line.LocationID)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) EnsureAccounts(ctx context.Context, accountIDs []int64) error {
	for _, id := range accountIDs {
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: account %d", shared.ErrAccountNotFound, id)
		}
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, refType ReferenceType, refID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (reference_type, reference_id, entry_id) VALUES ($1,$2,$3)`, refType, refID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Date, &e.Memo, &e.Posted, &e.ReferenceType, &e.ReferenceID, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Now().AddDate(100, 0, 0)
	}
	return from, to
}

// Helpers

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullIntPtr(val *int64) any {
	if val == nil {
		return nil
	}
	if *val == 0 {
		return nil
	}
	return *val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
