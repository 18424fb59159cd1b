package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads stock movements and running levels.
type Repository interface {
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
	Levels(ctx context.Context) ([]LevelRow, error)
}

// LevelRow joins a running stock level with the product fields the valuation
// needs, list cost included for the zero-quantity fallback.
type LevelRow struct {
	ProductID   int64
	ProductCode string
	ProductName string
	ListCost    float64
	Quantity    float64
	Value       float64
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const movementColumns = `id, product_id, location_id, movement_type, quantity, cost_per_unit, reference_type, reference_id, journal_entry_id, movement_date, created_at`

func (r *repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	from, to := normalizeRange(filter.From, filter.To)
	query := `SELECT ` + movementColumns + ` FROM stock_movements
WHERE movement_date >= $1 AND movement_date <= $2`
	args := []any{from, to}
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	if filter.LocationID > 0 {
		args = append(args, filter.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY movement_date DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.LocationID, &m.Type, &m.Quantity, &m.CostPerUnit, &m.ReferenceType, &m.ReferenceID, &m.JournalEntryID, &m.Date, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

const levelsQuery = `
	SELECT p.id, p.code, p.name, p.cost,
	       COALESCE(sl.quantity, 0), COALESCE(sl.value, 0)
	FROM products p
	LEFT JOIN stock_levels sl ON sl.product_id = p.id
	WHERE p.is_active
	ORDER BY p.code ASC`

func (r *repository) Levels(ctx context.Context) ([]LevelRow, error) {
	rows, err := r.pool.Query(ctx, levelsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []LevelRow
	for rows.Next() {
		var lvl LevelRow
		if err := rows.Scan(&lvl.ProductID, &lvl.ProductCode, &lvl.ProductName, &lvl.ListCost, &lvl.Quantity, &lvl.Value); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}

// TxRepository exposes the stock writes available inside a posting
// transaction. Movements and the running level change together or not at all.
type TxRepository interface {
	InsertMovement(ctx context.Context, m StockMovement) (int64, error)
	LinkMovementEntry(ctx context.Context, movementID, entryID int64) error
	ApplyLevelDelta(ctx context.Context, productID int64, quantityDelta, valueDelta float64) error
	EnsureProducts(ctx context.Context, productIDs []int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an existing transaction for callers that own the
// transaction boundary.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertMovement(ctx context.Context, m StockMovement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, location_id, movement_type, quantity, cost_per_unit, reference_type, reference_id, journal_entry_id, movement_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.ProductID, nullIntPtr(m.LocationID), m.Type, m.Quantity, toNumeric(m.CostPerUnit), m.ReferenceType, m.ReferenceID, nullIntPtr(m.JournalEntryID), m.Date).Scan(&id)
	return id, err
}

func (r *txRepository) LinkMovementEntry(ctx context.Context, movementID, entryID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_movements SET journal_entry_id=$2 WHERE id=$1`, movementID, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: movement %d", ErrInvalidMovement, movementID)
	}
	return nil
}

func (r *txRepository) ApplyLevelDelta(ctx context.Context, productID int64, quantityDelta, valueDelta float64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_levels (product_id, quantity, value)
VALUES ($1,$2,$3)
ON CONFLICT (product_id) DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity,
                                       value = stock_levels.value + EXCLUDED.value,
                                       updated_at = NOW()`,
		productID, quantityDelta, toNumeric(valueDelta))
	return err
}

func (r *txRepository) EnsureProducts(ctx context.Context, productIDs []int64) error {
	for _, id := range productIDs {
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: product %d", ErrProductNotFound, id)
		}
	}
	return nil
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

func nullIntPtr(val *int64) any {
	if val == nil || *val == 0 {
		return nil
	}
	return *val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
