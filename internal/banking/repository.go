package banking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/platform/db"
)

// ErrPaymentNotReconcilable covers both an unknown payment id and one that is
// already reconciled; either aborts the whole reconciliation.
var ErrPaymentNotReconcilable = errors.New("banking: payment cannot be reconciled")

// Repository persists reconciliations and lists unreconciled payments.
type Repository interface {
	Unreconciled(ctx context.Context, bankAccountID int64) ([]UnreconciledPayment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository scopes one reconciliation to a single transaction: the header,
// every line, and every payment flip commit together or not at all.
type TxRepository interface {
	InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error)
	InsertLine(ctx context.Context, reconciliationID, paymentID int64) (ReconciliationLine, error)
	MarkReconciled(ctx context.Context, paymentID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Unreconciled(ctx context.Context, bankAccountID int64) ([]UnreconciledPayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, direction, counterparty, amount, payment_date, memo
FROM payments WHERE bank_account_id=$1 AND status='POSTED' AND NOT reconciled ORDER BY payment_date ASC, id ASC`, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []UnreconciledPayment
	for rows.Next() {
		var p UnreconciledPayment
		if err := rows.Scan(&p.ID, &p.Direction, &p.Counterparty, &p.Amount, &p.Date, &p.Memo); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO bank_reconciliations (bank_account_id, statement_date, ending_balance, notes, created_by)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		rec.BankAccountID, rec.StatementDate, fmt.Sprintf("%.2f", rec.EndingBalance), rec.Notes, nullInt(rec.CreatedBy))
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return BankReconciliation{}, err
	}
	return rec, nil
}

func (r *txRepository) InsertLine(ctx context.Context, reconciliationID, paymentID int64) (ReconciliationLine, error) {
	line := ReconciliationLine{ReconciliationID: reconciliationID, PaymentID: paymentID}
	err := r.tx.QueryRow(ctx, `INSERT INTO reconciliation_lines (reconciliation_id, payment_id) VALUES ($1,$2) RETURNING id`,
		reconciliationID, paymentID).Scan(&line.ID)
	if err != nil {
		return ReconciliationLine{}, err
	}
	return line, nil
}

// MarkReconciled flips one posted, unreconciled payment. Zero rows affected
// means the id is unknown or already settled.
func (r *txRepository) MarkReconciled(ctx context.Context, paymentID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE payments SET reconciled=TRUE, updated_at=NOW() WHERE id=$1 AND status='POSTED' AND NOT reconciled`, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %d", ErrPaymentNotReconcilable, paymentID)
	}
	return nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
