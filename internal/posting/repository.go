package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/inventory"
	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	"github.com/glowdesk/glowdesk/internal/platform/db"
)

// ErrKeyClaimed signals a concurrent request already claimed the idempotency
// key; the caller resolves the original document instead.
var ErrKeyClaimed = errors.New("posting: idempotency key already claimed")

// Repository persists business documents and owns the posting transaction
// boundary.
type Repository interface {
	GetSalesInvoice(ctx context.Context, id int64) (SalesInvoice, error)
	GetPurchaseBill(ctx context.Context, id int64) (PurchaseBill, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	GetMovement(ctx context.Context, id int64) (inventory.StockMovement, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository scopes every write of one posting operation to a single
// transaction: the document, its journal entry, and its stock effects commit
// together or roll back together.
type TxRepository interface {
	InsertSalesInvoice(ctx context.Context, inv SalesInvoice) (SalesInvoice, error)
	InsertPurchaseBill(ctx context.Context, bill PurchaseBill) (PurchaseBill, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	MarkPosted(ctx context.Context, table string, documentID, entryID int64) error
	ClaimKey(ctx context.Context, key, module string, entityID int64) error
	Journal() journals.TxRepository
	Stock() inventory.TxRepository
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Document tables addressed by MarkPosted.
const (
	TableSalesInvoices = "sales_invoices"
	TablePurchaseBills = "purchase_bills"
	TablePayments      = "payments"
)

var ErrDocumentNotFound = errors.New("posting: document not found")

func (r *repository) GetSalesInvoice(ctx context.Context, id int64) (SalesInvoice, error) {
	var inv SalesInvoice
	err := r.pool.QueryRow(ctx, `SELECT id, number, customer_name, location_id, invoice_date, revenue_account_id, status, total, posted_entry_id, created_by, created_at, updated_at
FROM sales_invoices WHERE id=$1`, id).Scan(&inv.ID, &inv.Number, &inv.CustomerName, &inv.LocationID, &inv.Date, &inv.RevenueAccountID, &inv.Status, &inv.Total, &inv.PostedEntryID, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesInvoice{}, ErrDocumentNotFound
		}
		return SalesInvoice{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, product_id, description, quantity, unit_price, unit_cost
FROM sales_invoice_items WHERE invoice_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return SalesInvoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SalesInvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Description, &item.Quantity, &item.UnitPrice, &item.UnitCost); err != nil {
			return SalesInvoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

func (r *repository) GetPurchaseBill(ctx context.Context, id int64) (PurchaseBill, error) {
	var bill PurchaseBill
	err := r.pool.QueryRow(ctx, `SELECT id, number, supplier_name, bill_date, status, total, posted_entry_id, created_by, created_at, updated_at
FROM purchase_bills WHERE id=$1`, id).Scan(&bill.ID, &bill.Number, &bill.SupplierName, &bill.Date, &bill.Status, &bill.Total, &bill.PostedEntryID, &bill.CreatedBy, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseBill{}, ErrDocumentNotFound
		}
		return PurchaseBill{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, product_id, description, quantity, unit_cost
FROM purchase_bill_items WHERE bill_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return PurchaseBill{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item PurchaseBillItem
		if err := rows.Scan(&item.ID, &item.BillID, &item.ProductID, &item.Description, &item.Quantity, &item.UnitCost); err != nil {
			return PurchaseBill{}, err
		}
		bill.Items = append(bill.Items, item)
	}
	return bill, rows.Err()
}

func (r *repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx, `SELECT id, direction, bank_account_id, counterparty, amount, payment_date, memo, status, reconciled, journal_entry_id, created_by, created_at, updated_at
FROM payments WHERE id=$1`, id).Scan(&p.ID, &p.Direction, &p.BankAccountID, &p.Counterparty, &p.Amount, &p.Date, &p.Memo, &p.Status, &p.Reconciled, &p.JournalEntryID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrDocumentNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func (r *repository) GetMovement(ctx context.Context, id int64) (inventory.StockMovement, error) {
	var m inventory.StockMovement
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, location_id, movement_type, quantity, cost_per_unit, reference_type, reference_id, journal_entry_id, movement_date, created_at
FROM stock_movements WHERE id=$1`, id).Scan(&m.ID, &m.ProductID, &m.LocationID, &m.Type, &m.Quantity, &m.CostPerUnit, &m.ReferenceType, &m.ReferenceID, &m.JournalEntryID, &m.Date, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.StockMovement{}, ErrDocumentNotFound
		}
		return inventory.StockMovement{}, err
	}
	return m, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertSalesInvoice(ctx context.Context, inv SalesInvoice) (SalesInvoice, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO sales_invoices (number, customer_name, location_id, invoice_date, revenue_account_id, status, total, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		inv.Number, inv.CustomerName, nullIntPtr(inv.LocationID), inv.Date, nullIntPtr(inv.RevenueAccountID), inv.Status, toNumeric(inv.Total), nullInt(inv.CreatedBy))
	if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return SalesInvoice{}, err
	}
	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO sales_invoice_items (invoice_id, product_id, description, quantity, unit_price, unit_cost)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			inv.ID, item.ProductID, item.Description, item.Quantity, toNumeric(item.UnitPrice), toNumeric(item.UnitCost)).Scan(&item.ID)
		if err != nil {
			return SalesInvoice{}, err
		}
	}
	return inv, nil
}

func (r *txRepository) InsertPurchaseBill(ctx context.Context, bill PurchaseBill) (PurchaseBill, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO purchase_bills (number, supplier_name, bill_date, status, total, created_by)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		bill.Number, bill.SupplierName, bill.Date, bill.Status, toNumeric(bill.Total), nullInt(bill.CreatedBy))
	if err := row.Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt); err != nil {
		return PurchaseBill{}, err
	}
	for i := range bill.Items {
		item := &bill.Items[i]
		item.BillID = bill.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO purchase_bill_items (bill_id, product_id, description, quantity, unit_cost)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			bill.ID, item.ProductID, item.Description, item.Quantity, toNumeric(item.UnitCost)).Scan(&item.ID)
		if err != nil {
			return PurchaseBill{}, err
		}
	}
	return bill, nil
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO payments (direction, bank_account_id, counterparty, amount, payment_date, memo, status, reconciled, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8) RETURNING id, created_at, updated_at`,
		p.Direction, p.BankAccountID, p.Counterparty, toNumeric(p.Amount), p.Date, p.Memo, p.Status, nullInt(p.CreatedBy))
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, table string, documentID, entryID int64) error {
	var query string
	switch table {
	case TableSalesInvoices:
		query = `UPDATE sales_invoices SET status='POSTED', posted_entry_id=$2, updated_at=NOW() WHERE id=$1`
	case TablePurchaseBills:
		query = `UPDATE purchase_bills SET status='POSTED', posted_entry_id=$2, updated_at=NOW() WHERE id=$1`
	case TablePayments:
		query = `UPDATE payments SET status='POSTED', journal_entry_id=$2, updated_at=NOW() WHERE id=$1`
	default:
		return fmt.Errorf("posting: unknown document table %q", table)
	}
	tag, err := r.tx.Exec(ctx, query, documentID, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *txRepository) ClaimKey(ctx context.Context, key, module string, entityID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO idempotency_keys (key, module, entity_id, created_at) VALUES ($1,$2,$3,$4)`,
		key, module, entityID, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrKeyClaimed
		}
		return err
	}
	return nil
}

func (r *txRepository) Journal() journals.TxRepository {
	return journals.NewTxRepository(r.tx)
}

func (r *txRepository) Stock() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
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
