package posting

import "time"

// Status tracks whether a document has hit the ledger. Financial fields are
// immutable once POSTED.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Document module names used for idempotency key scoping.
const (
	ModuleSalesInvoice = "SALES_INVOICE"
	ModulePurchaseBill = "PURCHASE_BILL"
	ModulePayment      = "PAYMENT"
	ModuleAdjustment   = "ADJUSTMENT"
)

// SalesInvoice is a customer invoice. UnitCost on each item is the product's
// cost snapshot taken at posting time, never a recomputed average.
type SalesInvoice struct {
	ID               int64              `json:"id"`
	Number           string             `json:"number"`
	CustomerName     string             `json:"customerName"`
	LocationID       *int64             `json:"locationId,omitempty"`
	Date             time.Time          `json:"date"`
	RevenueAccountID *int64             `json:"revenueAccountId,omitempty"`
	Status           Status             `json:"status"`
	Total            float64            `json:"total"`
	PostedEntryID    *int64             `json:"postedEntryId,omitempty"`
	CreatedBy        int64              `json:"createdBy"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	Items            []SalesInvoiceItem `json:"items"`
}

type SalesInvoiceItem struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoiceId"`
	ProductID   int64   `json:"productId"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	UnitCost    float64 `json:"unitCost"`
}

// PurchaseBill is a supplier bill received for stock.
type PurchaseBill struct {
	ID            int64              `json:"id"`
	Number        string             `json:"number"`
	SupplierName  string             `json:"supplierName"`
	Date          time.Time          `json:"date"`
	Status        Status             `json:"status"`
	Total         float64            `json:"total"`
	PostedEntryID *int64             `json:"postedEntryId,omitempty"`
	CreatedBy     int64              `json:"createdBy"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Items         []PurchaseBillItem `json:"items"`
}

type PurchaseBillItem struct {
	ID          int64   `json:"id"`
	BillID      int64   `json:"billId"`
	ProductID   int64   `json:"productId"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitCost    float64 `json:"unitCost"`
}

// PaymentDirection distinguishes money received from money paid out.
type PaymentDirection string

const (
	PaymentIn  PaymentDirection = "IN"
	PaymentOut PaymentDirection = "OUT"
)

// Valid reports whether the direction is known.
func (d PaymentDirection) Valid() bool {
	return d == PaymentIn || d == PaymentOut
}

// Payment settles receivables or payables through a bank account.
// BankAccountID points at the chart-of-accounts bank account.
type Payment struct {
	ID             int64            `json:"id"`
	Direction      PaymentDirection `json:"direction"`
	BankAccountID  int64            `json:"bankAccountId"`
	Counterparty   string           `json:"counterparty,omitempty"`
	Amount         float64          `json:"amount"`
	Date           time.Time        `json:"date"`
	Memo           string           `json:"memo,omitempty"`
	Status         Status           `json:"status"`
	Reconciled     bool             `json:"reconciled"`
	JournalEntryID *int64           `json:"journalEntryId,omitempty"`
	CreatedBy      int64            `json:"createdBy"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}
