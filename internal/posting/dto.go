package posting

import (
	"time"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
)

// SalesItemInput is one invoice item as supplied by the caller. The cost side
// is snapshotted from the product at posting time.
type SalesItemInput struct {
	ProductID   int64
	Description string
	Quantity    float64
	UnitPrice   float64
}

// SalesInvoiceInput creates a sales invoice. Post false persists the document
// as a draft with no ledger or stock effect.
type SalesInvoiceInput struct {
	Number           string
	CustomerName     string
	LocationID       *int64
	Date             time.Time
	RevenueAccountID *int64
	Post             bool
	IdempotencyKey   string
	Items            []SalesItemInput
}

func (in SalesInvoiceInput) Validate() error {
	if in.Date.IsZero() {
		return shared.Invalid("invoice date is required")
	}
	if len(in.Items) == 0 {
		return shared.Invalid("invoice needs at least one item")
	}
	for idx, item := range in.Items {
		if item.ProductID == 0 {
			return shared.Invalid("item %d: product is required", idx)
		}
		if item.Quantity <= 0 {
			return shared.Invalid("item %d: quantity must be positive", idx)
		}
		if item.UnitPrice < 0 {
			return shared.Invalid("item %d: unit price must not be negative", idx)
		}
	}
	return nil
}

type PurchaseItemInput struct {
	ProductID   int64
	Description string
	Quantity    float64
	UnitCost    float64
}

// PurchaseBillInput creates a purchase bill.
type PurchaseBillInput struct {
	Number         string
	SupplierName   string
	Date           time.Time
	Post           bool
	IdempotencyKey string
	Items          []PurchaseItemInput
}

func (in PurchaseBillInput) Validate() error {
	if in.Date.IsZero() {
		return shared.Invalid("bill date is required")
	}
	if len(in.Items) == 0 {
		return shared.Invalid("bill needs at least one item")
	}
	for idx, item := range in.Items {
		if item.ProductID == 0 {
			return shared.Invalid("item %d: product is required", idx)
		}
		if item.Quantity <= 0 {
			return shared.Invalid("item %d: quantity must be positive", idx)
		}
		if item.UnitCost < 0 {
			return shared.Invalid("item %d: unit cost must not be negative", idx)
		}
	}
	return nil
}

// PaymentInput records a payment in or out of a bank account.
type PaymentInput struct {
	Direction      PaymentDirection
	BankAccountID  int64
	Counterparty   string
	Amount         float64
	Date           time.Time
	Memo           string
	Post           bool
	IdempotencyKey string
}

func (in PaymentInput) Validate() error {
	if !in.Direction.Valid() {
		return shared.Invalid("payment direction must be IN or OUT")
	}
	if in.BankAccountID == 0 {
		return shared.Invalid("bank account is required")
	}
	if in.Amount <= 0 {
		return shared.Invalid("payment amount must be positive")
	}
	if in.Date.IsZero() {
		return shared.Invalid("payment date is required")
	}
	return nil
}

// AdjustmentInput records a stock adjustment. Quantity carries its own sign:
// positive writes stock up against a gain account, negative writes it down
// against a loss account. CostPerUnit nil falls back to the product's list
// cost.
type AdjustmentInput struct {
	ProductID      int64
	LocationID     *int64
	Quantity       float64
	CostPerUnit    *float64
	Date           time.Time
	Memo           string
	IdempotencyKey string
}

func (in AdjustmentInput) Validate() error {
	if in.ProductID == 0 {
		return shared.Invalid("product is required")
	}
	if in.Quantity == 0 {
		return shared.Invalid("adjustment quantity must not be zero")
	}
	if in.CostPerUnit != nil && *in.CostPerUnit < 0 {
		return shared.Invalid("cost per unit must not be negative")
	}
	if in.Date.IsZero() {
		return shared.Invalid("adjustment date is required")
	}
	return nil
}
