package mappings

import "time"

// Posting modules group mapping keys per document type.
const (
	ModuleSales     = "SALES"
	ModulePurchase  = "PURCHASE"
	ModulePayment   = "PAYMENT"
	ModuleInventory = "INVENTORY"
)

// Posting mapping keys resolved by the posting service. Key suffixes ending
// in ".cogs" also drive the COGS segregation in the profit & loss report.
const (
	KeySalesReceivable     = "sales.ar"
	KeySalesRevenue        = "sales.revenue"
	KeySalesCOGS           = "sales.cogs"
	KeySalesInventory      = "sales.inventory"
	KeyPurchasePayable     = "purchase.ap"
	KeyPurchaseInventory   = "purchase.inventory"
	KeyPaymentAR           = "payment.ar"
	KeyPaymentAP           = "payment.ap"
	KeyAdjustmentInventory = "inventory.adjustment.inventory"
	KeyAdjustmentGain      = "inventory.adjustment.gain"
	KeyAdjustmentLoss      = "inventory.adjustment.loss"
)

// AccountMapping links a posting key to a ledger account.
type AccountMapping struct {
	Module    string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
