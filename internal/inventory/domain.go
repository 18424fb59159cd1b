package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Valid reports whether the movement type is known.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

// StockMovement records one stock change at the cost it happened.
// CostPerUnit is the cost recorded at movement time and is never re-derived.
type StockMovement struct {
	ID             int64        `json:"id"`
	ProductID      int64        `json:"productId"`
	LocationID     *int64       `json:"locationId,omitempty"`
	Type           MovementType `json:"type"`
	Quantity       float64      `json:"quantity"`
	CostPerUnit    float64      `json:"costPerUnit"`
	ReferenceType  string       `json:"referenceType"`
	ReferenceID    uuid.UUID    `json:"referenceId"`
	JournalEntryID *int64       `json:"journalEntryId,omitempty"`
	Date           time.Time    `json:"date"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// QuantityDelta is the signed quantity effect. IN adds, OUT subtracts, and
// ADJUSTMENT carries its own sign in Quantity.
func (m StockMovement) QuantityDelta() float64 {
	switch m.Type {
	case MovementIn:
		return m.Quantity
	case MovementOut:
		return -m.Quantity
	default:
		return m.Quantity
	}
}

// ValueDelta is the signed value effect at the movement's recorded cost.
func (m StockMovement) ValueDelta() float64 {
	return m.QuantityDelta() * m.CostPerUnit
}

// StockLevel is the running quantity and value per product, maintained
// incrementally as movements post.
type StockLevel struct {
	ProductID int64   `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Value     float64 `json:"value"`
}

// Valuation is the weighted average view of one product's stock.
type Valuation struct {
	ProductID      int64   `json:"productId"`
	ProductCode    string  `json:"productCode"`
	ProductName    string  `json:"productName"`
	QuantityOnHand float64 `json:"quantityOnHand"`
	AvgCost        float64 `json:"avgCost"`
	InventoryValue float64 `json:"inventoryValue"`
}

// MovementFilter narrows the movement history listing.
type MovementFilter struct {
	ProductID  int64
	LocationID int64
	From       time.Time
	To         time.Time
	Limit      int
}
