package products

import "time"

// Product carries the catalog fields the ledger consumes: the list price, the
// cost snapshot used when posting sales, and optional per-product account
// overrides for revenue, COGS, and inventory postings.
type Product struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Price              float64   `json:"price"`
	Cost               float64   `json:"cost"`
	RevenueAccountID   *int64    `json:"revenueAccountId,omitempty"`
	COGSAccountID      *int64    `json:"cogsAccountId,omitempty"`
	InventoryAccountID *int64    `json:"inventoryAccountId,omitempty"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
