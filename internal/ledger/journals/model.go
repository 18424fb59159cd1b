package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReferenceType names the business document a journal entry originated from.
type ReferenceType string

const (
	ReferenceManual        ReferenceType = "MANUAL"
	ReferenceSalesInvoice  ReferenceType = "SALES_INVOICE"
	ReferencePurchaseBill  ReferenceType = "PURCHASE_BILL"
	ReferencePayment       ReferenceType = "PAYMENT"
	ReferenceAdjustment    ReferenceType = "ADJUSTMENT"
)

// Valid reports whether the reference type is known.
func (t ReferenceType) Valid() bool {
	switch t {
	case ReferenceManual, ReferenceSalesInvoice, ReferencePurchaseBill, ReferencePayment, ReferenceAdjustment:
		return true
	}
	return false
}

// SourceRef derives the deterministic source id for a document so a repeat
// posting of the same document maps to the same link.
func SourceRef(refType ReferenceType, documentID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d", refType, documentID)))
}

// JournalEntry is a dated, balanced group of debit/credit lines. Entries are
// append-only: once created, lines are never edited or deleted.
type JournalEntry struct {
	ID            int64         `json:"id"`
	Date          time.Time     `json:"date"`
	Memo          string        `json:"memo,omitempty"`
	Posted        bool          `json:"posted"`
	ReferenceType ReferenceType `json:"referenceType"`
	ReferenceID   uuid.UUID     `json:"referenceId"`
	CreatedBy     int64         `json:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Lines         []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a debit or credit amount against an account, optionally
// tagged with the product and location dimensions reports aggregate on.
type JournalLine struct {
	ID          int64     `json:"id"`
	EntryID     int64     `json:"entryId"`
	AccountID   int64     `json:"accountId"`
	Description string    `json:"description,omitempty"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	ProductID   *int64    `json:"productId,omitempty"`
	LocationID  *int64    `json:"locationId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
