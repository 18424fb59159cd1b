package journals

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
)

// PostingLineInput describes one journal line of a posting request.
type PostingLineInput struct {
	AccountID   int64
	Description string
	Debit       float64
	Credit      float64
	ProductID   *int64
	LocationID  *int64
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date          time.Time
	Memo          string
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	CreatedBy     int64
	Lines         []PostingLineInput
}

// balanceTolerance is the cent-level slack allowed between debit and credit
// totals.
const balanceTolerance = 0.01

// Validate enforces the balanced-entry invariants: every line carries exactly
// one of debit or credit, amounts are non-negative, and the totals match
// within cent tolerance with a non-zero debit sum.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return shared.Invalid("entry date is required")
	}
	if !in.ReferenceType.Valid() {
		return shared.Invalid("unknown reference type %q", in.ReferenceType)
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return shared.Invalid("line %d: account is required", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return shared.Invalid("line %d: amounts must not be negative", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return shared.Invalid("line %d: enter either a debit or a credit, not both", idx)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return shared.Invalid("line %d: enter either a debit or a credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) >= balanceTolerance {
		return shared.ErrUnbalanced
	}
	if debit <= 0 {
		return shared.ErrEmptyEntry
	}
	return nil
}

// ListFilter narrows journal listings by entry date.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}
