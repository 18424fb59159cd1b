package banking

import (
	"time"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
)

// BankReconciliation matches a set of recorded payments against one bank
// statement snapshot. It is not a ledger posting; it only flips the matched
// payments to reconciled.
type BankReconciliation struct {
	ID            int64                `json:"id"`
	BankAccountID int64                `json:"bankAccountId"`
	StatementDate time.Time            `json:"statementDate"`
	EndingBalance float64              `json:"endingBalance"`
	Notes         string               `json:"notes,omitempty"`
	CreatedBy     int64                `json:"createdBy"`
	CreatedAt     time.Time            `json:"createdAt"`
	Lines         []ReconciliationLine `json:"lines"`
}

// ReconciliationLine ties one payment to the reconciliation it was settled in.
type ReconciliationLine struct {
	ID               int64 `json:"id"`
	ReconciliationID int64 `json:"reconciliationId"`
	PaymentID        int64 `json:"paymentId"`
}

// UnreconciledPayment is the listing view of a posted payment still waiting
// for a statement match.
type UnreconciledPayment struct {
	ID           int64     `json:"id"`
	Direction    string    `json:"direction"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       float64   `json:"amount"`
	Date         time.Time `json:"date"`
	Memo         string    `json:"memo,omitempty"`
}

// ReconcileInput groups the payment ids to settle against one statement.
type ReconcileInput struct {
	BankAccountID int64
	StatementDate time.Time
	EndingBalance float64
	PaymentIDs    []int64
	Notes         string
}

func (in ReconcileInput) Validate() error {
	if in.BankAccountID == 0 {
		return shared.Invalid("bank account is required")
	}
	if in.StatementDate.IsZero() {
		return shared.Invalid("statement date is required")
	}
	if len(in.PaymentIDs) == 0 {
		return shared.Invalid("at least one payment id is required")
	}
	seen := make(map[int64]struct{}, len(in.PaymentIDs))
	for _, id := range in.PaymentIDs {
		if id == 0 {
			return shared.Invalid("payment id must not be zero")
		}
		if _, dup := seen[id]; dup {
			return shared.Invalid("payment %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
