package banking

import (
	"context"

	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

// Service settles payments against bank statements.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Reconcile creates the reconciliation with one line per payment id and flips
// every referenced payment in one transaction. Any id that is unknown or
// already reconciled aborts the whole call with nothing applied.
func (s *Service) Reconcile(ctx context.Context, actor internalshared.Identity, in ReconcileInput) (BankReconciliation, error) {
	if err := in.Validate(); err != nil {
		return BankReconciliation{}, err
	}
	var result BankReconciliation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.InsertReconciliation(ctx, BankReconciliation{
			BankAccountID: in.BankAccountID,
			StatementDate: in.StatementDate,
			EndingBalance: in.EndingBalance,
			Notes:         in.Notes,
			CreatedBy:     actor.UserID,
		})
		if err != nil {
			return err
		}
		for _, paymentID := range in.PaymentIDs {
			if err := tx.MarkReconciled(ctx, paymentID); err != nil {
				return err
			}
			line, err := tx.InsertLine(ctx, rec.ID, paymentID)
			if err != nil {
				return err
			}
			rec.Lines = append(rec.Lines, line)
		}
		result = rec
		return nil
	})
	if err != nil {
		return BankReconciliation{}, err
	}
	return result, nil
}

// Unreconciled lists posted payments on the bank account still awaiting a
// statement match.
func (s *Service) Unreconciled(ctx context.Context, bankAccountID int64) ([]UnreconciledPayment, error) {
	payments, err := s.repo.Unreconciled(ctx, bankAccountID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []UnreconciledPayment{}
	}
	return payments, nil
}
