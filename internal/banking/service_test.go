package banking

import (
	"context"
	"fmt"
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ledgershared "github.com/glowdesk/glowdesk/internal/ledger/shared"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

type memoryRepo struct {
	reconciled map[int64]bool
	recs       map[int64]BankReconciliation
	lines      []ReconciliationLine
	nextID     int64
}

func newMemoryRepo(paymentIDs ...int64) *memoryRepo {
	repo := &memoryRepo{reconciled: map[int64]bool{}, recs: map[int64]BankReconciliation{}}
	for _, id := range paymentIDs {
		repo.reconciled[id] = false
	}
	return repo
}

func (m *memoryRepo) Unreconciled(ctx context.Context, bankAccountID int64) ([]UnreconciledPayment, error) {
	var out []UnreconciledPayment
	for id, done := range m.reconciled {
		if !done {
			out = append(out, UnreconciledPayment{ID: id})
		}
	}
	return out, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapReconciled := maps.Clone(m.reconciled)
	snapRecs := maps.Clone(m.recs)
	snapLines := append([]ReconciliationLine(nil), m.lines...)
	snapNext := m.nextID
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.reconciled, m.recs, m.lines, m.nextID = snapReconciled, snapRecs, snapLines, snapNext
		return err
	}
	return nil
}

type memoryTx struct{ repo *memoryRepo }

func (t *memoryTx) InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error) {
	t.repo.nextID++
	rec.ID = t.repo.nextID
	t.repo.recs[rec.ID] = rec
	return rec, nil
}

func (t *memoryTx) InsertLine(ctx context.Context, reconciliationID, paymentID int64) (ReconciliationLine, error) {
	t.repo.nextID++
	line := ReconciliationLine{ID: t.repo.nextID, ReconciliationID: reconciliationID, PaymentID: paymentID}
	t.repo.lines = append(t.repo.lines, line)
	return line, nil
}

func (t *memoryTx) MarkReconciled(ctx context.Context, paymentID int64) error {
	done, ok := t.repo.reconciled[paymentID]
	if !ok || done {
		return fmt.Errorf("%w: payment %d", ErrPaymentNotReconcilable, paymentID)
	}
	t.repo.reconciled[paymentID] = true
	return nil
}

var actor = internalshared.Identity{UserID: 3, Name: "bookkeeper"}

func statementDate() time.Time {
	return time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
}

func TestReconcileMarksAllPayments(t *testing.T) {
	repo := newMemoryRepo(10, 11, 12)
	svc := NewService(repo)

	rec, err := svc.Reconcile(context.Background(), actor, ReconcileInput{
		BankAccountID: 6,
		StatementDate: statementDate(),
		EndingBalance: 1500,
		PaymentIDs:    []int64{10, 11, 12},
	})
	require.NoError(t, err)
	require.Len(t, rec.Lines, 3)
	require.Len(t, repo.lines, 3)
	for _, id := range []int64{10, 11, 12} {
		require.True(t, repo.reconciled[id])
	}
}

func TestReconcileUnknownPaymentAbortsEverything(t *testing.T) {
	repo := newMemoryRepo(10, 11)
	svc := NewService(repo)

	_, err := svc.Reconcile(context.Background(), actor, ReconcileInput{
		BankAccountID: 6,
		StatementDate: statementDate(),
		PaymentIDs:    []int64{10, 99},
	})
	require.ErrorIs(t, err, ErrPaymentNotReconcilable)
	require.False(t, repo.reconciled[10], "partial effects must roll back")
	require.Empty(t, repo.recs)
	require.Empty(t, repo.lines)
}

func TestReconcileAlreadyReconciledAborts(t *testing.T) {
	repo := newMemoryRepo(10, 11)
	repo.reconciled[11] = true
	svc := NewService(repo)

	_, err := svc.Reconcile(context.Background(), actor, ReconcileInput{
		BankAccountID: 6,
		StatementDate: statementDate(),
		PaymentIDs:    []int64{10, 11},
	})
	require.ErrorIs(t, err, ErrPaymentNotReconcilable)
	require.False(t, repo.reconciled[10])
}

func TestReconcileValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Reconcile(context.Background(), actor, ReconcileInput{
		BankAccountID: 6,
		StatementDate: statementDate(),
		PaymentIDs:    []int64{5, 5},
	})
	require.ErrorIs(t, err, ledgershared.ErrInvalidInput)

	_, err = svc.Reconcile(context.Background(), actor, ReconcileInput{
		StatementDate: statementDate(),
		PaymentIDs:    []int64{5},
	})
	require.ErrorIs(t, err, ledgershared.ErrInvalidInput)
}

func TestUnreconciledNeverNil(t *testing.T) {
	svc := NewService(newMemoryRepo())
	payments, err := svc.Unreconciled(context.Background(), 6)
	require.NoError(t, err)
	require.NotNil(t, payments)
	require.Empty(t, payments)
}
