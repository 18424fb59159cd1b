package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
)

type memoryRepo struct {
	entries  map[int64]JournalEntry
	lines    map[int64][]JournalLine
	links    map[string]int64
	accounts map[int64]bool
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(accountIDs ...int64) *memoryRepo {
	accounts := make(map[int64]bool)
	for _, id := range accountIDs {
		accounts[id] = true
	}
	return &memoryRepo{
		entries:  make(map[int64]JournalEntry),
		lines:    make(map[int64][]JournalLine),
		links:    make(map[string]int64),
		accounts: accounts,
	}
}

func linkKey(refType ReferenceType, refID uuid.UUID) string {
	return string(refType) + ":" + refID.String()
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) clone() *memoryRepo {
	out := newMemoryRepo()
	for id := range r.accounts {
		out.accounts[id] = true
	}
	for id, e := range r.entries {
		out.entries[id] = e
	}
	for id, lines := range r.lines {
		out.lines[id] = append([]JournalLine(nil), lines...)
	}
	for key, id := range r.links {
		out.links[key] = id
	}
	out.nextID = r.nextID
	return out
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	e.Lines = r.lines[entryID]
	return e, nil
}

func (r *memoryRepo) GetBySource(ctx context.Context, refType ReferenceType, refID uuid.UUID) (JournalEntry, error) {
	id, ok := r.links[linkKey(refType, refID)]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return r.Get(ctx, id)
}

func (tx *memoryTx) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	tx.repo.nextID++
	entry := JournalEntry{
		ID:            tx.repo.nextID,
		Date:          in.Date,
		Memo:          in.Memo,
		Posted:        true,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedBy:     in.CreatedBy,
	}
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	tx.repo.lines[entryID] = toJournalLines(entryID, lines, time.Now())
	return nil
}

func (tx *memoryTx) EnsureAccounts(ctx context.Context, accountIDs []int64) error {
	for _, id := range accountIDs {
		if !tx.repo.accounts[id] {
			return shared.ErrAccountNotFound
		}
	}
	return nil
}

func (tx *memoryTx) LinkSource(ctx context.Context, refType ReferenceType, refID uuid.UUID, entryID int64) error {
	key := linkKey(refType, refID)
	if _, exists := tx.repo.links[key]; exists {
		return shared.ErrSourceConflict
	}
	tx.repo.links[key] = entryID
	return nil
}

func balancedInput(refID uuid.UUID) PostingInput {
	return PostingInput{
		Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Memo:          "opening balances",
		ReferenceType: ReferenceManual,
		ReferenceID:   refID,
		CreatedBy:     7,
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: 100},
			{AccountID: 2, Credit: 100},
		},
	}
}

func TestPostBalancedEntry(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc := NewService(repo)

	entry, err := svc.Post(context.Background(), balancedInput(uuid.New()))
	require.NoError(t, err)
	require.True(t, entry.Posted)
	require.Len(t, entry.Lines, 2)
	require.InDelta(t, 100.0, entry.Lines[0].Debit, 0.001)
	require.InDelta(t, 100.0, entry.Lines[1].Credit, 0.001)
}

func TestPostRejectsBothDebitAndCredit(t *testing.T) {
	svc := NewService(newMemoryRepo(1, 2))
	input := balancedInput(uuid.New())
	input.Lines[0] = PostingLineInput{AccountID: 1, Debit: 100, Credit: 50}

	_, err := svc.Post(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.Contains(t, err.Error(), "enter either a debit or a credit, not both")
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	svc := NewService(newMemoryRepo(1, 2))
	input := balancedInput(uuid.New())
	input.Lines[1].Credit = 90

	_, err := svc.Post(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrUnbalanced)
}

func TestPostToleratesSubCentImbalance(t *testing.T) {
	svc := NewService(newMemoryRepo(1, 2))
	input := balancedInput(uuid.New())
	input.Lines[1].Credit = 100.004

	_, err := svc.Post(context.Background(), input)
	require.NoError(t, err)
}

func TestPostRejectsNegativeAmount(t *testing.T) {
	svc := NewService(newMemoryRepo(1, 2))
	input := balancedInput(uuid.New())
	input.Lines[0].Debit = -100

	_, err := svc.Post(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPostRejectsTooFewLines(t *testing.T) {
	svc := NewService(newMemoryRepo(1))
	input := balancedInput(uuid.New())
	input.Lines = input.Lines[:1]

	_, err := svc.Post(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestPostRejectsUnknownAccount(t *testing.T) {
	svc := NewService(newMemoryRepo(1))
	input := balancedInput(uuid.New())

	_, err := svc.Post(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestPostReplaysLinkedSource(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc := NewService(repo)
	ctx := context.Background()
	refID := uuid.New()

	first, err := svc.Post(ctx, balancedInput(refID))
	require.NoError(t, err)

	second, err := svc.Post(ctx, balancedInput(refID))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.entries, 1)
}
