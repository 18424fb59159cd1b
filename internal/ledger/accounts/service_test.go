package accounts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
)

type memoryRepo struct {
	accounts map[int64]Account
	posted   map[int64]bool
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]Account), posted: make(map[int64]bool)}
}

func (r *memoryRepo) Create(ctx context.Context, a Account) (Account, error) {
	for _, existing := range r.accounts {
		if existing.Code == a.Code {
			return Account{}, shared.ErrDuplicateCode
		}
	}
	r.nextID++
	a.ID = r.nextID
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) Update(ctx context.Context, a Account) (Account, error) {
	if _, ok := r.accounts[a.ID]; !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	for id, existing := range r.accounts {
		if id != a.ID && existing.Code == a.Code {
			return Account{}, shared.ErrDuplicateCode
		}
	}
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (r *memoryRepo) Search(ctx context.Context, filter SearchFilter) ([]Account, int, error) {
	var out []Account
	for _, a := range r.accounts {
		if filter.Query == "" || strings.Contains(a.Code, filter.Query) || strings.Contains(a.Name, filter.Query) {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) HasPostings(ctx context.Context, id int64) (bool, error) {
	return r.posted[id], nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return shared.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "1000", Name: "Cash", Category: CategoryAsset})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "1000", Name: "Cash Again", Category: CategoryAsset})
	require.ErrorIs(t, err, shared.ErrDuplicateCode)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "", Name: "Cash", Category: CategoryAsset})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(ctx, CreateInput{Code: "1000", Name: "Cash", Category: Category("WEIRD")})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCategoryLockedAfterPostings(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	account, err := svc.Create(ctx, CreateInput{Code: "4000", Name: "Service Revenue", Category: CategoryIncome})
	require.NoError(t, err)

	expense := CategoryExpense
	updated, err := svc.Update(ctx, account.ID, UpdateInput{Category: &expense})
	require.NoError(t, err)
	require.Equal(t, CategoryExpense, updated.Category)

	repo.posted[account.ID] = true
	income := CategoryIncome
	_, err = svc.Update(ctx, account.ID, UpdateInput{Category: &income})
	require.ErrorIs(t, err, shared.ErrCategoryLocked)
}

func TestDeleteReferencedAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	account, err := svc.Create(ctx, CreateInput{Code: "1100", Name: "Bank", Category: CategoryAsset})
	require.NoError(t, err)

	repo.posted[account.ID] = true
	require.ErrorIs(t, svc.Delete(ctx, account.ID), shared.ErrAccountReferenced)

	repo.posted[account.ID] = false
	require.NoError(t, svc.Delete(ctx, account.ID))
}
