package accounts

import (
	"context"
	"strings"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

// CreateInput groups fields for a new account.
type CreateInput struct {
	Code     string
	Name     string
	Category Category
	ParentID *int64
	ActorID  int64
}

// UpdateInput carries a partial account update. Nil fields are untouched.
type UpdateInput struct {
	Name     *string
	Category *Category
	ParentID *int64
	IsActive *bool
	ActorID  int64
}

// Service implements chart-of-accounts operations.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new account. The code must be unique across all
// accounts, active or not.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" {
		return Account{}, shared.Invalid("account code is required")
	}
	if name == "" {
		return Account{}, shared.Invalid("account name is required")
	}
	if !input.Category.Valid() {
		return Account{}, shared.Invalid("unknown account category")
	}
	if input.ParentID != nil {
		if _, err := s.repo.Get(ctx, *input.ParentID); err != nil {
			return Account{}, shared.Invalid("parent account not found")
		}
	}
	return s.repo.Create(ctx, Account{
		Code:     code,
		Name:     name,
		Category: input.Category,
		ParentID: input.ParentID,
		IsActive: true,
	})
}

// Get fetches one account by id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Search lists accounts matched by code or name, paginated.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) ([]Account, internalshared.Pagination, error) {
	items, total, err := s.repo.Search(ctx, SearchFilter{Query: strings.TrimSpace(query), Page: page, PerPage: perPage})
	if err != nil {
		return nil, internalshared.Pagination{}, err
	}
	return items, internalshared.NewPagination(page, perPage, total), nil
}

// Update applies a partial update. The category is locked once the account
// has postings.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Account, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if input.Category != nil && *input.Category != current.Category {
		if !input.Category.Valid() {
			return Account{}, shared.Invalid("unknown account category")
		}
		referenced, err := s.repo.HasPostings(ctx, id)
		if err != nil {
			return Account{}, err
		}
		if referenced {
			return Account{}, shared.ErrCategoryLocked
		}
		current.Category = *input.Category
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Account{}, shared.Invalid("account name is required")
		}
		current.Name = name
	}
	if input.ParentID != nil {
		if *input.ParentID == id {
			return Account{}, shared.Invalid("account cannot parent itself")
		}
		if _, err := s.repo.Get(ctx, *input.ParentID); err != nil {
			return Account{}, shared.Invalid("parent account not found")
		}
		current.ParentID = input.ParentID
	}
	if input.IsActive != nil {
		current.IsActive = *input.IsActive
	}
	return s.repo.Update(ctx, current)
}

// Delete removes an account that has never been posted to. Referenced
// accounts stay forever; deactivate them instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	referenced, err := s.repo.HasPostings(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return shared.ErrAccountReferenced
	}
	return s.repo.Delete(ctx, id)
}
