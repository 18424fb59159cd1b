package posting

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	ledgershared "github.com/glowdesk/glowdesk/internal/ledger/shared"
)

// Side names which column of a journal line a recipe step fills.
type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

// AccountSelector picks the account for a step: an explicit id when the
// document or product overrides the default, otherwise a mapping key resolved
// against the account mappings table.
type AccountSelector struct {
	AccountID int64
	Module    string
	Key       string
}

// Step is one ordered line of a posting recipe.
type Step struct {
	Account     AccountSelector
	Side        Side
	Amount      float64
	Description string
	ProductID   *int64
	LocationID  *int64
}

// Recipe describes how a business document becomes a balanced journal entry.
// Every document type shares this one shape, so a single poster carries the
// atomicity guarantee for all of them.
type Recipe struct {
	Date          time.Time
	Memo          string
	ReferenceType journals.ReferenceType
	DocumentID    int64
	// ReferenceID overrides the id derived from DocumentID when the caller
	// already fixed a source reference.
	ReferenceID uuid.UUID
	CreatedBy   int64
	Steps       []Step
}

// AccountResolver resolves mapping keys to account ids.
type AccountResolver interface {
	Resolve(ctx context.Context, module, key string) (int64, error)
}

// Build resolves every step into a journal posting input. Steps whose amount
// rounds to zero are dropped; the result still has to pass the balanced entry
// validation before anything is written.
func (r Recipe) Build(ctx context.Context, resolver AccountResolver) (journals.PostingInput, error) {
	refID := r.ReferenceID
	if refID == uuid.Nil {
		refID = journals.SourceRef(r.ReferenceType, r.DocumentID)
	}
	input := journals.PostingInput{
		Date:          r.Date,
		Memo:          r.Memo,
		ReferenceType: r.ReferenceType,
		ReferenceID:   refID,
		CreatedBy:     r.CreatedBy,
	}
	for _, step := range r.Steps {
		amount := round2(step.Amount)
		if amount == 0 {
			continue
		}
		if amount < 0 {
			return journals.PostingInput{}, ledgershared.Invalid("%s amount must not be negative", step.Description)
		}
		accountID := step.Account.AccountID
		if accountID == 0 {
			resolved, err := resolver.Resolve(ctx, step.Account.Module, step.Account.Key)
			if err != nil {
				return journals.PostingInput{}, err
			}
			accountID = resolved
		}
		line := journals.PostingLineInput{
			AccountID:   accountID,
			Description: step.Description,
			ProductID:   step.ProductID,
			LocationID:  step.LocationID,
		}
		if step.Side == Debit {
			line.Debit = amount
		} else {
			line.Credit = amount
		}
		input.Lines = append(input.Lines, line)
	}
	return input, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
