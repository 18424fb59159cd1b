package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
)

// CacheInvalidator drops cached reports after an entry changes balances.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service validates and atomically persists balanced journal entries.
type Service struct {
	repo  Repository
	now   func() time.Time
	cache CacheInvalidator
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCache attaches the report cache invalidated on successful postings.
func (s *Service) WithCache(cache CacheInvalidator) {
	s.cache = cache
}

// Post validates the input and creates the entry plus all lines in one
// transaction. Entries created here are always posted; there is no draft
// concept at this layer. When the source reference was already linked the
// original entry is returned instead of creating a duplicate.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accountIDs := make([]int64, 0, len(input.Lines))
		for _, line := range input.Lines {
			accountIDs = append(accountIDs, line.AccountID)
		}
		if err := tx.EnsureAccounts(ctx, accountIDs); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if input.ReferenceID != uuid.Nil {
			if err := tx.LinkSource(ctx, input.ReferenceType, input.ReferenceID, inserted.ID); err != nil {
				return err
			}
		}
		inserted.Lines = toJournalLines(inserted.ID, input.Lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrSourceConflict) {
			return s.replay(ctx, input)
		}
		return JournalEntry{}, err
	}
	if s.cache != nil {
		// Best effort; stale cached reports expire on their own TTL.
		_ = s.cache.Bump(ctx)
	}
	return entry, nil
}

// replay resolves the entry a conflicting source link points at.
func (s *Service) replay(ctx context.Context, input PostingInput) (JournalEntry, error) {
	existing, err := s.repo.GetBySource(ctx, input.ReferenceType, input.ReferenceID)
	if err != nil {
		return JournalEntry{}, shared.ErrSourceAlreadyLinked
	}
	return existing, nil
}

// List returns entries within the filter range, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// Get fetches one entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, entryID)
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			EntryID:     entryID,
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
			ProductID:   line.ProductID,
			LocationID:  line.LocationID,
			CreatedAt:   ts,
		})
	}
	return out
}
