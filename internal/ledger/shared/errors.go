package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed caller input caught before any
	// transaction opens.
	ErrInvalidInput = errors.New("ledger: invalid input")

	// ErrUnbalanced indicates debit != credit within cent tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrEmptyEntry indicates an entry whose lines sum to zero.
	ErrEmptyEntry = errors.New("ledger: journal requires a non-zero debit total")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("ledger: journal entry not found")
	// ErrAccountNotFound indicates an unknown account id referenced by a line.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDuplicateCode indicates a chart-of-accounts code collision.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrAccountReferenced indicates the account has journal lines and cannot be removed.
	ErrAccountReferenced = errors.New("ledger: account is referenced by the ledger")
	// ErrCategoryLocked indicates the category cannot change once the account has postings.
	ErrCategoryLocked = errors.New("ledger: category cannot change after postings exist")
	// ErrMappingNotFound indicates a posting account mapping is missing.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = errors.New("ledger: source link conflict")
	// ErrSourceAlreadyLinked indicates the document was already posted.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked to an entry")
)

// Invalid builds an input validation error carrying ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

