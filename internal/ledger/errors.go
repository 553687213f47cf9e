package ledger

import (
	"fmt"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = fmt.Errorf("%w: journal lines must balance", shared.ErrValidation)
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = fmt.Errorf("%w: journal requires at least two lines", shared.ErrValidation)
	// ErrZeroEntry indicates an entry whose totals are not positive.
	ErrZeroEntry = fmt.Errorf("%w: journal totals must be positive", shared.ErrValidation)
	// ErrMixedLine indicates a line carrying both a debit and a credit,
	// or neither.
	ErrMixedLine = fmt.Errorf("%w: each line must carry exactly one of debit or credit", shared.ErrValidation)
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = fmt.Errorf("%w: account", shared.ErrNotFound)
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = fmt.Errorf("%w: journal entry", shared.ErrNotFound)
	// ErrPartnerNotFound indicates a missing business partner.
	ErrPartnerNotFound = fmt.Errorf("%w: business partner", shared.ErrNotFound)
	// ErrDuplicateNumber indicates an entry number collision.
	ErrDuplicateNumber = fmt.Errorf("%w: journal entry number already used", shared.ErrConflict)
	// ErrDuplicateCode indicates an account code collision.
	ErrDuplicateCode = fmt.Errorf("%w: account code already used", shared.ErrConflict)
)
