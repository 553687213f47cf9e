package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Poster creates and reverses balanced journal entries. Every entry and all
// of its balance effects land in the caller's transaction; a failure at any
// point rolls the whole posting back.
type Poster struct {
	balances *Maintainer
	now      func() time.Time
}

// NewPoster constructs a Poster.
func NewPoster(balances *Maintainer) *Poster {
	return &Poster{balances: balances, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (p *Poster) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Validate checks the posting preconditions without touching the store.
func (in PostingInput) Validate() error {
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var totalDebit, totalCredit decimal.Decimal
	for _, line := range in.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ErrMixedLine
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return ErrMixedLine
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return ErrUnbalanced
	}
	if !totalDebit.IsPositive() {
		return ErrZeroEntry
	}
	return nil
}

// Totals sums the debit and credit columns.
func (in PostingInput) Totals() (debit, credit decimal.Decimal) {
	for _, line := range in.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Post validates input, persists the entry with its lines and applies one
// balance delta per line in line order.
func (p *Poster) Post(ctx context.Context, tx Tx, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	number := input.Number
	if number == "" {
		var err error
		if number, err = tx.NextEntryNumber(ctx); err != nil {
			return JournalEntry{}, fmt.Errorf("ledger: allocate entry number: %w", err)
		}
	}
	date := input.Date
	if date.IsZero() {
		date = p.now()
	}
	totalDebit, totalCredit := input.Totals()
	entry, err := tx.InsertEntry(ctx, JournalEntry{
		Number:       number,
		Date:         date,
		Description:  input.Description,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		TotalDebit:   totalDebit,
		TotalCredit:  totalCredit,
		Balanced:     true,
	})
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := tx.InsertEntryLines(ctx, entry.ID, input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	for _, line := range input.Lines {
		if err := p.balances.ApplyLine(ctx, tx, line.AccountID, line.Debit, line.Credit); err != nil {
			return JournalEntry{}, err
		}
	}
	return entry, nil
}

// Reverse undoes an entry exactly: every line's balance effect is negated
// through the maintainer, then the lines and the entry row are removed.
// Callers owning the entry must reverse before deleting their own document
// row, inside the same transaction.
func (p *Poster) Reverse(ctx context.Context, tx Tx, entryID int64) error {
	entry, err := tx.GetEntryWithLines(ctx, entryID)
	if err != nil {
		return err
	}
	for _, line := range entry.Lines {
		if err := p.balances.ApplyLine(ctx, tx, line.AccountID, line.Credit, line.Debit); err != nil {
			return err
		}
	}
	if err := tx.DeleteEntryLines(ctx, entryID); err != nil {
		return err
	}
	return tx.DeleteEntry(ctx, entryID)
}
