// Package ledgertest provides an in-memory ledger store used by service
// tests across the document posting packages.
package ledgertest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
)

// MemoryStore holds ledger state in maps and satisfies ledger.StorePort.
// Its transactions are not isolated; tests drive one operation at a time.
type MemoryStore struct {
	Accounts map[int64]*ledger.Account
	Partners map[int64]*ledger.PartnerRef
	Entries  map[int64]*ledger.JournalEntry
	Lines    map[int64][]ledger.EntryLine

	nextAccountID int64
	nextEntryID   int64
	nextLineID    int64
	nextNumber    int64

	// FailOn, when set, makes the named tx method return an error so tests
	// can assert rollback behaviour.
	FailOn string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Accounts: make(map[int64]*ledger.Account),
		Partners: make(map[int64]*ledger.PartnerRef),
		Entries:  make(map[int64]*ledger.JournalEntry),
		Lines:    make(map[int64][]ledger.EntryLine),
	}
}

// SeedAccount inserts an account directly and returns it.
func (s *MemoryStore) SeedAccount(code, name string, typ ledger.AccountType) ledger.Account {
	s.nextAccountID++
	a := ledger.Account{
		ID:      s.nextAccountID,
		Code:    code,
		Name:    name,
		Type:    typ,
		Balance: decimal.Zero,
		Active:  true,
	}
	s.Accounts[a.ID] = &a
	return a
}

// SeedPartner inserts a partner ref directly and returns it.
func (s *MemoryStore) SeedPartner(kind ledger.PartnerKind, accountID int64, balance decimal.Decimal) ledger.PartnerRef {
	id := int64(len(s.Partners) + 1)
	p := ledger.PartnerRef{ID: id, Kind: kind, AccountID: accountID, Balance: balance}
	s.Partners[id] = &p
	return p
}

// WithTx runs fn against the store itself; errors discard nothing, so
// rollback-sensitive tests use snapshots via Clone.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(context.Context, ledger.Tx) error) error {
	return fn(ctx, s)
}

// Tx implementation.

func (s *MemoryStore) GetAccountForUpdate(ctx context.Context, id int64) (ledger.Account, error) {
	if s.FailOn == "GetAccountForUpdate" {
		return ledger.Account{}, fmt.Errorf("ledgertest: forced failure")
	}
	a, ok := s.Accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return *a, nil
}

func (s *MemoryStore) GetAccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	for _, a := range s.Accounts {
		if a.Code == code {
			return *a, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (s *MemoryStore) InsertAccount(ctx context.Context, in ledger.AccountInput) (ledger.Account, error) {
	if _, err := s.GetAccountByCode(ctx, in.Code); err == nil {
		return ledger.Account{}, ledger.ErrDuplicateCode
	}
	s.nextAccountID++
	a := ledger.Account{
		ID:       s.nextAccountID,
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		ParentID: in.ParentID,
		Balance:  decimal.Zero,
		Active:   in.Active,
	}
	s.Accounts[a.ID] = &a
	return a, nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, id int64, in ledger.AccountInput) error {
	a, ok := s.Accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Name = in.Name
	a.Type = in.Type
	a.Active = in.Active
	return nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id int64) error {
	if _, ok := s.Accounts[id]; !ok {
		return ledger.ErrAccountNotFound
	}
	delete(s.Accounts, id)
	return nil
}

func (s *MemoryStore) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if s.FailOn == "UpdateAccountBalance" {
		return fmt.Errorf("ledgertest: forced failure")
	}
	a, ok := s.Accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Balance = balance
	return nil
}

func (s *MemoryStore) AccountReferenced(ctx context.Context, id int64) (bool, error) {
	for _, lines := range s.Lines {
		for _, line := range lines {
			if line.AccountID == id {
				return true, nil
			}
		}
	}
	for _, p := range s.Partners {
		if p.AccountID == id {
			return true, nil
		}
	}
	for _, a := range s.Accounts {
		if a.ParentID != nil && *a.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) NextEntryNumber(ctx context.Context) (string, error) {
	s.nextNumber++
	return fmt.Sprintf("JE-%06d", s.nextNumber), nil
}

func (s *MemoryStore) InsertEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	if s.FailOn == "InsertEntry" {
		return ledger.JournalEntry{}, fmt.Errorf("ledgertest: forced failure")
	}
	for _, e := range s.Entries {
		if e.Number == entry.Number {
			return ledger.JournalEntry{}, ledger.ErrDuplicateNumber
		}
	}
	s.nextEntryID++
	entry.ID = s.nextEntryID
	entry.CreatedAt = time.Now()
	stored := entry
	stored.Lines = nil
	s.Entries[entry.ID] = &stored
	return entry, nil
}

func (s *MemoryStore) InsertEntryLines(ctx context.Context, entryID int64, lines []ledger.PostingLine) ([]ledger.EntryLine, error) {
	out := make([]ledger.EntryLine, 0, len(lines))
	for _, line := range lines {
		s.nextLineID++
		l := ledger.EntryLine{
			ID:          s.nextLineID,
			EntryID:     entryID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		}
		s.Lines[entryID] = append(s.Lines[entryID], l)
		out = append(out, l)
	}
	return out, nil
}

func (s *MemoryStore) GetEntryWithLines(ctx context.Context, id int64) (ledger.JournalEntry, error) {
	e, ok := s.Entries[id]
	if !ok {
		return ledger.JournalEntry{}, ledger.ErrEntryNotFound
	}
	out := *e
	out.Lines = append([]ledger.EntryLine(nil), s.Lines[id]...)
	return out, nil
}

func (s *MemoryStore) DeleteEntryLines(ctx context.Context, entryID int64) error {
	delete(s.Lines, entryID)
	return nil
}

func (s *MemoryStore) DeleteEntry(ctx context.Context, entryID int64) error {
	if _, ok := s.Entries[entryID]; !ok {
		return ledger.ErrEntryNotFound
	}
	delete(s.Entries, entryID)
	return nil
}

func (s *MemoryStore) GetPartnerForUpdate(ctx context.Context, id int64) (ledger.PartnerRef, error) {
	p, ok := s.Partners[id]
	if !ok {
		return ledger.PartnerRef{}, ledger.ErrPartnerNotFound
	}
	return *p, nil
}

func (s *MemoryStore) UpdatePartnerBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	p, ok := s.Partners[id]
	if !ok {
		return ledger.ErrPartnerNotFound
	}
	p.Balance = balance
	return nil
}

// StorePort reads.

func (s *MemoryStore) GetAccount(ctx context.Context, id int64) (ledger.Account, error) {
	return s.GetAccountForUpdate(ctx, id)
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *MemoryStore) GetEntry(ctx context.Context, id int64) (ledger.JournalEntry, error) {
	return s.GetEntryWithLines(ctx, id)
}

func (s *MemoryStore) ListEntries(ctx context.Context, limit int) ([]ledger.JournalEntry, error) {
	out := make([]ledger.JournalEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, *e)
	}
	return out, nil
}
