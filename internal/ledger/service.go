package ledger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// StorePort abstracts the ledger store for the service layer.
type StorePort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	GetEntry(ctx context.Context, id int64) (JournalEntry, error)
	ListEntries(ctx context.Context, limit int) ([]JournalEntry, error)
}

// Service fronts the ledger store for account management and manual journal
// entries. Document posting workflows bypass it and drive the Poster inside
// their own transactions.
type Service struct {
	store  StorePort
	poster *Poster
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(store StorePort, poster *Poster, logger *slog.Logger) *Service {
	return &Service{store: store, poster: poster, logger: logger}
}

// ListAccounts returns the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.store.ListAccounts(ctx)
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.store.GetAccount(ctx, id)
}

func validateAccountInput(in AccountInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return shared.Validationf("account code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("account name is required")
	}
	if !ValidAccountType(in.Type) {
		return shared.Validationf("unknown account type %q", in.Type)
	}
	return nil
}

// CreateAccount inserts a new account with zero balance.
func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	if err := validateAccountInput(in); err != nil {
		return Account{}, err
	}
	var account Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		account, err = tx.InsertAccount(ctx, in)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// UpdateAccount changes name, type and active flag. Code and parent stay
// as created, and the balance column is out of reach here; only the
// maintainer writes it.
func (s *Service) UpdateAccount(ctx context.Context, id int64, in AccountInput) (Account, error) {
	if err := validateAccountInput(in); err != nil {
		return Account{}, err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetAccountForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, id, in)
	})
	if err != nil {
		return Account{}, err
	}
	return s.store.GetAccount(ctx, id)
}

// DeleteAccount removes an account. Rejected while the balance is nonzero
// or while anything still references it, with the blocking detail reported.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !account.Balance.IsZero() {
			return shared.Conflictf("account %s has outstanding balance %s", account.Code, account.Balance.StringFixed(2))
		}
		referenced, err := tx.AccountReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return shared.Conflictf("account %s is referenced by ledger or partner records", account.Code)
		}
		return tx.DeleteAccount(ctx, id)
	})
}

// PostManualEntry posts a user-authored journal entry. Manual entries have
// no draft stage: they hit the ledger immediately or not at all.
func (s *Service) PostManualEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if input.SourceModule == "" {
		input.SourceModule = "MANUAL"
	}
	if input.SourceID == uuid.Nil {
		input.SourceID = uuid.New()
	}
	var entry JournalEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		entry, err = s.poster.Post(ctx, tx, input)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal entry posted",
		slog.String("number", entry.Number),
		slog.String("total", entry.TotalDebit.StringFixed(2)))
	return entry, nil
}

// DeleteEntry reverses every balance effect of a manual entry and removes
// it. Entries owned by documents are only removed through their document's
// own delete path.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		entry, err := tx.GetEntryWithLines(ctx, id)
		if err != nil {
			return err
		}
		if entry.SourceModule != "MANUAL" {
			return shared.InvalidStatef("entry %s belongs to %s; delete its document instead", entry.Number, entry.SourceModule)
		}
		return s.poster.Reverse(ctx, tx, id)
	})
}

// ListEntries returns recent journal entries.
func (s *Service) ListEntries(ctx context.Context, limit int) ([]JournalEntry, error) {
	return s.store.ListEntries(ctx, limit)
}

// GetEntry returns one entry with lines.
func (s *Service) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return s.store.GetEntry(ctx, id)
}
