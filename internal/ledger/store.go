package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/db"
)

// Store is the durable keyed storage for accounts, journal entries and
// entry lines. Mutations run through WithTx; failures propagate to the
// caller without any retry policy of their own.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside one RepeatableRead transaction exposing the ledger
// contract. Document workflows use their own repositories for the same
// pattern and embed a ledger Tx over the shared pgx transaction.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTx(tx))
	})
}

// GetAccount fetches one account by id.
func (s *Store) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

// GetAccountByCode fetches one account by its unique code.
func (s *Store) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

// ListAccounts returns every account ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Balance, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetEntry fetches one journal entry with its lines.
func (s *Store) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, s.pool, id)
}

// ListEntries returns the most recent entries, newest first.
func (s *Store) ListEntries(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT id, number, date, description, source_module, source_id, total_debit, total_credit, balanced, created_at
FROM journal_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.SourceModule, &e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.Balanced, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetOrCreateSystemAccount resolves a fixed chart-of-accounts entry by code,
// creating it on first use. Idempotent: a concurrent insert losing the race
// falls back to the winner's row.
func GetOrCreateSystemAccount(ctx context.Context, tx Tx, sys SystemAccount) (Account, error) {
	account, err := tx.GetAccountByCode(ctx, sys.Code)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return Account{}, err
	}
	account, err = tx.InsertAccount(ctx, AccountInput{Code: sys.Code, Name: sys.Name, Type: sys.Type, Active: true})
	if err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return tx.GetAccountByCode(ctx, sys.Code)
		}
		return Account{}, err
	}
	return account, nil
}
