package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Tx is the ledger store contract inside one database transaction. Document
// posting workflows embed it into their own transactional repositories so a
// whole document action commits or rolls back as a unit.
type Tx interface {
	GetAccountForUpdate(ctx context.Context, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	InsertAccount(ctx context.Context, in AccountInput) (Account, error)
	UpdateAccount(ctx context.Context, id int64, in AccountInput) error
	DeleteAccount(ctx context.Context, id int64) error
	// UpdateAccountBalance is reserved for the balance maintainer; nothing
	// else may write a balance.
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	AccountReferenced(ctx context.Context, id int64) (bool, error)

	NextEntryNumber(ctx context.Context) (string, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertEntryLines(ctx context.Context, entryID int64, lines []PostingLine) ([]EntryLine, error)
	GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, error)
	DeleteEntryLines(ctx context.Context, entryID int64) error
	DeleteEntry(ctx context.Context, entryID int64) error

	GetPartnerForUpdate(ctx context.Context, id int64) (PartnerRef, error)
	UpdatePartnerBalance(ctx context.Context, id int64, balance decimal.Decimal) error
}

// txStore implements Tx on top of pgx.Tx.
type txStore struct {
	tx pgx.Tx
}

// NewTx wraps a pgx transaction in the ledger store contract. Document
// repositories embed the result next to their own statements.
func NewTx(tx pgx.Tx) Tx {
	return &txStore{tx: tx}
}

const accountColumns = `id, code, name, type, parent_id, balance, active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Balance, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (s *txStore) GetAccountForUpdate(ctx context.Context, id int64) (Account, error) {
	return scanAccount(s.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
}

func (s *txStore) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(s.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (s *txStore) InsertAccount(ctx context.Context, in AccountInput) (Account, error) {
	row := s.tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, balance, active)
VALUES ($1,$2,$3,$4,0,$5) RETURNING `+accountColumns, in.Code, in.Name, in.Type, in.ParentID, in.Active)
	account, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err, "uq_accounts_code") {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

// UpdateAccount rewrites name, type and active only. Code and parent are
// fixed at creation; balance is the maintainer's.
func (s *txStore) UpdateAccount(ctx context.Context, id int64, in AccountInput) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE accounts SET name=$2, type=$3, active=$4, updated_at=NOW() WHERE id=$1`,
		id, in.Name, in.Type, in.Active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *txStore) DeleteAccount(ctx context.Context, id int64) error {
	cmd, err := s.tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *txStore) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE accounts SET balance=$2, updated_at=NOW() WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *txStore) AccountReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entry_lines WHERE account_id=$1)
OR EXISTS (SELECT 1 FROM partners WHERE account_id=$1)
OR EXISTS (SELECT 1 FROM accounts WHERE parent_id=$1)`, id).Scan(&referenced)
	return referenced, err
}

func (s *txStore) NextEntryNumber(ctx context.Context) (string, error) {
	var number string
	err := s.tx.QueryRow(ctx, `SELECT 'JE-' || LPAD(nextval('journal_entry_number_seq')::text, 6, '0')`).Scan(&number)
	return number, err
}

func (s *txStore) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := s.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, date, description, source_module, source_id, total_debit, total_credit, balanced)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
		entry.Number, entry.Date, entry.Description, entry.SourceModule, entry.SourceID, entry.TotalDebit, entry.TotalCredit, entry.Balanced)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		if isUniqueViolation(err, "uq_journal_entries_number") {
			return JournalEntry{}, ErrDuplicateNumber
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (s *txStore) InsertEntryLines(ctx context.Context, entryID int64, lines []PostingLine) ([]EntryLine, error) {
	out := make([]EntryLine, 0, len(lines))
	for _, line := range lines {
		var id int64
		err := s.tx.QueryRow(ctx, `INSERT INTO entry_lines (entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, entryID, line.AccountID, line.Debit, line.Credit, line.Description).Scan(&id)
		if err != nil {
			return nil, err
		}
		out = append(out, EntryLine{
			ID:          id,
			EntryID:     entryID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out, nil
}

func (s *txStore) GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, s.tx, id)
}

func (s *txStore) DeleteEntryLines(ctx context.Context, entryID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM entry_lines WHERE entry_id=$1`, entryID)
	return err
}

func (s *txStore) DeleteEntry(ctx context.Context, entryID int64) error {
	cmd, err := s.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *txStore) GetPartnerForUpdate(ctx context.Context, id int64) (PartnerRef, error) {
	var p PartnerRef
	err := s.tx.QueryRow(ctx, `SELECT id, kind, account_id, current_balance FROM partners WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Kind, &p.AccountID, &p.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PartnerRef{}, ErrPartnerNotFound
		}
		return PartnerRef{}, err
	}
	return p, nil
}

func (s *txStore) UpdatePartnerBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE partners SET current_balance=$2, updated_at=NOW() WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

// querier is the subset of pgx shared by pool and transaction handles.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getEntryWithLines(ctx context.Context, q querier, id int64) (JournalEntry, error) {
	var e JournalEntry
	var date time.Time
	err := q.QueryRow(ctx, `SELECT id, number, date, description, source_module, source_id, total_debit, total_credit, balanced, created_at
FROM journal_entries WHERE id=$1`, id).
		Scan(&e.ID, &e.Number, &date, &e.Description, &e.SourceModule, &e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.Balanced, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	e.Date = date
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, description FROM entry_lines WHERE entry_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line EntryLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return JournalEntry{}, err
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	return false
}
