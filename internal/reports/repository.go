package reports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/db"
)

// Repository reads the ledger state reports derive from. Every method runs
// its queries inside one read-only transaction so a report sees a single
// snapshot even while postings commit concurrently.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountBalances returns every active account with its running balance.
func (r *Repository) AccountBalances(ctx context.Context) ([]AccountBalance, error) {
	var out []AccountBalance
	err := db.WithReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, code, name, type, balance FROM accounts WHERE active ORDER BY code ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b AccountBalance
			if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Balance); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	return out, err
}

// DashboardRows is the raw material for the dashboard, loaded in one
// snapshot.
type DashboardRows struct {
	Balances        []AccountBalance
	ReceivableTotal decimal.Decimal
	PayableTotal    decimal.Decimal
	RecentEntries   []ledger.JournalEntry
	MonthlyPostings []MonthlyPosting
}

// DashboardData loads balances, partner totals, the latest entries and the
// posting volume of the trailing months.
func (r *Repository) DashboardData(ctx context.Context, recentLimit, months int) (DashboardRows, error) {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	if months <= 0 {
		months = 6
	}
	var data DashboardRows
	err := db.WithReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, code, name, type, balance FROM accounts WHERE active ORDER BY code ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b AccountBalance
			if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Balance); err != nil {
				return err
			}
			data.Balances = append(data.Balances, b)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(current_balance), 0) FROM partners WHERE kind='CUSTOMER'`).
			Scan(&data.ReceivableTotal); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(current_balance), 0) FROM partners WHERE kind='SUPPLIER'`).
			Scan(&data.PayableTotal); err != nil {
			return err
		}

		entryRows, err := tx.Query(ctx, `SELECT id, number, date, description, source_module, source_id, total_debit, total_credit, balanced, created_at
FROM journal_entries ORDER BY id DESC LIMIT $1`, recentLimit)
		if err != nil {
			return err
		}
		defer entryRows.Close()
		for entryRows.Next() {
			var e ledger.JournalEntry
			if err := entryRows.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.SourceModule,
				&e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.Balanced, &e.CreatedAt); err != nil {
				return err
			}
			data.RecentEntries = append(data.RecentEntries, e)
		}
		if err := entryRows.Err(); err != nil {
			return err
		}

		monthRows, err := tx.Query(ctx, `SELECT to_char(date_trunc('month', date), 'YYYY-MM') AS month, COALESCE(SUM(total_debit), 0)
FROM journal_entries
WHERE date >= date_trunc('month', NOW()) - make_interval(months => $1 - 1)
GROUP BY 1 ORDER BY 1 ASC`, months)
		if err != nil {
			return err
		}
		defer monthRows.Close()
		for monthRows.Next() {
			var m MonthlyPosting
			if err := monthRows.Scan(&m.Month, &m.Total); err != nil {
				return err
			}
			data.MonthlyPostings = append(data.MonthlyPostings, m)
		}
		return monthRows.Err()
	})
	if err != nil {
		return DashboardRows{}, err
	}
	return data, nil
}
