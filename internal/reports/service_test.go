package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeRepo struct {
	balances []AccountBalance
	rows     DashboardRows
	calls    int
}

func (f *fakeRepo) AccountBalances(ctx context.Context) ([]AccountBalance, error) {
	f.calls++
	return f.balances, nil
}

func (f *fakeRepo) DashboardData(ctx context.Context, recentLimit, months int) (DashboardRows, error) {
	f.calls++
	return f.rows, nil
}

func sampleBalances() []AccountBalance {
	return []AccountBalance{
		{AccountID: 1, Code: "1100", Name: "Cash", Type: ledger.AccountTypeAsset, Balance: dec("500.00")},
		{AccountID: 2, Code: "AR-C001", Name: "Receivable", Type: ledger.AccountTypeAsset, Balance: dec("150.00")},
		{AccountID: 3, Code: "2200", Name: "VAT Payable", Type: ledger.AccountTypeLiability, Balance: dec("-30.00")},
		{AccountID: 4, Code: "3000", Name: "Capital", Type: ledger.AccountTypeEquity, Balance: dec("-400.00")},
		{AccountID: 5, Code: "4100", Name: "Sales Revenue", Type: ledger.AccountTypeRevenue, Balance: dec("-300.00")},
		{AccountID: 6, Code: "5100", Name: "COGS", Type: ledger.AccountTypeExpense, Balance: dec("80.00")},
		{AccountID: 7, Code: "9999", Name: "Dormant", Type: ledger.AccountTypeAsset, Balance: decimal.Zero},
	}
}

func newTestService(t *testing.T, repo RepositoryPort) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, cache, logger)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestBuildTrialBalance(t *testing.T) {
	now := time.Now()
	tb := BuildTrialBalance(sampleBalances(), now)

	// Zero-balance account is dropped; rows come back in code order.
	require.Len(t, tb.Rows, 6)
	require.Equal(t, "1100", tb.Rows[0].Code)
	require.Equal(t, "2200", tb.Rows[1].Code)
	require.Equal(t, "AR-C001", tb.Rows[5].Code)

	// A balance lands in exactly one column, as a positive magnitude.
	require.True(t, tb.Rows[0].Debit.Equal(dec("500.00")))
	require.True(t, tb.Rows[0].Credit.IsZero())
	require.True(t, tb.Rows[1].Credit.Equal(dec("30.00")))
	require.True(t, tb.Rows[1].Debit.IsZero())

	require.True(t, tb.TotalDebit.Equal(dec("730.00")))
	require.True(t, tb.TotalCredit.Equal(dec("730.00")))
	require.True(t, tb.Balanced)
}

func TestBuildTrialBalanceReportsDrift(t *testing.T) {
	tb := BuildTrialBalance([]AccountBalance{
		{AccountID: 1, Code: "1100", Type: ledger.AccountTypeAsset, Balance: dec("10.00")},
	}, time.Now())
	require.False(t, tb.Balanced)
}

func TestBuildIncomeStatement(t *testing.T) {
	is := BuildIncomeStatement(sampleBalances(), time.Time{}, time.Time{}, time.Now())
	require.Len(t, is.Revenue, 1)
	require.True(t, is.Revenue[0].Amount.Equal(dec("300.00")), "credit balance reported as positive revenue")
	require.True(t, is.TotalRevenue.Equal(dec("300.00")))
	require.True(t, is.TotalExpense.Equal(dec("80.00")))
	require.True(t, is.NetIncome.Equal(dec("220.00")))
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(sampleBalances(), time.Now())
	require.True(t, bs.TotalAssets.Equal(dec("650.00")))
	require.True(t, bs.TotalLiabilities.Equal(dec("30.00")))
	require.True(t, bs.TotalEquity.Equal(dec("400.00")))
	require.True(t, bs.RetainedEarnings.Equal(dec("220.00")))
	require.True(t, bs.Balanced, "assets == liabilities + equity + retained earnings")
}

func TestTrialBalanceCached(t *testing.T) {
	repo := &fakeRepo{balances: sampleBalances()}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	second, err := svc.TrialBalance(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, repo.calls, "second read served from cache")
	require.True(t, first.TotalDebit.Equal(second.TotalDebit))
}

func TestInvalidateCacheForcesRebuild(t *testing.T) {
	repo := &fakeRepo{balances: sampleBalances()}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	ctx := context.Background()

	_, err := svc.TrialBalance(ctx)
	require.NoError(t, err)

	repo.balances[0].Balance = dec("600.00")
	svc.InvalidateCache(ctx)

	tb, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
	require.True(t, tb.Rows[0].Debit.Equal(dec("600.00")))
}

func TestDashboard(t *testing.T) {
	repo := &fakeRepo{
		balances: sampleBalances(),
		rows: DashboardRows{
			ReceivableTotal: dec("150.00"),
			PayableTotal:    dec("75.00"),
			RecentEntries:   []ledger.JournalEntry{{ID: 9, Number: "JE-000009"}},
			MonthlyPostings: []MonthlyPosting{{Month: "2026-08", Total: dec("730.00")}},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.True(t, stats.CashTotal.Equal(dec("500.00")), "AR- accounts excluded from cash")
	require.True(t, stats.ReceivableTotal.Equal(dec("150.00")))
	require.True(t, stats.PayableTotal.Equal(dec("75.00")))
	require.True(t, stats.TotalRevenue.Equal(dec("300.00")))
	require.True(t, stats.NetIncome.Equal(dec("220.00")))
	require.Len(t, stats.RecentEntries, 1)
	require.Equal(t, "JE-000009", stats.RecentEntries[0].Number)
	require.Equal(t, "2026-08", stats.MonthlyPostings[0].Month)
}
