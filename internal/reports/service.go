package reports

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts the repository for the service layer.
type RepositoryPort interface {
	AccountBalances(ctx context.Context) ([]AccountBalance, error)
	DashboardData(ctx context.Context, recentLimit, months int) (DashboardRows, error)
}

// Service derives the financial reports. Reads are cached in Redis and
// concurrent builds of the same report are collapsed through singleflight
// so a warm dashboard never hits the store more than once per TTL.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service; cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// InvalidateCache drops every cached report. Called by the posting
// workflows' HTTP layer after a ledger-changing commit; failures are
// logged and swallowed since a stale report self-heals at TTL expiry.
func (s *Service) InvalidateCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("reports cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) cached(ctx context.Context, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, "reports", name)
	if err != nil {
		// Redis trouble should not take reports down.
		s.logger.Warn("reports cache key", slog.Any("error", err))
		key = "reports:" + name
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (interface{}, error) {
		result := s.group.DoChan(key, func() (interface{}, error) {
			return loader(ctx)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-result:
			return res.Val, res.Err
		}
	})
}

// TrialBalance derives the trial balance from current account balances.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	var tb TrialBalance
	err := s.cached(ctx, "trial-balance", &tb, func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.AccountBalances(ctx)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances, s.now()), nil
	})
	return tb, err
}

// IncomeStatement derives the income statement. The period bounds are
// echoed on the report; the underlying figures are running balances.
func (s *Service) IncomeStatement(ctx context.Context, from, to time.Time) (IncomeStatement, error) {
	var is IncomeStatement
	err := s.cached(ctx, "income-statement", &is, func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.AccountBalances(ctx)
		if err != nil {
			return nil, err
		}
		return BuildIncomeStatement(balances, from, to, s.now()), nil
	})
	if err != nil {
		return IncomeStatement{}, err
	}
	is.From, is.To = from, to
	return is, nil
}

// BalanceSheet derives the balance sheet as of now.
func (s *Service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	var bs BalanceSheet
	err := s.cached(ctx, "balance-sheet", &bs, func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.AccountBalances(ctx)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances, s.now()), nil
	})
	return bs, err
}

// Dashboard aggregates the landing-page stats. The balance-derived totals
// and the snapshot queries build concurrently.
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	err := s.cached(ctx, "dashboard", &stats, func(ctx context.Context) (interface{}, error) {
		return s.buildDashboard(ctx)
	})
	return stats, err
}

func (s *Service) buildDashboard(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{GeneratedAt: s.now()}

	var (
		rows     DashboardRows
		balances []AccountBalance
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.DashboardData(ctx, 10, 6)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = s.repo.AccountBalances(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	is := BuildIncomeStatement(balances, time.Time{}, time.Time{}, stats.GeneratedAt)
	stats.TotalRevenue = is.TotalRevenue
	stats.TotalExpense = is.TotalExpense
	stats.NetIncome = is.NetIncome
	stats.CashTotal = cashTotal(balances)
	stats.ReceivableTotal = rows.ReceivableTotal
	stats.PayableTotal = rows.PayableTotal
	stats.RecentEntries = rows.RecentEntries
	stats.MonthlyPostings = rows.MonthlyPostings
	return stats, nil
}
