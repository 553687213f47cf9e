package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
)

// AccountBalance is the raw row every report derives from: one account and
// its running balance, stored debit-minus-credit.
type AccountBalance struct {
	AccountID int64              `json:"accountId"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Balance   decimal.Decimal    `json:"balance"`
}

// TrialBalanceRow places one account's balance in the debit or credit
// column, never both.
type TrialBalanceRow struct {
	AccountID int64              `json:"accountId"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Debit     decimal.Decimal    `json:"debit"`
	Credit    decimal.Decimal    `json:"credit"`
}

// TrialBalance lists every account with a nonzero balance and the column
// totals. Balanced is true when the totals agree, which the posting
// invariants guarantee; it is reported rather than assumed so drift is
// visible.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	Balanced    bool              `json:"balanced"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// ReportLine is one account's contribution to a statement section,
// reported as a positive magnitude.
type ReportLine struct {
	AccountID int64           `json:"accountId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// IncomeStatement opposes revenue and expenses. The period bounds label
// the report; the figures are the accounts' current running balances, not
// a per-period slice of entry lines.
type IncomeStatement struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Revenue      []ReportLine    `json:"revenue"`
	Expenses     []ReportLine    `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetIncome    decimal.Decimal `json:"netIncome"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// BalanceSheet partitions balances into assets, liabilities and equity as
// of now. Retained earnings carries the net income of the revenue and
// expense accounts so both sides agree.
type BalanceSheet struct {
	AsOf             time.Time       `json:"asOf"`
	Assets           []ReportLine    `json:"assets"`
	Liabilities      []ReportLine    `json:"liabilities"`
	Equity           []ReportLine    `json:"equity"`
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	TotalEquity      decimal.Decimal `json:"totalEquity"`
	RetainedEarnings decimal.Decimal `json:"retainedEarnings"`
	Balanced         bool            `json:"balanced"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

// MonthlyPosting is one month's posted entry volume.
type MonthlyPosting struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// DashboardStats is the landing-page summary.
type DashboardStats struct {
	CashTotal       decimal.Decimal       `json:"cashTotal"`
	ReceivableTotal decimal.Decimal       `json:"receivableTotal"`
	PayableTotal    decimal.Decimal       `json:"payableTotal"`
	TotalRevenue    decimal.Decimal       `json:"totalRevenue"`
	TotalExpense    decimal.Decimal       `json:"totalExpense"`
	NetIncome       decimal.Decimal       `json:"netIncome"`
	RecentEntries   []ledger.JournalEntry `json:"recentEntries"`
	MonthlyPostings []MonthlyPosting      `json:"monthlyPostings"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// BuildTrialBalance splits each nonzero balance into the debit column
// (positive) or the credit column (negative, reported as magnitude) and
// totals both, ordered by account code.
func BuildTrialBalance(balances []AccountBalance, now time.Time) TrialBalance {
	sorted := append([]AccountBalance(nil), balances...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	tb := TrialBalance{GeneratedAt: now, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, b := range sorted {
		if b.Balance.IsZero() {
			continue
		}
		row := TrialBalanceRow{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Type: b.Type,
			Debit: decimal.Zero, Credit: decimal.Zero}
		if b.Balance.IsPositive() {
			row.Debit = b.Balance
			tb.TotalDebit = tb.TotalDebit.Add(b.Balance)
		} else {
			row.Credit = b.Balance.Neg()
			tb.TotalCredit = tb.TotalCredit.Add(b.Balance.Neg())
		}
		tb.Rows = append(tb.Rows, row)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb
}

// BuildIncomeStatement opposes the revenue accounts (credit balances,
// reported as positive magnitudes) against the expense accounts.
func BuildIncomeStatement(balances []AccountBalance, from, to, now time.Time) IncomeStatement {
	is := IncomeStatement{From: from, To: to, GeneratedAt: now,
		TotalRevenue: decimal.Zero, TotalExpense: decimal.Zero}
	for _, b := range sortedByCode(balances) {
		switch b.Type {
		case ledger.AccountTypeRevenue:
			amount := b.Balance.Neg()
			is.Revenue = append(is.Revenue, line(b, amount))
			is.TotalRevenue = is.TotalRevenue.Add(amount)
		case ledger.AccountTypeExpense:
			is.Expenses = append(is.Expenses, line(b, b.Balance))
			is.TotalExpense = is.TotalExpense.Add(b.Balance)
		}
	}
	is.NetIncome = is.TotalRevenue.Sub(is.TotalExpense)
	return is
}

// BuildBalanceSheet partitions assets, liabilities and equity, folding the
// revenue and expense balances into retained earnings.
func BuildBalanceSheet(balances []AccountBalance, now time.Time) BalanceSheet {
	bs := BalanceSheet{AsOf: now, GeneratedAt: now,
		TotalAssets: decimal.Zero, TotalLiabilities: decimal.Zero,
		TotalEquity: decimal.Zero, RetainedEarnings: decimal.Zero}
	for _, b := range sortedByCode(balances) {
		switch b.Type {
		case ledger.AccountTypeAsset:
			bs.Assets = append(bs.Assets, line(b, b.Balance))
			bs.TotalAssets = bs.TotalAssets.Add(b.Balance)
		case ledger.AccountTypeLiability:
			amount := b.Balance.Neg()
			bs.Liabilities = append(bs.Liabilities, line(b, amount))
			bs.TotalLiabilities = bs.TotalLiabilities.Add(amount)
		case ledger.AccountTypeEquity:
			amount := b.Balance.Neg()
			bs.Equity = append(bs.Equity, line(b, amount))
			bs.TotalEquity = bs.TotalEquity.Add(amount)
		case ledger.AccountTypeRevenue:
			bs.RetainedEarnings = bs.RetainedEarnings.Add(b.Balance.Neg())
		case ledger.AccountTypeExpense:
			bs.RetainedEarnings = bs.RetainedEarnings.Sub(b.Balance)
		}
	}
	bs.Balanced = bs.TotalAssets.Equal(bs.TotalLiabilities.Add(bs.TotalEquity).Add(bs.RetainedEarnings))
	return bs
}

func sortedByCode(balances []AccountBalance) []AccountBalance {
	sorted := append([]AccountBalance(nil), balances...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	return sorted
}

func line(b AccountBalance, amount decimal.Decimal) ReportLine {
	return ReportLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: amount}
}

// cashTotal sums the asset accounts in the 11xx cash-and-bank range. The
// per-customer AR- accounts fall outside it and are excluded.
func cashTotal(balances []AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		if b.Type == ledger.AccountTypeAsset && strings.HasPrefix(b.Code, "11") {
			total = total.Add(b.Balance)
		}
	}
	return total
}
