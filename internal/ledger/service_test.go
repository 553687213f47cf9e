package ledger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger/ledgertest"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

func newService(store *ledgertest.MemoryStore) *ledger.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ledger.NewService(store, ledger.NewPoster(ledger.NewMaintainer()), logger)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := newService(ledgertest.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, ledger.AccountInput{Name: "No code", Type: ledger.AccountTypeAsset})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateAccount(ctx, ledger.AccountInput{Code: "1001", Name: "Cash", Type: "WEIRD"})
	require.ErrorIs(t, err, shared.ErrValidation)

	account, err := svc.CreateAccount(ctx, ledger.AccountInput{Code: "1001", Name: "Cash", Type: ledger.AccountTypeAsset, Active: true})
	require.NoError(t, err)
	require.True(t, account.Balance.IsZero())

	_, err = svc.CreateAccount(ctx, ledger.AccountInput{Code: "1001", Name: "Other", Type: ledger.AccountTypeAsset})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteAccountGuards(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	svc := newService(store)
	ctx := context.Background()

	funded := store.SeedAccount("1001", "Cash", ledger.AccountTypeAsset)
	store.Accounts[funded.ID].Balance = decimal.RequireFromString("12.34")
	err := svc.DeleteAccount(ctx, funded.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "12.34")
	require.Contains(t, store.Accounts, funded.ID)

	linked := store.SeedAccount("1200", "AR-C001", ledger.AccountTypeAsset)
	store.SeedPartner(ledger.PartnerCustomer, linked.ID, decimal.Zero)
	err = svc.DeleteAccount(ctx, linked.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	free := store.SeedAccount("9999", "Scratch", ledger.AccountTypeExpense)
	require.NoError(t, svc.DeleteAccount(ctx, free.ID))
	require.NotContains(t, store.Accounts, free.ID)
}

func TestUpdateAccountNeverTouchesBalance(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	svc := newService(store)
	account := store.SeedAccount("1001", "Cash", ledger.AccountTypeAsset)
	store.Accounts[account.ID].Balance = decimal.RequireFromString("55.00")

	updated, err := svc.UpdateAccount(context.Background(), account.ID, ledger.AccountInput{
		Code: account.Code, Name: "Cash on Hand", Type: ledger.AccountTypeAsset, Active: false,
	})
	require.NoError(t, err)
	require.Equal(t, "Cash on Hand", updated.Name)
	require.False(t, updated.Active)
	require.True(t, updated.Balance.Equal(decimal.RequireFromString("55.00")))
}

func TestUpdateAccountKeepsParent(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	svc := newService(store)
	parent := store.SeedAccount("1000", "Assets", ledger.AccountTypeAsset)
	child := store.SeedAccount("1100", "Cash", ledger.AccountTypeAsset)
	store.Accounts[child.ID].ParentID = &parent.ID

	updated, err := svc.UpdateAccount(context.Background(), child.ID, ledger.AccountInput{
		Code: child.Code, Name: "Cash on Hand", Type: ledger.AccountTypeAsset, Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, "Cash on Hand", updated.Name)
	// Hierarchy placement is set at creation and not rewritten by updates.
	require.NotNil(t, updated.ParentID)
	require.Equal(t, parent.ID, *updated.ParentID)
}

func TestManualEntryLifecycle(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	svc := newService(store)
	ctx := context.Background()
	cash := store.SeedAccount("1001", "Cash", ledger.AccountTypeAsset)
	equity := store.SeedAccount("3001", "Owner Equity", ledger.AccountTypeEquity)

	entry, err := svc.PostManualEntry(ctx, ledger.PostingInput{
		Description: "capital injection",
		Lines: []ledger.PostingLine{
			{AccountID: cash.ID, Debit: decimal.RequireFromString("500.00")},
			{AccountID: equity.ID, Credit: decimal.RequireFromString("500.00")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "MANUAL", entry.SourceModule)
	require.True(t, store.Accounts[equity.ID].Balance.Equal(decimal.RequireFromString("-500.00")))

	require.NoError(t, svc.DeleteEntry(ctx, entry.ID))
	require.True(t, store.Accounts[cash.ID].Balance.IsZero())
	require.True(t, store.Accounts[equity.ID].Balance.IsZero())
}

func TestDeleteEntryRefusesDocumentEntries(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	svc := newService(store)
	ctx := context.Background()
	cash := store.SeedAccount("1001", "Cash", ledger.AccountTypeAsset)
	revenue := store.SeedAccount("4100", "Sales Revenue", ledger.AccountTypeRevenue)

	poster := ledger.NewPoster(ledger.NewMaintainer())
	var entry ledger.JournalEntry
	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		entry, err = poster.Post(ctx, tx, ledger.PostingInput{
			SourceModule: "SALES_INVOICE",
			Lines: []ledger.PostingLine{
				{AccountID: cash.ID, Debit: decimal.RequireFromString("10.00")},
				{AccountID: revenue.ID, Credit: decimal.RequireFromString("10.00")},
			},
		})
		return err
	})
	require.NoError(t, err)

	err = svc.DeleteEntry(ctx, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Contains(t, store.Entries, entry.ID)
}

func TestGetOrCreateSystemAccountIdempotent(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	ctx := context.Background()

	var first, second ledger.Account
	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		if first, err = ledger.GetOrCreateSystemAccount(ctx, tx, ledger.SystemSalesRevenue); err != nil {
			return err
		}
		second, err = ledger.GetOrCreateSystemAccount(ctx, tx, ledger.SystemSalesRevenue)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, ledger.AccountTypeRevenue, first.Type)
	require.Len(t, store.Accounts, 1)
}

func TestPartnerDeltaMovesBothSides(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	linked := store.SeedAccount("2100", "AP-S001", ledger.AccountTypeLiability)
	supplier := store.SeedPartner(ledger.PartnerSupplier, linked.ID, decimal.Zero)
	maint := ledger.NewMaintainer()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return maint.ApplyPartnerDelta(ctx, tx, supplier.ID, decimal.RequireFromString("80.00"))
	})
	require.NoError(t, err)
	// We owe the supplier 80; the liability account stores it credit-negative.
	require.True(t, store.Partners[supplier.ID].Balance.Equal(decimal.RequireFromString("80.00")))
	require.True(t, store.Accounts[linked.ID].Balance.Equal(decimal.RequireFromString("-80.00")))
}
