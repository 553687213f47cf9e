package sales_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger/ledgertest"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/products"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/sales"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memSalesRepo layers invoice and product state over the in-memory ledger.
type memSalesRepo struct {
	*ledgertest.MemoryStore
	products  map[int64]*products.Product
	invoices  map[int64]*sales.Invoice
	items     map[int64][]sales.InvoiceItem
	movements []products.StockMovement

	nextProductID int64
	nextInvoiceID int64
	nextItemID    int64
	nextNumber    int64
}

func newMemSalesRepo() *memSalesRepo {
	return &memSalesRepo{
		MemoryStore: ledgertest.NewMemoryStore(),
		products:    make(map[int64]*products.Product),
		invoices:    make(map[int64]*sales.Invoice),
		items:       make(map[int64][]sales.InvoiceItem),
	}
}

func (r *memSalesRepo) seedProduct(code string, price, cost, onHand string) products.Product {
	r.nextProductID++
	p := products.Product{
		ID:             r.nextProductID,
		Code:           code,
		Name:           code,
		UnitPrice:      dec(price),
		UnitCost:       dec(cost),
		QuantityOnHand: dec(onHand),
		Active:         true,
	}
	r.products[p.ID] = &p
	return p
}

func (r *memSalesRepo) WithTx(ctx context.Context, fn func(context.Context, sales.TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memSalesRepo) GetProductForUpdate(ctx context.Context, id int64) (products.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return products.Product{}, products.ErrProductNotFound
	}
	return *p, nil
}

func (r *memSalesRepo) UpdateProductQuantity(ctx context.Context, id int64, qty decimal.Decimal) error {
	p, ok := r.products[id]
	if !ok {
		return products.ErrProductNotFound
	}
	p.QuantityOnHand = qty
	return nil
}

func (r *memSalesRepo) InsertStockMovement(ctx context.Context, m products.StockMovement) (products.StockMovement, error) {
	m.ID = int64(len(r.movements) + 1)
	r.movements = append(r.movements, m)
	return m, nil
}

func (r *memSalesRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (sales.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return sales.Invoice{}, sales.ErrInvoiceNotFound
	}
	out := *inv
	out.Items = append([]sales.InvoiceItem(nil), r.items[id]...)
	return out, nil
}

func (r *memSalesRepo) InsertInvoice(ctx context.Context, inv sales.Invoice) (sales.Invoice, error) {
	for _, existing := range r.invoices {
		if existing.Number == inv.Number {
			return sales.Invoice{}, sales.ErrDuplicateNumber
		}
	}
	r.nextInvoiceID++
	inv.ID = r.nextInvoiceID
	inv.CreatedAt = time.Now()
	stored := inv
	stored.Items = nil
	r.invoices[inv.ID] = &stored
	return inv, nil
}

func (r *memSalesRepo) ReplaceItems(ctx context.Context, invoiceID int64, items []sales.InvoiceItem) ([]sales.InvoiceItem, error) {
	out := make([]sales.InvoiceItem, 0, len(items))
	for _, it := range items {
		r.nextItemID++
		it.ID = r.nextItemID
		it.InvoiceID = invoiceID
		out = append(out, it)
	}
	r.items[invoiceID] = out
	return out, nil
}

func (r *memSalesRepo) UpdateDraftHeader(ctx context.Context, inv sales.Invoice) error {
	current, ok := r.invoices[inv.ID]
	if !ok || current.Status != sales.StatusDraft {
		return sales.ErrInvoiceNotFound
	}
	current.Number = inv.Number
	current.Date = inv.Date
	current.CustomerID = inv.CustomerID
	current.TaxRate = inv.TaxRate
	current.Subtotal = inv.Subtotal
	current.TaxAmount = inv.TaxAmount
	current.Total = inv.Total
	current.TotalCost = inv.TotalCost
	return nil
}

func (r *memSalesRepo) MarkPosted(ctx context.Context, id int64, revenueEntryID, costEntryID *int64, postedAt time.Time) error {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != sales.StatusDraft {
		return sales.ErrInvoiceNotFound
	}
	inv.Status = sales.StatusPosted
	inv.RevenueEntryID = revenueEntryID
	inv.CostEntryID = costEntryID
	inv.PostedAt = &postedAt
	return nil
}

func (r *memSalesRepo) DeleteInvoiceRows(ctx context.Context, id int64) error {
	if _, ok := r.invoices[id]; !ok {
		return sales.ErrInvoiceNotFound
	}
	delete(r.invoices, id)
	delete(r.items, id)
	return nil
}

func (r *memSalesRepo) NextInvoiceNumber(ctx context.Context) (string, error) {
	r.nextNumber++
	return fmt.Sprintf("INV-%06d", r.nextNumber), nil
}

func (r *memSalesRepo) Get(ctx context.Context, id int64) (sales.Invoice, error) {
	return r.GetInvoiceForUpdate(ctx, id)
}

func (r *memSalesRepo) List(ctx context.Context, limit int) ([]sales.Invoice, error) {
	out := make([]sales.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func newSalesService(repo *memSalesRepo) *sales.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	maint := ledger.NewMaintainer()
	return sales.NewService(repo, ledger.NewPoster(maint), maint, dec("0.15"), logger)
}

func seedCustomer(repo *memSalesRepo) ledger.PartnerRef {
	account := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	return repo.SeedPartner(ledger.PartnerCustomer, account.ID, decimal.Zero)
}

func TestPostInvoiceFullWorkflow(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	product := repo.seedProduct("P001", "15.00", "10.00", "5")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	require.Equal(t, sales.StatusDraft, draft.Status)
	require.True(t, draft.Subtotal.Equal(dec("30.00")), "subtotal %s", draft.Subtotal)
	require.True(t, draft.TaxAmount.Equal(dec("4.50")))
	require.True(t, draft.Total.Equal(dec("34.50")))
	require.True(t, draft.TotalCost.Equal(dec("20.00")))

	posted, err := svc.Post(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, sales.StatusPosted, posted.Status)
	require.NotNil(t, posted.RevenueEntryID)
	require.NotNil(t, posted.CostEntryID)
	require.NotNil(t, posted.PostedAt)

	// Stock deducted with an append-only OUT movement snapshot.
	require.True(t, repo.products[product.ID].QuantityOnHand.Equal(dec("3")))
	require.Len(t, repo.movements, 1)
	move := repo.movements[0]
	require.Equal(t, products.MovementOut, move.Type)
	require.True(t, move.Quantity.Equal(dec("-2")))
	require.True(t, move.QuantityBefore.Equal(dec("5")))
	require.True(t, move.QuantityAfter.Equal(dec("3")))

	// Customer mirror and linked account moved together.
	require.True(t, repo.Partners[customer.ID].Balance.Equal(dec("34.50")))
	require.True(t, repo.Accounts[customer.AccountID].Balance.Equal(dec("34.50")))

	// Revenue entry: total debit 34.50 against revenue 30.00 + VAT 4.50.
	revenue, err := repo.GetEntryWithLines(ctx, *posted.RevenueEntryID)
	require.NoError(t, err)
	require.True(t, revenue.TotalDebit.Equal(revenue.TotalCredit))
	require.True(t, revenue.TotalDebit.Equal(dec("34.50")))
	require.Len(t, revenue.Lines, 3)

	cost, err := repo.GetEntryWithLines(ctx, *posted.CostEntryID)
	require.NoError(t, err)
	require.True(t, cost.TotalDebit.Equal(dec("20.00")))

	// System accounts were created on first use.
	revAcc, err := repo.GetAccountByCode(ctx, ledger.SystemSalesRevenue.Code)
	require.NoError(t, err)
	require.True(t, revAcc.Balance.Equal(dec("-30.00")))
	vatAcc, err := repo.GetAccountByCode(ctx, ledger.SystemVATPayable.Code)
	require.NoError(t, err)
	require.True(t, vatAcc.Balance.Equal(dec("-4.50")))
}

func TestPostInvoiceTwiceFails(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	product := repo.seedProduct("P001", "15.00", "10.00", "5")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	qtyAfter := repo.products[product.ID].QuantityOnHand
	balanceAfter := repo.Partners[customer.ID].Balance
	entriesAfter := len(repo.Entries)
	movesAfter := len(repo.movements)

	_, err = svc.Post(ctx, draft.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Contains(t, err.Error(), "already posted")

	// State identical to after the first posting.
	require.True(t, repo.products[product.ID].QuantityOnHand.Equal(qtyAfter))
	require.True(t, repo.Partners[customer.ID].Balance.Equal(balanceAfter))
	require.Len(t, repo.Entries, entriesAfter)
	require.Len(t, repo.movements, movesAfter)
}

func TestPostInsufficientStockFailsWhole(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	plenty := repo.seedProduct("P001", "15.00", "10.00", "100")
	scarce := repo.seedProduct("P002", "9.00", "5.00", "1")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items: []sales.ItemInput{
			{ProductID: plenty.ID, Quantity: dec("10")},
			{ProductID: scarce.ID, Quantity: dec("3")},
		},
	})
	require.NoError(t, err)

	_, err = svc.Post(ctx, draft.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "P002")
	require.Contains(t, err.Error(), "1 on hand")
	require.Contains(t, err.Error(), "3 requested")

	// No partial deduction: even the sufficient line stays untouched.
	require.True(t, repo.products[plenty.ID].QuantityOnHand.Equal(dec("100")))
	require.True(t, repo.products[scarce.ID].QuantityOnHand.Equal(dec("1")))
	require.Empty(t, repo.movements)
	require.Empty(t, repo.Entries)
	require.True(t, repo.Partners[customer.ID].Balance.IsZero())
	require.Equal(t, sales.StatusDraft, repo.invoices[draft.ID].Status)
}

func TestUpdatePostedInvoiceRejected(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	product := repo.seedProduct("P001", "15.00", "10.00", "5")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, draft.ID, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("2")}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Contains(t, err.Error(), "cannot modify a posted document")
}

func TestDeletePostedInvoiceUnwindsEverything(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	product := repo.seedProduct("P001", "15.00", "10.00", "5")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, draft.ID))

	require.NotContains(t, repo.invoices, draft.ID)
	require.Empty(t, repo.Entries, "both entries reversed and removed")
	require.True(t, repo.products[product.ID].QuantityOnHand.Equal(dec("5")))
	require.True(t, repo.Partners[customer.ID].Balance.IsZero())
	require.True(t, repo.Accounts[customer.AccountID].Balance.IsZero())

	// The compensating movement is appended, not edited in place.
	require.Len(t, repo.movements, 2)
	require.Equal(t, products.MovementIn, repo.movements[1].Type)
	require.True(t, repo.movements[1].Quantity.Equal(dec("2")))
}

func TestDeleteDraftIsPlainRowDelete(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	product := repo.seedProduct("P001", "15.00", "10.00", "5")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, draft.ID))
	require.NotContains(t, repo.invoices, draft.ID)
	require.Empty(t, repo.Entries)
	require.Empty(t, repo.movements)
}

func TestDeletePostedDetectsDriftedCustomerBalance(t *testing.T) {
	repo := newMemSalesRepo()
	svc := newSalesService(repo)
	ctx := context.Background()
	customer := seedCustomer(repo)
	product := repo.seedProduct("P001", "15.00", "10.00", "5")

	draft, err := svc.CreateDraft(ctx, sales.InvoiceInput{
		CustomerID: customer.ID,
		Items:      []sales.ItemInput{{ProductID: product.ID, Quantity: dec("2")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	// Simulate outside interference dragging the mirror below the total.
	repo.Partners[customer.ID].Balance = dec("10.00")

	err = svc.Delete(ctx, draft.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "needs review")
	require.Contains(t, repo.invoices, draft.ID)
}
