package vouchers_test

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
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/sales"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/vouchers"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memVoucherRepo layers voucher state over the in-memory ledger.
type memVoucherRepo struct {
	*ledgertest.MemoryStore
	vouchers map[int64]*vouchers.Voucher
	allocs   map[int64][]vouchers.Allocation
	invoices map[int64]vouchers.InvoiceRef

	nextVoucherID int64
	nextAllocID   int64
	nextNumber    int64
}

func newMemVoucherRepo() *memVoucherRepo {
	return &memVoucherRepo{
		MemoryStore: ledgertest.NewMemoryStore(),
		vouchers:    make(map[int64]*vouchers.Voucher),
		allocs:      make(map[int64][]vouchers.Allocation),
		invoices:    make(map[int64]vouchers.InvoiceRef),
	}
}

func (r *memVoucherRepo) WithTx(ctx context.Context, fn func(context.Context, vouchers.TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memVoucherRepo) GetVoucherForUpdate(ctx context.Context, id int64) (vouchers.Voucher, error) {
	v, ok := r.vouchers[id]
	if !ok {
		return vouchers.Voucher{}, vouchers.ErrVoucherNotFound
	}
	out := *v
	out.Allocations = append([]vouchers.Allocation(nil), r.allocs[id]...)
	return out, nil
}

func (r *memVoucherRepo) InsertVoucher(ctx context.Context, v vouchers.Voucher) (vouchers.Voucher, error) {
	for _, existing := range r.vouchers {
		if existing.Number == v.Number {
			return vouchers.Voucher{}, vouchers.ErrDuplicateNumber
		}
	}
	r.nextVoucherID++
	v.ID = r.nextVoucherID
	v.CreatedAt = time.Now()
	stored := v
	stored.Allocations = nil
	r.vouchers[v.ID] = &stored
	return v, nil
}

func (r *memVoucherRepo) ReplaceAllocations(ctx context.Context, voucherID int64, allocs []vouchers.Allocation) ([]vouchers.Allocation, error) {
	out := make([]vouchers.Allocation, 0, len(allocs))
	for _, a := range allocs {
		r.nextAllocID++
		a.ID = r.nextAllocID
		a.VoucherID = voucherID
		out = append(out, a)
	}
	r.allocs[voucherID] = out
	return out, nil
}

func (r *memVoucherRepo) UpdateDraftHeader(ctx context.Context, v vouchers.Voucher) error {
	current, ok := r.vouchers[v.ID]
	if !ok || current.Status != vouchers.StatusDraft {
		return vouchers.ErrVoucherNotFound
	}
	current.Number = v.Number
	current.Date = v.Date
	current.PartnerID = v.PartnerID
	current.Amount = v.Amount
	current.Method = v.Method
	current.CheckNumber = v.CheckNumber
	current.CheckDate = v.CheckDate
	current.AccountID = v.AccountID
	return nil
}

func (r *memVoucherRepo) MarkPosted(ctx context.Context, id int64, entryID int64, postedAt time.Time) error {
	v, ok := r.vouchers[id]
	if !ok || v.Status != vouchers.StatusDraft {
		return vouchers.ErrVoucherNotFound
	}
	v.Status = vouchers.StatusPosted
	v.EntryID = &entryID
	v.PostedAt = &postedAt
	return nil
}

func (r *memVoucherRepo) DeleteVoucherRows(ctx context.Context, id int64) error {
	if _, ok := r.vouchers[id]; !ok {
		return vouchers.ErrVoucherNotFound
	}
	delete(r.vouchers, id)
	delete(r.allocs, id)
	return nil
}

func (r *memVoucherRepo) NextVoucherNumber(ctx context.Context, kind vouchers.Kind) (string, error) {
	r.nextNumber++
	prefix := "RV"
	if kind == vouchers.KindPayment {
		prefix = "PV"
	}
	return fmt.Sprintf("%s-%06d", prefix, r.nextNumber), nil
}

func (r *memVoucherRepo) GetAllocatableInvoice(ctx context.Context, invoiceID int64) (vouchers.InvoiceRef, error) {
	ref, ok := r.invoices[invoiceID]
	if !ok {
		return vouchers.InvoiceRef{}, sales.ErrInvoiceNotFound
	}
	return ref, nil
}

func (r *memVoucherRepo) Get(ctx context.Context, id int64) (vouchers.Voucher, error) {
	return r.GetVoucherForUpdate(ctx, id)
}

func (r *memVoucherRepo) List(ctx context.Context, kind vouchers.Kind, limit int) ([]vouchers.Voucher, error) {
	var out []vouchers.Voucher
	for _, v := range r.vouchers {
		if v.Kind == kind {
			out = append(out, *v)
		}
	}
	return out, nil
}

func newVoucherService(repo *memVoucherRepo) *vouchers.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	maint := ledger.NewMaintainer()
	return vouchers.NewService(repo, ledger.NewPoster(maint), maint, logger)
}

func seedCash(repo *memVoucherRepo) ledger.Account {
	return repo.SeedAccount("1100", "Cash", ledger.AccountTypeAsset)
}

func TestPostReceiptVoucher(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, dec("150.00"))
	repo.Accounts[arAccount.ID].Balance = dec("150.00")
	repo.invoices[7] = vouchers.InvoiceRef{ID: 7, Number: "INV-000007", CustomerID: customer.ID, Status: sales.StatusPosted, Total: dec("150.00")}

	draft, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("100.00"),
		Method:    vouchers.MethodCash,
		Allocations: []vouchers.AllocationInput{
			{InvoiceID: 7, Amount: dec("100.00")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, vouchers.StatusDraft, draft.Status)
	require.Equal(t, "RV-000001", draft.Number)
	require.Len(t, draft.Allocations, 1)

	posted, err := svc.Post(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, vouchers.StatusPosted, posted.Status)
	require.NotNil(t, posted.EntryID)

	// Cash up, receivable down, customer owes less.
	require.True(t, repo.Accounts[cash.ID].Balance.Equal(dec("100.00")))
	require.True(t, repo.Accounts[arAccount.ID].Balance.Equal(dec("50.00")))
	require.True(t, repo.Partners[customer.ID].Balance.Equal(dec("50.00")))

	entry, err := repo.GetEntryWithLines(ctx, *posted.EntryID)
	require.NoError(t, err)
	require.True(t, entry.TotalDebit.Equal(dec("100.00")))
	require.True(t, entry.TotalDebit.Equal(entry.TotalCredit))
	require.Len(t, entry.Lines, 2)
}

func TestPostPaymentVoucher(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	apAccount := repo.SeedAccount("AP-S001", "Payable - S001", ledger.AccountTypeLiability)
	supplier := repo.SeedPartner(ledger.PartnerSupplier, apAccount.ID, dec("200.00"))
	repo.Accounts[apAccount.ID].Balance = dec("-200.00")
	repo.Accounts[cash.ID].Balance = dec("500.00")

	draft, err := svc.Create(ctx, vouchers.KindPayment, vouchers.VoucherInput{
		PartnerID: supplier.ID,
		AccountID: cash.ID,
		Amount:    dec("80.00"),
		Method:    vouchers.MethodTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, "PV-000001", draft.Number)

	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	// Cash down, payable debited toward zero, supplier owed less.
	require.True(t, repo.Accounts[cash.ID].Balance.Equal(dec("420.00")))
	require.True(t, repo.Accounts[apAccount.ID].Balance.Equal(dec("-120.00")))
	require.True(t, repo.Partners[supplier.ID].Balance.Equal(dec("120.00")))
}

func TestPostVoucherTwiceFails(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, dec("100.00"))

	draft, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("40.00"),
		Method:    vouchers.MethodCash,
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	balance := repo.Partners[customer.ID].Balance
	entries := len(repo.Entries)

	_, err = svc.Post(ctx, draft.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.True(t, repo.Partners[customer.ID].Balance.Equal(balance))
	require.Len(t, repo.Entries, entries)
}

func TestVoucherValidation(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, decimal.Zero)

	base := vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("50.00"),
		Method:    vouchers.MethodCash,
	}

	cases := []struct {
		name   string
		mutate func(*vouchers.VoucherInput)
	}{
		{"zero amount", func(in *vouchers.VoucherInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *vouchers.VoucherInput) { in.Amount = dec("-5") }},
		{"unknown method", func(in *vouchers.VoucherInput) { in.Method = "WIRE" }},
		{"check without number", func(in *vouchers.VoucherInput) { in.Method = vouchers.MethodCheck }},
		{"no partner", func(in *vouchers.VoucherInput) { in.PartnerID = 0 }},
		{"no account", func(in *vouchers.VoucherInput) { in.AccountID = 0 }},
		{"allocations exceed amount", func(in *vouchers.VoucherInput) {
			in.Allocations = []vouchers.AllocationInput{{InvoiceID: 1, Amount: dec("60.00")}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := svc.Create(ctx, vouchers.KindReceipt, in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestPaymentVoucherAllocationsRejected(t *testing.T) {
	// Sales invoices belong to customers, so a supplier payment voucher
	// has nothing to allocate against. Both the create path and the
	// posting recheck must refuse, or a payment could carry allocations
	// against some unrelated customer's invoice.
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	apAccount := repo.SeedAccount("AP-S001", "Payable - S001", ledger.AccountTypeLiability)
	supplier := repo.SeedPartner(ledger.PartnerSupplier, apAccount.ID, dec("100.00"))
	repo.invoices[1] = vouchers.InvoiceRef{ID: 1, Number: "INV-000001", CustomerID: 999, Status: sales.StatusPosted, Total: dec("50.00")}

	_, err := svc.Create(ctx, vouchers.KindPayment, vouchers.VoucherInput{
		PartnerID:   supplier.ID,
		AccountID:   cash.ID,
		Amount:      dec("50.00"),
		Method:      vouchers.MethodCash,
		Allocations: []vouchers.AllocationInput{{InvoiceID: 1, Amount: dec("50.00")}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "cannot allocate")

	// A draft that acquired allocation rows anyway is still refused when
	// posting revalidates.
	repo.nextVoucherID++
	id := repo.nextVoucherID
	repo.vouchers[id] = &vouchers.Voucher{
		ID: id, Kind: vouchers.KindPayment, Number: "PV-000099",
		PartnerID: supplier.ID, Amount: dec("50.00"),
		Method: vouchers.MethodCash, AccountID: cash.ID,
		Status: vouchers.StatusDraft,
	}
	repo.allocs[id] = []vouchers.Allocation{{ID: 1, VoucherID: id, InvoiceID: 1, Amount: dec("50.00")}}

	_, err = svc.Post(ctx, id)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "cannot allocate")
	require.Equal(t, vouchers.StatusDraft, repo.vouchers[id].Status)
	require.Empty(t, repo.Entries)
	require.True(t, repo.Partners[supplier.ID].Balance.Equal(dec("100.00")))
}

func TestPostRechecksAllocations(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, dec("100.00"))
	otherAR := repo.SeedAccount("AR-C002", "Receivable - C002", ledger.AccountTypeAsset)
	other := repo.SeedPartner(ledger.PartnerCustomer, otherAR.ID, decimal.Zero)

	repo.invoices[1] = vouchers.InvoiceRef{ID: 1, Number: "INV-000001", CustomerID: other.ID, Status: sales.StatusPosted, Total: dec("30.00")}
	repo.invoices[2] = vouchers.InvoiceRef{ID: 2, Number: "INV-000002", CustomerID: customer.ID, Status: "DRAFT", Total: dec("30.00")}

	wrongCustomer, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID:   customer.ID,
		AccountID:   cash.ID,
		Amount:      dec("30.00"),
		Method:      vouchers.MethodCash,
		Allocations: []vouchers.AllocationInput{{InvoiceID: 1, Amount: dec("30.00")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, wrongCustomer.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "another customer")

	unposted, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID:   customer.ID,
		AccountID:   cash.ID,
		Amount:      dec("30.00"),
		Method:      vouchers.MethodCash,
		Allocations: []vouchers.AllocationInput{{InvoiceID: 2, Amount: dec("30.00")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, unposted.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "not posted")

	missing, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID:   customer.ID,
		AccountID:   cash.ID,
		Amount:      dec("30.00"),
		Method:      vouchers.MethodCash,
		Allocations: []vouchers.AllocationInput{{InvoiceID: 99, Amount: dec("30.00")}},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, missing.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.Empty(t, repo.Entries, "no failed posting may leave an entry behind")
}

func TestSameInvoiceAllocatableByManyVouchers(t *testing.T) {
	// Allocation is advisory: nothing tracks an invoice's remaining
	// balance, so two vouchers may both allocate the full invoice total.
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, dec("200.00"))
	repo.invoices[1] = vouchers.InvoiceRef{ID: 1, Number: "INV-000001", CustomerID: customer.ID, Status: sales.StatusPosted, Total: dec("100.00")}

	for i := 0; i < 2; i++ {
		v, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
			PartnerID:   customer.ID,
			AccountID:   cash.ID,
			Amount:      dec("100.00"),
			Method:      vouchers.MethodCash,
			Allocations: []vouchers.AllocationInput{{InvoiceID: 1, Amount: dec("100.00")}},
		})
		require.NoError(t, err)
		_, err = svc.Post(ctx, v.ID)
		require.NoError(t, err)
	}
	require.True(t, repo.Partners[customer.ID].Balance.IsZero())
}

func TestDeleteVoucherDraftOnly(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, dec("50.00"))

	draft, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("50.00"),
		Method:    vouchers.MethodCash,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, draft.ID))
	require.NotContains(t, repo.vouchers, draft.ID)

	posted, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("50.00"),
		Method:    vouchers.MethodCash,
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, posted.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, posted.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Contains(t, repo.vouchers, posted.ID)
}

func TestUpdateVoucherDraftOnly(t *testing.T) {
	repo := newMemVoucherRepo()
	svc := newVoucherService(repo)
	ctx := context.Background()
	cash := seedCash(repo)
	arAccount := repo.SeedAccount("AR-C001", "Receivable - C001", ledger.AccountTypeAsset)
	customer := repo.SeedPartner(ledger.PartnerCustomer, arAccount.ID, dec("50.00"))

	draft, err := svc.Create(ctx, vouchers.KindReceipt, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("50.00"),
		Method:    vouchers.MethodCash,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, draft.ID, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("25.00"),
		Method:    vouchers.MethodTransfer,
	})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(dec("25.00")))
	require.Equal(t, vouchers.MethodTransfer, updated.Method)

	_, err = svc.Post(ctx, draft.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, draft.ID, vouchers.VoucherInput{
		PartnerID: customer.ID,
		AccountID: cash.ID,
		Amount:    dec("10.00"),
		Method:    vouchers.MethodCash,
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
