package sales

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/products"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// RepositoryPort abstracts the repository for the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, limit int) ([]Invoice, error)
}

// Service owns the sales invoice lifecycle: draft bookkeeping plus the
// posting workflow that turns a draft into immutable ledger entries.
type Service struct {
	repo     RepositoryPort
	poster   *ledger.Poster
	balances *ledger.Maintainer
	taxRate  decimal.Decimal
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service. taxRate is the default VAT rate applied when
// a draft does not carry its own.
func NewService(repo RepositoryPort, poster *ledger.Poster, balances *ledger.Maintainer, taxRate decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{repo: repo, poster: poster, balances: balances, taxRate: taxRate, logger: logger, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) validateInput(in InvoiceInput) error {
	if in.CustomerID == 0 {
		return shared.Validationf("customer is required")
	}
	if len(in.Items) == 0 {
		return shared.Validationf("invoice requires at least one item")
	}
	for _, item := range in.Items {
		if item.ProductID == 0 {
			return shared.Validationf("item product is required")
		}
		if !item.Quantity.IsPositive() {
			return shared.Validationf("item quantity must be positive")
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return shared.Validationf("item unit price must not be negative")
		}
	}
	if in.TaxRate.IsNegative() {
		return shared.Validationf("tax rate must not be negative")
	}
	return nil
}

// captureItems reloads each product inside the transaction and snapshots
// its price and current weighted cost onto the invoice items.
func captureItems(ctx context.Context, tx TxRepository, inputs []ItemInput) ([]InvoiceItem, error) {
	items := make([]InvoiceItem, 0, len(inputs))
	for _, in := range inputs {
		product, err := tx.GetProductForUpdate(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		price := product.UnitPrice
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		items = append(items, InvoiceItem{
			ProductID: product.ID,
			Quantity:  in.Quantity,
			UnitPrice: price,
			UnitCost:  product.UnitCost,
		})
	}
	return items, nil
}

func (s *Service) ensureCustomer(ctx context.Context, tx TxRepository, id int64) (ledger.PartnerRef, error) {
	partner, err := tx.GetPartnerForUpdate(ctx, id)
	if err != nil {
		return ledger.PartnerRef{}, err
	}
	if partner.Kind != ledger.PartnerCustomer {
		return ledger.PartnerRef{}, shared.Validationf("partner %d is not a customer", id)
	}
	return partner, nil
}

// CreateDraft creates a draft invoice, capturing product prices and costs
// at creation time.
func (s *Service) CreateDraft(ctx context.Context, in InvoiceInput) (Invoice, error) {
	if err := s.validateInput(in); err != nil {
		return Invoice{}, err
	}
	var created Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.ensureCustomer(ctx, tx, in.CustomerID); err != nil {
			return err
		}
		items, err := captureItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		number := in.Number
		if number == "" {
			if number, err = tx.NextInvoiceNumber(ctx); err != nil {
				return err
			}
		}
		date := in.Date
		if date.IsZero() {
			date = s.now()
		}
		taxRate := in.TaxRate
		if taxRate.IsZero() {
			taxRate = s.taxRate
		}
		inv := Invoice{
			Ref:        uuid.New(),
			Number:     number,
			Date:       date,
			CustomerID: in.CustomerID,
			TaxRate:    taxRate,
			Status:     StatusDraft,
			Items:      items,
		}
		computeTotals(&inv)
		if created, err = tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		created.Items, err = tx.ReplaceItems(ctx, created.ID, items)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	return created, nil
}

// UpdateDraft replaces a draft's header and items. Posted invoices are
// immutable.
func (s *Service) UpdateDraft(ctx context.Context, id int64, in InvoiceInput) (Invoice, error) {
	if err := s.validateInput(in); err != nil {
		return Invoice{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.InvalidStatef("cannot modify a posted document")
		}
		if _, err := s.ensureCustomer(ctx, tx, in.CustomerID); err != nil {
			return err
		}
		items, err := captureItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		number := in.Number
		if number == "" {
			number = current.Number
		}
		date := in.Date
		if date.IsZero() {
			date = current.Date
		}
		taxRate := in.TaxRate
		if taxRate.IsZero() {
			taxRate = current.TaxRate
		}
		next := Invoice{
			ID:         id,
			Number:     number,
			Date:       date,
			CustomerID: in.CustomerID,
			TaxRate:    taxRate,
			Items:      items,
		}
		computeTotals(&next)
		if err := tx.UpdateDraftHeader(ctx, next); err != nil {
			return err
		}
		_, err = tx.ReplaceItems(ctx, id, items)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.Get(ctx, id)
}

// Post turns a draft invoice into ledger state: a revenue entry, a cost
// entry, stock deductions with movement snapshots and the customer balance
// increase, all in one transaction. Any failure rolls everything back.
func (s *Service) Post(ctx context.Context, id int64) (Invoice, error) {
	var posted Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return shared.InvalidStatef("invoice %s already posted", inv.Number)
		}
		customer, err := s.ensureCustomer(ctx, tx, inv.CustomerID)
		if err != nil {
			return err
		}

		// Stock check for every line before any deduction; a shortfall on
		// any item fails the whole posting.
		loaded := make([]products.Product, len(inv.Items))
		for i, item := range inv.Items {
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.QuantityOnHand.LessThan(item.Quantity) {
				return shared.Validationf("insufficient stock for %s: %s on hand, %s requested",
					product.Code, product.QuantityOnHand.String(), item.Quantity.String())
			}
			loaded[i] = product
		}

		revenueAcc, err := ledger.GetOrCreateSystemAccount(ctx, tx, ledger.SystemSalesRevenue)
		if err != nil {
			return err
		}
		vatAcc, err := ledger.GetOrCreateSystemAccount(ctx, tx, ledger.SystemVATPayable)
		if err != nil {
			return err
		}
		cogsAcc, err := ledger.GetOrCreateSystemAccount(ctx, tx, ledger.SystemCOGS)
		if err != nil {
			return err
		}
		inventoryAcc, err := ledger.GetOrCreateSystemAccount(ctx, tx, ledger.SystemInventory)
		if err != nil {
			return err
		}

		// Revenue entry: debit the receivable for the tax-inclusive total,
		// credit revenue and VAT. Balanced by construction.
		revenueLines := []ledger.PostingLine{
			{AccountID: customer.AccountID, Debit: inv.Total, Description: "Invoice " + inv.Number},
			{AccountID: revenueAcc.ID, Credit: inv.Subtotal, Description: "Invoice " + inv.Number},
		}
		if inv.TaxAmount.IsPositive() {
			revenueLines = append(revenueLines, ledger.PostingLine{
				AccountID: vatAcc.ID, Credit: inv.TaxAmount, Description: "VAT " + inv.Number,
			})
		}
		revenueEntry, err := s.poster.Post(ctx, tx, ledger.PostingInput{
			Date:         inv.Date,
			Description:  "Sales invoice " + inv.Number,
			SourceModule: "SALES_INVOICE",
			SourceID:     inv.Ref,
			Lines:        revenueLines,
		})
		if err != nil {
			return err
		}

		// Cost entry, skipped for zero-cost invoices.
		var costEntryID *int64
		if inv.TotalCost.IsPositive() {
			costEntry, err := s.poster.Post(ctx, tx, ledger.PostingInput{
				Date:         inv.Date,
				Description:  "Cost of goods " + inv.Number,
				SourceModule: "SALES_INVOICE_COGS",
				SourceID:     inv.Ref,
				Lines: []ledger.PostingLine{
					{AccountID: cogsAcc.ID, Debit: inv.TotalCost, Description: "COGS " + inv.Number},
					{AccountID: inventoryAcc.ID, Credit: inv.TotalCost, Description: "COGS " + inv.Number},
				},
			})
			if err != nil {
				return err
			}
			costEntryID = &costEntry.ID
		}

		now := s.now()
		for i, item := range inv.Items {
			before := loaded[i].QuantityOnHand
			after := before.Sub(item.Quantity)
			if err := tx.UpdateProductQuantity(ctx, item.ProductID, after); err != nil {
				return err
			}
			if _, err := tx.InsertStockMovement(ctx, products.StockMovement{
				ProductID:      item.ProductID,
				Type:           products.MovementOut,
				ReferenceKind:  "SALES_INVOICE",
				ReferenceID:    inv.ID,
				Quantity:       item.Quantity.Neg(),
				QuantityBefore: before,
				QuantityAfter:  after,
				MovedAt:        now,
			}); err != nil {
				return err
			}
		}

		// The revenue line already debited the linked account; mirror the
		// same delta onto the customer's current balance.
		if _, err := s.balances.MirrorPartnerDelta(ctx, tx, inv.CustomerID, inv.Total); err != nil {
			return err
		}

		if err := tx.MarkPosted(ctx, inv.ID, &revenueEntry.ID, costEntryID, now); err != nil {
			return err
		}
		posted = inv
		posted.Status = StatusPosted
		posted.RevenueEntryID = &revenueEntry.ID
		posted.CostEntryID = costEntryID
		posted.PostedAt = &now
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.Info("sales invoice posted",
		slog.String("number", posted.Number),
		slog.String("total", posted.Total.StringFixed(2)))
	return posted, nil
}

// Delete removes an invoice. Drafts are a plain row delete; a posted
// invoice is unwound completely: both entries reversed, stock restored
// with compensating movements, customer balance decreased, rows removed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusDraft {
			return tx.DeleteInvoiceRows(ctx, id)
		}

		customer, err := tx.GetPartnerForUpdate(ctx, inv.CustomerID)
		if err != nil {
			return err
		}
		// The mirror balance should still carry this invoice; if it has
		// already gone below the invoice total something else moved it and
		// silent clamping would hide the inconsistency.
		if customer.Balance.LessThan(inv.Total) {
			return shared.Conflictf("customer balance %s is below invoice total %s; ledger needs review before deletion",
				customer.Balance.StringFixed(2), inv.Total.StringFixed(2))
		}

		if inv.RevenueEntryID != nil {
			if err := s.poster.Reverse(ctx, tx, *inv.RevenueEntryID); err != nil {
				return err
			}
		}
		if inv.CostEntryID != nil {
			if err := s.poster.Reverse(ctx, tx, *inv.CostEntryID); err != nil {
				return err
			}
		}

		now := s.now()
		for _, item := range inv.Items {
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			before := product.QuantityOnHand
			after := before.Add(item.Quantity)
			if err := tx.UpdateProductQuantity(ctx, item.ProductID, after); err != nil {
				return err
			}
			if _, err := tx.InsertStockMovement(ctx, products.StockMovement{
				ProductID:      item.ProductID,
				Type:           products.MovementIn,
				ReferenceKind:  "SALES_INVOICE_DELETE",
				ReferenceID:    inv.ID,
				Quantity:       item.Quantity,
				QuantityBefore: before,
				QuantityAfter:  after,
				MovedAt:        now,
			}); err != nil {
				return err
			}
		}

		if _, err := s.balances.MirrorPartnerDelta(ctx, tx, inv.CustomerID, inv.Total.Neg()); err != nil {
			return err
		}
		return tx.DeleteInvoiceRows(ctx, id)
	})
}

// Get returns one invoice with items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent invoices.
func (s *Service) List(ctx context.Context, limit int) ([]Invoice, error) {
	return s.repo.List(ctx, limit)
}
