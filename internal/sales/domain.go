package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// InvoiceStatus is the two-state document lifecycle. A draft is editable
// and deletable; a posted invoice is immutable and only leaves the system
// through the full reversal path.
type InvoiceStatus string

const (
	StatusDraft  InvoiceStatus = "DRAFT"
	StatusPosted InvoiceStatus = "POSTED"
)

var (
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = fmt.Errorf("%w: sales invoice", shared.ErrNotFound)
	// ErrDuplicateNumber indicates an invoice number collision.
	ErrDuplicateNumber = fmt.Errorf("%w: invoice number already used", shared.ErrConflict)
)

// Invoice is a sales invoice. Item prices and costs are captured from the
// product at creation time; totals are derived then and never recomputed
// after posting.
type Invoice struct {
	ID             int64           `json:"id"`
	Ref            uuid.UUID       `json:"ref"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	CustomerID     int64           `json:"customerId"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	Status         InvoiceStatus   `json:"status"`
	RevenueEntryID *int64          `json:"revenueEntryId,omitempty"`
	CostEntryID    *int64          `json:"costEntryId,omitempty"`
	PostedAt       *time.Time      `json:"postedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Items          []InvoiceItem   `json:"items,omitempty"`
}

// InvoiceItem is one product line on an invoice.
type InvoiceItem struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoiceId"`
	ProductID int64           `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	LineCost  decimal.Decimal `json:"lineCost"`
}

// ItemInput selects a product and quantity for a draft invoice. UnitPrice
// overrides the product's list price when set.
type ItemInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

// InvoiceInput carries the fields for creating or replacing a draft.
type InvoiceInput struct {
	Number     string
	Date       time.Time
	CustomerID int64
	TaxRate    decimal.Decimal
	Items      []ItemInput
}

// computeTotals fills the derived invoice amounts from captured items,
// rounding money to two fraction digits.
func computeTotals(inv *Invoice) {
	subtotal := decimal.Zero
	totalCost := decimal.Zero
	for i := range inv.Items {
		item := &inv.Items[i]
		item.LineTotal = item.Quantity.Mul(item.UnitPrice).Round(2)
		item.LineCost = item.Quantity.Mul(item.UnitCost).Round(2)
		subtotal = subtotal.Add(item.LineTotal)
		totalCost = totalCost.Add(item.LineCost)
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(inv.TaxRate).Round(2)
	inv.Total = inv.Subtotal.Add(inv.TaxAmount)
	inv.TotalCost = totalCost
}
