package vouchers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// Kind selects the voucher direction.
type Kind string

const (
	// KindReceipt records money received from a customer.
	KindReceipt Kind = "RECEIPT"
	// KindPayment records money paid to a supplier.
	KindPayment Kind = "PAYMENT"
)

// Status is the voucher lifecycle state.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Method is how the money moved.
type Method string

const (
	MethodCash     Method = "CASH"
	MethodTransfer Method = "TRANSFER"
	MethodCheck    Method = "CHECK"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m Method) bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCheck:
		return true
	}
	return false
}

var (
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = fmt.Errorf("%w: voucher", shared.ErrNotFound)
	// ErrDuplicateNumber indicates a voucher number collision.
	ErrDuplicateNumber = fmt.Errorf("%w: voucher number already used", shared.ErrConflict)
)

// Voucher is a receipt or payment document. A draft carries no ledger
// effect; posting creates exactly one balanced entry and the document
// becomes immutable.
type Voucher struct {
	ID          int64           `json:"id"`
	Ref         uuid.UUID       `json:"ref"`
	Kind        Kind            `json:"kind"`
	Number      string          `json:"number"`
	Date        time.Time       `json:"date"`
	PartnerID   int64           `json:"partnerId"`
	Amount      decimal.Decimal `json:"amount"`
	Method      Method          `json:"method"`
	CheckNumber string          `json:"checkNumber,omitempty"`
	CheckDate   *time.Time      `json:"checkDate,omitempty"`
	AccountID   int64           `json:"accountId"`
	Status      Status          `json:"status"`
	EntryID     *int64          `json:"entryId,omitempty"`
	PostedAt    *time.Time      `json:"postedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Allocations []Allocation `json:"allocations"`
}

// Allocation ties a portion of the voucher amount to a posted invoice.
// Purely advisory: it annotates reconciliation, it does not settle the
// invoice or reduce any remaining-balance figure.
type Allocation struct {
	ID        int64           `json:"id"`
	VoucherID int64           `json:"voucherId"`
	InvoiceID int64           `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
}

// AllocationInput is one allocation line on create/update.
type AllocationInput struct {
	InvoiceID int64           `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
}

// VoucherInput is the create/update payload for a draft voucher.
type VoucherInput struct {
	Number      string            `json:"number"`
	Date        time.Time         `json:"date"`
	PartnerID   int64             `json:"partnerId"`
	Amount      decimal.Decimal   `json:"amount"`
	Method      Method            `json:"method"`
	CheckNumber string            `json:"checkNumber"`
	CheckDate   *time.Time        `json:"checkDate"`
	AccountID   int64             `json:"accountId"`
	Allocations []AllocationInput `json:"allocations"`
}

// allocationTotal sums the allocation amounts.
func allocationTotal(allocs []AllocationInput) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return total
}
