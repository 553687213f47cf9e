package partners

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// ErrPartnerNotFound indicates a missing customer or supplier.
var ErrPartnerNotFound = fmt.Errorf("%w: business partner", shared.ErrNotFound)

// ErrDuplicateCode indicates a partner code collision.
var ErrDuplicateCode = fmt.Errorf("%w: partner code already used", shared.ErrConflict)

// Partner is a customer or supplier. CurrentBalance mirrors the linked
// account and both move together through the balance maintainer: positive
// means the customer owes us, or we owe the supplier.
type Partner struct {
	ID             int64              `json:"id"`
	Kind           ledger.PartnerKind `json:"kind"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	Email          string             `json:"email"`
	OpeningBalance decimal.Decimal    `json:"openingBalance"`
	CurrentBalance decimal.Decimal    `json:"currentBalance"`
	AccountID      int64              `json:"accountId"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// PartnerInput carries create/update fields.
type PartnerInput struct {
	Kind           ledger.PartnerKind
	Code           string
	Name           string
	Phone          string
	Email          string
	OpeningBalance decimal.Decimal
}

// linkedAccountFor derives the ledger account created alongside a partner.
// Customer receivables are assets; supplier payables are liabilities.
func linkedAccountFor(in PartnerInput) ledger.AccountInput {
	if in.Kind == ledger.PartnerSupplier {
		return ledger.AccountInput{
			Code:   "AP-" + in.Code,
			Name:   "Payable - " + in.Name,
			Type:   ledger.AccountTypeLiability,
			Active: true,
		}
	}
	return ledger.AccountInput{
		Code:   "AR-" + in.Code,
		Name:   "Receivable - " + in.Name,
		Type:   ledger.AccountTypeAsset,
		Active: true,
	}
}
