package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the sellable item the sales workflow draws stock and cost
// from. UnitCost is the current weighted cost captured onto invoice items
// at creation time.
type Product struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	QuantityOnHand decimal.Decimal `json:"quantityOnHand"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// MovementType enumerates stock movement directions.
type MovementType string

const (
	// MovementOut records stock leaving on an invoice posting.
	MovementOut MovementType = "OUT"
	// MovementIn records stock returning on an invoice deletion.
	MovementIn MovementType = "IN"
)

// StockMovement is an append-only audit row created by invoice posting.
// Quantity is signed; Before/After snapshot the on-hand quantity around
// the movement. Rows are never mutated.
type StockMovement struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"productId"`
	Type           MovementType    `json:"type"`
	ReferenceKind  string          `json:"referenceKind"`
	ReferenceID    int64           `json:"referenceId"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityBefore decimal.Decimal `json:"quantityBefore"`
	QuantityAfter  decimal.Decimal `json:"quantityAfter"`
	MovedAt        time.Time       `json:"movedAt"`
}

// ProductInput carries create/update fields.
type ProductInput struct {
	Code           string
	Name           string
	UnitPrice      decimal.Decimal
	UnitCost       decimal.Decimal
	QuantityOnHand decimal.Decimal
	Active         bool
}
