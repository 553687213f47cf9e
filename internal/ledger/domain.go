package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the chart-of-accounts classifications.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// ValidAccountType reports whether t is a known classification.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account is a general ledger account. Balance is the signed sum of all
// posted entry-line effects (debit minus credit) since creation and is only
// ever written by the balance maintainer.
type Account struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	ParentID  *int64          `json:"parentId,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AccountInput carries fields for creating or updating an account.
type AccountInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
	Active   bool
}

// SystemAccount identifies a fixed-purpose account resolved get-or-create
// by code during document posting.
type SystemAccount struct {
	Code string
	Name string
	Type AccountType
}

// Fixed chart entries used by the posting workflows.
var (
	SystemSalesRevenue = SystemAccount{Code: "4100", Name: "Sales Revenue", Type: AccountTypeRevenue}
	SystemVATPayable   = SystemAccount{Code: "2200", Name: "VAT Payable", Type: AccountTypeLiability}
	SystemCOGS         = SystemAccount{Code: "5100", Name: "Cost of Goods Sold", Type: AccountTypeExpense}
	SystemInventory    = SystemAccount{Code: "1300", Name: "Inventory", Type: AccountTypeAsset}
)

// JournalEntry captures posting metadata. TotalDebit always equals
// TotalCredit for any entry allowed to exist.
type JournalEntry struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	SourceModule string          `json:"sourceModule"`
	SourceID     uuid.UUID       `json:"sourceId"`
	TotalDebit   decimal.Decimal `json:"totalDebit"`
	TotalCredit  decimal.Decimal `json:"totalCredit"`
	Balanced     bool            `json:"balanced"`
	CreatedAt    time.Time       `json:"createdAt"`
	Lines        []EntryLine     `json:"lines,omitempty"`
}

// EntryLine stores a debit or credit amount for one account. Exactly one of
// Debit/Credit is non-zero in every generated posting.
type EntryLine struct {
	ID          int64           `json:"id"`
	EntryID     int64           `json:"entryId"`
	AccountID   int64           `json:"accountId"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// PostingLine is one account effect inside a PostingInput.
type PostingLine struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// PostingInput describes a journal entry to be created. Number may be empty,
// in which case the poster allocates the next sequence number.
type PostingInput struct {
	Number       string
	Date         time.Time
	Description  string
	SourceModule string
	SourceID     uuid.UUID
	Lines        []PostingLine
}

// PartnerKind distinguishes the two business partner flavours.
type PartnerKind string

const (
	PartnerCustomer PartnerKind = "CUSTOMER"
	PartnerSupplier PartnerKind = "SUPPLIER"
)

// PartnerRef is the slice of a business partner the balance maintainer
// needs: identity, linked account and the mirrored current balance.
type PartnerRef struct {
	ID        int64
	Kind      PartnerKind
	AccountID int64
	Balance   decimal.Decimal
}
