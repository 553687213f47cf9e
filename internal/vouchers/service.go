package vouchers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/sales"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// RepositoryPort abstracts the repository for the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Voucher, error)
	List(ctx context.Context, kind Kind, limit int) ([]Voucher, error)
}

// Service owns the receipt and payment voucher lifecycle. Both kinds share
// one workflow; the kind only decides which side of the entry the cash
// account lands on and which way the partner balance moves.
type Service struct {
	repo     RepositoryPort
	poster   *ledger.Poster
	balances *ledger.Maintainer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, poster *ledger.Poster, balances *ledger.Maintainer, logger *slog.Logger) *Service {
	return &Service{repo: repo, poster: poster, balances: balances, logger: logger, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func partnerKindFor(kind Kind) ledger.PartnerKind {
	if kind == KindPayment {
		return ledger.PartnerSupplier
	}
	return ledger.PartnerCustomer
}

func (s *Service) validateInput(kind Kind, in VoucherInput) error {
	if kind != KindReceipt && kind != KindPayment {
		return shared.Validationf("unknown voucher kind %q", kind)
	}
	if in.PartnerID == 0 {
		return shared.Validationf("counterparty is required")
	}
	if in.AccountID == 0 {
		return shared.Validationf("cash or bank account is required")
	}
	if !in.Amount.IsPositive() {
		return shared.Validationf("voucher amount must be positive")
	}
	if !ValidMethod(in.Method) {
		return shared.Validationf("unknown payment method %q", in.Method)
	}
	if in.Method == MethodCheck && in.CheckNumber == "" {
		return shared.Validationf("check payments require a check number")
	}
	if kind == KindPayment && len(in.Allocations) > 0 {
		return shared.Validationf("payment vouchers cannot allocate sales invoices")
	}
	for _, a := range in.Allocations {
		if a.InvoiceID == 0 {
			return shared.Validationf("allocation invoice is required")
		}
		if !a.Amount.IsPositive() {
			return shared.Validationf("allocation amount must be positive")
		}
	}
	if allocationTotal(in.Allocations).GreaterThan(in.Amount) {
		return shared.Validationf("allocations exceed voucher amount")
	}
	return nil
}

func (s *Service) ensurePartner(ctx context.Context, tx TxRepository, kind Kind, id int64) (ledger.PartnerRef, error) {
	partner, err := tx.GetPartnerForUpdate(ctx, id)
	if err != nil {
		return ledger.PartnerRef{}, err
	}
	if want := partnerKindFor(kind); partner.Kind != want {
		return ledger.PartnerRef{}, shared.Validationf("partner %d is not a %s", id, want)
	}
	return partner, nil
}

// checkAllocations verifies each allocation still points at a posted
// invoice of the voucher's own customer. Allocations annotate
// reconciliation only; nothing here reduces an invoice's remaining
// balance, so the same invoice can be referenced by several vouchers.
// Sales invoices never belong to a supplier, so a payment voucher must
// carry no allocations at all.
func (s *Service) checkAllocations(ctx context.Context, tx TxRepository, v Voucher) error {
	if v.Kind == KindPayment {
		if len(v.Allocations) > 0 {
			return shared.Validationf("payment vouchers cannot allocate sales invoices")
		}
		return nil
	}
	total := decimal.Zero
	for _, a := range v.Allocations {
		inv, err := tx.GetAllocatableInvoice(ctx, a.InvoiceID)
		if err != nil {
			return err
		}
		if inv.CustomerID != v.PartnerID {
			return shared.Validationf("invoice %s belongs to another customer", inv.Number)
		}
		if inv.Status != sales.StatusPosted {
			return shared.Validationf("invoice %s is not posted", inv.Number)
		}
		total = total.Add(a.Amount)
	}
	if total.GreaterThan(v.Amount) {
		return shared.Validationf("allocations exceed voucher amount")
	}
	return nil
}

// Create creates a draft voucher with its allocation lines.
func (s *Service) Create(ctx context.Context, kind Kind, in VoucherInput) (Voucher, error) {
	if err := s.validateInput(kind, in); err != nil {
		return Voucher{}, err
	}
	var created Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.ensurePartner(ctx, tx, kind, in.PartnerID); err != nil {
			return err
		}
		if _, err := tx.GetAccountForUpdate(ctx, in.AccountID); err != nil {
			return err
		}
		number := in.Number
		var err error
		if number == "" {
			if number, err = tx.NextVoucherNumber(ctx, kind); err != nil {
				return err
			}
		}
		date := in.Date
		if date.IsZero() {
			date = s.now()
		}
		v := Voucher{
			Ref:         uuid.New(),
			Kind:        kind,
			Number:      number,
			Date:        date,
			PartnerID:   in.PartnerID,
			Amount:      in.Amount,
			Method:      in.Method,
			CheckNumber: in.CheckNumber,
			CheckDate:   in.CheckDate,
			AccountID:   in.AccountID,
			Status:      StatusDraft,
		}
		if created, err = tx.InsertVoucher(ctx, v); err != nil {
			return err
		}
		created.Allocations, err = tx.ReplaceAllocations(ctx, created.ID, allocationRows(in.Allocations))
		return err
	})
	if err != nil {
		return Voucher{}, err
	}
	return created, nil
}

// Update replaces a draft voucher's header and allocations. Posted
// vouchers are immutable.
func (s *Service) Update(ctx context.Context, id int64, in VoucherInput) (Voucher, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.InvalidStatef("cannot modify a posted document")
		}
		if err := s.validateInput(current.Kind, in); err != nil {
			return err
		}
		if _, err := s.ensurePartner(ctx, tx, current.Kind, in.PartnerID); err != nil {
			return err
		}
		if _, err := tx.GetAccountForUpdate(ctx, in.AccountID); err != nil {
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
		next := Voucher{
			ID:          id,
			Number:      number,
			Date:        date,
			PartnerID:   in.PartnerID,
			Amount:      in.Amount,
			Method:      in.Method,
			CheckNumber: in.CheckNumber,
			CheckDate:   in.CheckDate,
			AccountID:   in.AccountID,
		}
		if err := tx.UpdateDraftHeader(ctx, next); err != nil {
			return err
		}
		_, err = tx.ReplaceAllocations(ctx, id, allocationRows(in.Allocations))
		return err
	})
	if err != nil {
		return Voucher{}, err
	}
	return s.repo.Get(ctx, id)
}

// Post turns a draft voucher into one balanced ledger entry and moves the
// counterparty balance, all in one transaction. A receipt debits the cash
// account and credits the customer's linked account; a payment debits the
// supplier's linked account and credits the cash account. Either way the
// partner owes (or is owed) the amount less afterwards.
func (s *Service) Post(ctx context.Context, id int64) (Voucher, error) {
	var posted Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusDraft {
			return shared.InvalidStatef("voucher %s already posted", v.Number)
		}
		partner, err := s.ensurePartner(ctx, tx, v.Kind, v.PartnerID)
		if err != nil {
			return err
		}
		if err := s.checkAllocations(ctx, tx, v); err != nil {
			return err
		}

		var lines []ledger.PostingLine
		sourceModule := "RECEIPT_VOUCHER"
		description := "Receipt voucher " + v.Number
		if v.Kind == KindReceipt {
			lines = []ledger.PostingLine{
				{AccountID: v.AccountID, Debit: v.Amount, Description: "Receipt " + v.Number},
				{AccountID: partner.AccountID, Credit: v.Amount, Description: "Receipt " + v.Number},
			}
		} else {
			sourceModule = "PAYMENT_VOUCHER"
			description = "Payment voucher " + v.Number
			lines = []ledger.PostingLine{
				{AccountID: partner.AccountID, Debit: v.Amount, Description: "Payment " + v.Number},
				{AccountID: v.AccountID, Credit: v.Amount, Description: "Payment " + v.Number},
			}
		}
		entry, err := s.poster.Post(ctx, tx, ledger.PostingInput{
			Date:         v.Date,
			Description:  description,
			SourceModule: sourceModule,
			SourceID:     v.Ref,
			Lines:        lines,
		})
		if err != nil {
			return err
		}

		// The entry already moved the linked account; mirror the drop onto
		// the partner's running balance.
		if _, err := s.balances.MirrorPartnerDelta(ctx, tx, v.PartnerID, v.Amount.Neg()); err != nil {
			return err
		}

		now := s.now()
		if err := tx.MarkPosted(ctx, v.ID, entry.ID, now); err != nil {
			return err
		}
		posted = v
		posted.Status = StatusPosted
		posted.EntryID = &entry.ID
		posted.PostedAt = &now
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	return posted, nil
}

// Delete removes a draft voucher. Posted vouchers cannot be deleted; no
// reversal path is exposed for them.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusDraft {
			return shared.InvalidStatef("cannot delete a posted voucher")
		}
		return tx.DeleteVoucherRows(ctx, id)
	})
}

// Get fetches one voucher.
func (s *Service) Get(ctx context.Context, id int64) (Voucher, error) {
	return s.repo.Get(ctx, id)
}

// ListReceipts returns receipt vouchers newest first.
func (s *Service) ListReceipts(ctx context.Context, limit int) ([]Voucher, error) {
	return s.repo.List(ctx, KindReceipt, limit)
}

// ListPayments returns payment vouchers newest first.
func (s *Service) ListPayments(ctx context.Context, limit int) ([]Voucher, error) {
	return s.repo.List(ctx, KindPayment, limit)
}

func allocationRows(in []AllocationInput) []Allocation {
	rows := make([]Allocation, 0, len(in))
	for _, a := range in {
		rows = append(rows, Allocation{InvoiceID: a.InvoiceID, Amount: a.Amount})
	}
	return rows
}
