package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Maintainer is the single choke point that mutates balances. Account
// balances are stored debit-minus-credit for every account type, so asset
// and expense accounts accumulate positive, while liability, equity and
// revenue accounts accumulate negative when credited.
type Maintainer struct{}

// NewMaintainer constructs a Maintainer.
func NewMaintainer() *Maintainer {
	return &Maintainer{}
}

// ApplyLine folds one entry line effect into the account balance. Called by
// the journal poster exactly once per line; the enclosing transaction is
// what makes the read-modify-write safe under concurrency.
func (m *Maintainer) ApplyLine(ctx context.Context, tx Tx, accountID int64, debit, credit decimal.Decimal) error {
	account, err := tx.GetAccountForUpdate(ctx, accountID)
	if err != nil {
		return err
	}
	next := account.Balance.Add(debit).Sub(credit)
	if err := tx.UpdateAccountBalance(ctx, accountID, next); err != nil {
		return fmt.Errorf("ledger: apply line to account %d: %w", accountID, err)
	}
	return nil
}

// ApplyPartnerDelta moves a business partner's mirrored balance and forwards
// the same delta to its linked account. Delta is expressed in partner terms:
// positive means the counterparty position grows (a customer owes more, a
// supplier is owed more).
func (m *Maintainer) ApplyPartnerDelta(ctx context.Context, tx Tx, partnerID int64, delta decimal.Decimal) error {
	partner, err := tx.GetPartnerForUpdate(ctx, partnerID)
	if err != nil {
		return err
	}
	if err := tx.UpdatePartnerBalance(ctx, partnerID, partner.Balance.Add(delta)); err != nil {
		return err
	}
	// Customer linked accounts are assets (debit-positive); supplier linked
	// accounts are liabilities, stored credit-negative.
	accountDelta := delta
	if partner.Kind == PartnerSupplier {
		accountDelta = delta.Neg()
	}
	account, err := tx.GetAccountForUpdate(ctx, partner.AccountID)
	if err != nil {
		return err
	}
	return tx.UpdateAccountBalance(ctx, partner.AccountID, account.Balance.Add(accountDelta))
}

// MirrorPartnerDelta moves only the partner's mirrored balance field. Used
// by posting workflows whose journal lines already carried the linked
// account effect, keeping partner and account in lockstep without applying
// the account side twice.
func (m *Maintainer) MirrorPartnerDelta(ctx context.Context, tx Tx, partnerID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	partner, err := tx.GetPartnerForUpdate(ctx, partnerID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	next := partner.Balance.Add(delta)
	if err := tx.UpdatePartnerBalance(ctx, partnerID, next); err != nil {
		return decimal.Decimal{}, err
	}
	return next, nil
}
