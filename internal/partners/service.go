package partners

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// RepositoryPort abstracts the repository for the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Partner, error)
	List(ctx context.Context, kind ledger.PartnerKind) ([]Partner, error)
}

// Service manages customers and suppliers together with their linked
// ledger accounts.
type Service struct {
	repo     RepositoryPort
	balances *ledger.Maintainer
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, balances *ledger.Maintainer, logger *slog.Logger) *Service {
	return &Service{repo: repo, balances: balances, logger: logger}
}

func validateInput(in PartnerInput) error {
	if in.Kind != ledger.PartnerCustomer && in.Kind != ledger.PartnerSupplier {
		return shared.Validationf("unknown partner kind %q", in.Kind)
	}
	if strings.TrimSpace(in.Code) == "" {
		return shared.Validationf("partner code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("partner name is required")
	}
	return nil
}

// Create inserts the partner and its linked account atomically. A nonzero
// opening balance is applied through the balance maintainer so the mirror
// invariant holds from the first row.
func (s *Service) Create(ctx context.Context, in PartnerInput) (Partner, error) {
	if err := validateInput(in); err != nil {
		return Partner{}, err
	}
	var created Partner
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.InsertAccount(ctx, linkedAccountFor(in))
		if err != nil {
			return err
		}
		created, err = tx.InsertPartner(ctx, Partner{
			Kind:           in.Kind,
			Code:           in.Code,
			Name:           in.Name,
			Phone:          in.Phone,
			Email:          in.Email,
			OpeningBalance: in.OpeningBalance,
			AccountID:      account.ID,
		})
		if err != nil {
			return err
		}
		if !in.OpeningBalance.IsZero() {
			if err := s.balances.ApplyPartnerDelta(ctx, tx, created.ID, in.OpeningBalance); err != nil {
				return err
			}
			created.CurrentBalance = in.OpeningBalance
		}
		return nil
	})
	if err != nil {
		return Partner{}, err
	}
	s.logger.Info("partner created",
		slog.String("kind", string(created.Kind)),
		slog.String("code", created.Code))
	return created, nil
}

// Update edits contact fields. Balances and the linked account are out of
// reach here.
func (s *Service) Update(ctx context.Context, id int64, in PartnerInput) (Partner, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Partner{}, shared.Validationf("partner name is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPartnerRow(ctx, id); err != nil {
			return err
		}
		return tx.UpdatePartner(ctx, id, in)
	})
	if err != nil {
		return Partner{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a partner and its linked account, but only when the
// linked account balance is exactly zero. The outstanding amount is
// reported to the caller otherwise.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		partner, err := tx.GetPartnerRow(ctx, id)
		if err != nil {
			return err
		}
		account, err := tx.GetAccountForUpdate(ctx, partner.AccountID)
		if err != nil {
			return err
		}
		if !account.Balance.IsZero() {
			return shared.Conflictf("%s %s has outstanding balance %s", strings.ToLower(string(partner.Kind)), partner.Code, partner.CurrentBalance.StringFixed(2))
		}
		if err := tx.DeletePartner(ctx, id); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, partner.AccountID)
	})
}

// Get returns one partner.
func (s *Service) Get(ctx context.Context, id int64) (Partner, error) {
	return s.repo.Get(ctx, id)
}

// ListCustomers returns all customers.
func (s *Service) ListCustomers(ctx context.Context) ([]Partner, error) {
	return s.repo.List(ctx, ledger.PartnerCustomer)
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Partner, error) {
	return s.repo.List(ctx, ledger.PartnerSupplier)
}
