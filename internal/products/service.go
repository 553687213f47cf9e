package products

import (
	"context"
	"strings"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// RepositoryPort abstracts the repository for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, in ProductInput) (Product, error)
	Update(ctx context.Context, id int64, in ProductInput) error
	Delete(ctx context.Context, id int64) error
	ListMovements(ctx context.Context, productID int64, limit int) ([]StockMovement, error)
}

// Service handles product master data.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(in ProductInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return shared.Validationf("product code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("product name is required")
	}
	if in.UnitPrice.IsNegative() || in.UnitCost.IsNegative() {
		return shared.Validationf("product prices must not be negative")
	}
	if in.QuantityOnHand.IsNegative() {
		return shared.Validationf("on-hand quantity must not be negative")
	}
	return nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := s.validate(in); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update edits product master data.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := s.validate(in); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, in); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a product without movement history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Movements returns the append-only stock trail for a product.
func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]StockMovement, error) {
	return s.repo.ListMovements(ctx, productID, limit)
}
