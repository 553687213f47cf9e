package products_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/products"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memProductsRepo struct {
	rows      map[int64]*products.Product
	movements map[int64][]products.StockMovement
	nextID    int64
}

func newMemProductsRepo() *memProductsRepo {
	return &memProductsRepo{
		rows:      make(map[int64]*products.Product),
		movements: make(map[int64][]products.StockMovement),
	}
}

func (r *memProductsRepo) Get(ctx context.Context, id int64) (products.Product, error) {
	p, ok := r.rows[id]
	if !ok {
		return products.Product{}, products.ErrProductNotFound
	}
	return *p, nil
}

func (r *memProductsRepo) List(ctx context.Context) ([]products.Product, error) {
	out := make([]products.Product, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memProductsRepo) Create(ctx context.Context, in products.ProductInput) (products.Product, error) {
	for _, existing := range r.rows {
		if existing.Code == in.Code {
			return products.Product{}, products.ErrDuplicateCode
		}
	}
	r.nextID++
	p := products.Product{
		ID:             r.nextID,
		Code:           in.Code,
		Name:           in.Name,
		UnitPrice:      in.UnitPrice,
		UnitCost:       in.UnitCost,
		QuantityOnHand: in.QuantityOnHand,
		Active:         in.Active,
	}
	r.rows[p.ID] = &p
	return p, nil
}

func (r *memProductsRepo) Update(ctx context.Context, id int64, in products.ProductInput) error {
	p, ok := r.rows[id]
	if !ok {
		return products.ErrProductNotFound
	}
	p.Code = in.Code
	p.Name = in.Name
	p.UnitPrice = in.UnitPrice
	p.UnitCost = in.UnitCost
	p.Active = in.Active
	return nil
}

func (r *memProductsRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return products.ErrProductNotFound
	}
	if len(r.movements[id]) > 0 {
		return shared.Conflictf("product %d has stock movement history", id)
	}
	delete(r.rows, id)
	return nil
}

func (r *memProductsRepo) ListMovements(ctx context.Context, productID int64, limit int) ([]products.StockMovement, error) {
	ms := r.movements[productID]
	if limit > 0 && len(ms) > limit {
		ms = ms[:limit]
	}
	return ms, nil
}

func TestCreateProductValidation(t *testing.T) {
	svc := products.NewService(newMemProductsRepo())

	cases := []struct {
		name string
		in   products.ProductInput
	}{
		{"missing code", products.ProductInput{Name: "Widget"}},
		{"missing name", products.ProductInput{Code: "P001"}},
		{"negative price", products.ProductInput{Code: "P001", Name: "Widget", UnitPrice: dec("-1")}},
		{"negative cost", products.ProductInput{Code: "P001", Name: "Widget", UnitCost: dec("-1")}},
		{"negative on-hand", products.ProductInput{Code: "P001", Name: "Widget", QuantityOnHand: dec("-5")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateAndUpdateProduct(t *testing.T) {
	repo := newMemProductsRepo()
	svc := products.NewService(repo)

	created, err := svc.Create(context.Background(), products.ProductInput{
		Code:           "P001",
		Name:           "Widget",
		UnitPrice:      dec("15.00"),
		UnitCost:       dec("10.00"),
		QuantityOnHand: dec("5"),
		Active:         true,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	updated, err := svc.Update(context.Background(), created.ID, products.ProductInput{
		Code:      "P001",
		Name:      "Widget v2",
		UnitPrice: dec("18.00"),
		UnitCost:  dec("11.00"),
		Active:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "Widget v2", updated.Name)
	require.True(t, dec("18.00").Equal(updated.UnitPrice))
	// Quantity is only moved by posting workflows, never by master data edits.
	require.True(t, dec("5").Equal(updated.QuantityOnHand))
}

func TestDeleteProductWithMovementsRejected(t *testing.T) {
	repo := newMemProductsRepo()
	svc := products.NewService(repo)

	created, err := svc.Create(context.Background(), products.ProductInput{
		Code: "P001", Name: "Widget", Active: true,
	})
	require.NoError(t, err)
	repo.movements[created.ID] = []products.StockMovement{{ProductID: created.ID, Type: products.MovementOut, Quantity: dec("-1")}}

	err = svc.Delete(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
}
