package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// ErrProductNotFound indicates a missing product.
var ErrProductNotFound = fmt.Errorf("%w: product", shared.ErrNotFound)

// ErrDuplicateCode indicates a product code collision.
var ErrDuplicateCode = fmt.Errorf("%w: product code already used", shared.ErrConflict)

// Tx exposes the product operations document workflows run inside their
// transaction: locked reads, quantity updates and movement snapshots.
type Tx interface {
	GetProductForUpdate(ctx context.Context, id int64) (Product, error)
	UpdateProductQuantity(ctx context.Context, id int64, qty decimal.Decimal) error
	InsertStockMovement(ctx context.Context, m StockMovement) (StockMovement, error)
}

type txRepo struct {
	tx pgx.Tx
}

// NewTx wraps a pgx transaction in the product collaborator contract.
func NewTx(tx pgx.Tx) Tx {
	return &txRepo{tx: tx}
}

const productColumns = `id, code, name, unit_price, unit_cost, quantity_on_hand, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &p.UnitCost, &p.QuantityOnHand, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepo) UpdateProductQuantity(ctx context.Context, id int64, qty decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE products SET quantity_on_hand=$2, updated_at=NOW() WHERE id=$1`, id, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepo) InsertStockMovement(ctx context.Context, m StockMovement) (StockMovement, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, type, reference_kind, reference_id, quantity, quantity_before, quantity_after, moved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		m.ProductID, m.Type, m.ReferenceKind, m.ReferenceID, m.Quantity, m.QuantityBefore, m.QuantityAfter, m.MovedAt).Scan(&m.ID)
	if err != nil {
		return StockMovement{}, err
	}
	return m, nil
}

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

// List returns products ordered by code.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &p.UnitCost, &p.QuantityOnHand, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, in ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (code, name, unit_price, unit_cost, quantity_on_hand, active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+productColumns,
		in.Code, in.Name, in.UnitPrice, in.UnitCost, in.QuantityOnHand, in.Active)
	p, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateCode
		}
		return Product{}, err
	}
	return p, nil
}

// Update changes code, name, prices and active flag. On-hand quantity is
// only moved by posting workflows through Tx.
func (r *Repository) Update(ctx context.Context, id int64, in ProductInput) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE products SET code=$2, name=$3, unit_price=$4, unit_cost=$5, active=$6, updated_at=NOW() WHERE id=$1`,
		id, in.Code, in.Name, in.UnitPrice, in.UnitCost, in.Active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product that has no movement history.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var referenced bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE product_id=$1)`, id).Scan(&referenced); err != nil {
		return err
	}
	if referenced {
		return shared.Conflictf("product %d has stock movement history", id)
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListMovements returns the movement trail for a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, productID int64, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, type, reference_kind, reference_id, quantity, quantity_before, quantity_after, moved_at
FROM stock_movements WHERE product_id=$1 ORDER BY id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.ReferenceKind, &m.ReferenceID, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter, &m.MovedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
