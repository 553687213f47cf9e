package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/db"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/products"
)

// TxRepository is the transaction scope a posting workflow runs in. It
// spans the invoice rows, the product collaborator and the full ledger
// contract so the whole document action is one atomic unit.
type TxRepository interface {
	ledger.Tx
	GetProductForUpdate(ctx context.Context, id int64) (products.Product, error)
	UpdateProductQuantity(ctx context.Context, id int64, qty decimal.Decimal) error
	InsertStockMovement(ctx context.Context, m products.StockMovement) (products.StockMovement, error)

	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	ReplaceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) ([]InvoiceItem, error)
	UpdateDraftHeader(ctx context.Context, inv Invoice) error
	MarkPosted(ctx context.Context, id int64, revenueEntryID, costEntryID *int64, postedAt time.Time) error
	DeleteInvoiceRows(ctx context.Context, id int64) error
	NextInvoiceNumber(ctx context.Context) (string, error)
}

// Repository persists sales invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	ledger.Tx
	productTx products.Tx
	tx        pgx.Tx
}

// WithTx runs fn inside one RepeatableRead transaction shared across the
// invoice, product and ledger tables.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Tx: ledger.NewTx(tx), productTx: products.NewTx(tx), tx: tx})
	})
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, id int64) (products.Product, error) {
	return r.productTx.GetProductForUpdate(ctx, id)
}

func (r *txRepo) UpdateProductQuantity(ctx context.Context, id int64, qty decimal.Decimal) error {
	return r.productTx.UpdateProductQuantity(ctx, id, qty)
}

func (r *txRepo) InsertStockMovement(ctx context.Context, m products.StockMovement) (products.StockMovement, error) {
	return r.productTx.InsertStockMovement(ctx, m)
}

const invoiceColumns = `id, ref, number, date, customer_id, tax_rate, subtotal, tax_amount, total, total_cost, status, revenue_entry_id, cost_entry_id, posted_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Ref, &inv.Number, &inv.Date, &inv.CustomerID, &inv.TaxRate,
		&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.TotalCost, &inv.Status,
		&inv.RevenueEntryID, &inv.CostEntryID, &inv.PostedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, product_id, quantity, unit_price, line_total, unit_cost, line_cost
FROM sales_invoice_items WHERE invoice_id=$1 ORDER BY id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal, &it.UnitCost, &it.LineCost); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Invoice{}, err
	}
	inv.Items, err = loadItems(ctx, r.tx, id)
	return inv, err
}

func (r *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO sales_invoices (ref, number, date, customer_id, tax_rate, subtotal, tax_amount, total, total_cost, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING `+invoiceColumns,
		inv.Ref, inv.Number, inv.Date, inv.CustomerID, inv.TaxRate, inv.Subtotal, inv.TaxAmount, inv.Total, inv.TotalCost, inv.Status)
	inserted, err := scanInvoice(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invoice{}, ErrDuplicateNumber
		}
		return Invoice{}, err
	}
	return inserted, nil
}

func (r *txRepo) ReplaceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) ([]InvoiceItem, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM sales_invoice_items WHERE invoice_id=$1`, invoiceID); err != nil {
		return nil, err
	}
	out := make([]InvoiceItem, 0, len(items))
	for _, it := range items {
		err := r.tx.QueryRow(ctx, `INSERT INTO sales_invoice_items (invoice_id, product_id, quantity, unit_price, line_total, unit_cost, line_cost)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			invoiceID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal, it.UnitCost, it.LineCost).Scan(&it.ID)
		if err != nil {
			return nil, err
		}
		it.InvoiceID = invoiceID
		out = append(out, it)
	}
	return out, nil
}

func (r *txRepo) UpdateDraftHeader(ctx context.Context, inv Invoice) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sales_invoices
SET number=$2, date=$3, customer_id=$4, tax_rate=$5, subtotal=$6, tax_amount=$7, total=$8, total_cost=$9, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`,
		inv.ID, inv.Number, inv.Date, inv.CustomerID, inv.TaxRate, inv.Subtotal, inv.TaxAmount, inv.Total, inv.TotalCost)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepo) MarkPosted(ctx context.Context, id int64, revenueEntryID, costEntryID *int64, postedAt time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sales_invoices
SET status='POSTED', revenue_entry_id=$2, cost_entry_id=$3, posted_at=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, revenueEntryID, costEntryID, postedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepo) DeleteInvoiceRows(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM sales_invoice_items WHERE invoice_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM sales_invoices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepo) NextInvoiceNumber(ctx context.Context) (string, error) {
	var number string
	err := r.tx.QueryRow(ctx, `SELECT 'INV-' || LPAD(nextval('sales_invoice_number_seq')::text, 6, '0')`).Scan(&number)
	return number, err
}

// Get fetches one invoice with items.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices WHERE id=$1`, id))
	if err != nil {
		return Invoice{}, err
	}
	inv.Items, err = loadItems(ctx, r.pool, id)
	return inv, err
}

// List returns invoices newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Ref, &inv.Number, &inv.Date, &inv.CustomerID, &inv.TaxRate,
			&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.TotalCost, &inv.Status,
			&inv.RevenueEntryID, &inv.CostEntryID, &inv.PostedAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
