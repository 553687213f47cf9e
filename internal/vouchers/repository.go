package vouchers

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
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/sales"
)

// InvoiceRef is the slice of a sales invoice an allocation check needs.
type InvoiceRef struct {
	ID         int64
	Number     string
	CustomerID int64
	Status     sales.InvoiceStatus
	Total      decimal.Decimal
}

// TxRepository is the transaction scope a voucher posting runs in: voucher
// rows, allocation rows and the full ledger contract in one atomic unit.
type TxRepository interface {
	ledger.Tx
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	ReplaceAllocations(ctx context.Context, voucherID int64, allocs []Allocation) ([]Allocation, error)
	UpdateDraftHeader(ctx context.Context, v Voucher) error
	MarkPosted(ctx context.Context, id int64, entryID int64, postedAt time.Time) error
	DeleteVoucherRows(ctx context.Context, id int64) error
	NextVoucherNumber(ctx context.Context, kind Kind) (string, error)
	GetAllocatableInvoice(ctx context.Context, invoiceID int64) (InvoiceRef, error)
}

// Repository persists vouchers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	ledger.Tx
	tx pgx.Tx
}

// WithTx runs fn inside one RepeatableRead transaction shared across the
// voucher and ledger tables.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Tx: ledger.NewTx(tx), tx: tx})
	})
}

const voucherColumns = `id, ref, kind, number, date, partner_id, amount, method, check_number, check_date, account_id, status, entry_id, posted_at, created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Ref, &v.Kind, &v.Number, &v.Date, &v.PartnerID, &v.Amount,
		&v.Method, &v.CheckNumber, &v.CheckDate, &v.AccountID, &v.Status,
		&v.EntryID, &v.PostedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	return v, nil
}

func loadAllocations(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, voucherID int64) ([]Allocation, error) {
	rows, err := q.Query(ctx, `SELECT id, voucher_id, invoice_id, amount
FROM voucher_allocations WHERE voucher_id=$1 ORDER BY id ASC`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var allocs []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.VoucherID, &a.InvoiceID, &a.Amount); err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func (r *txRepo) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Voucher{}, err
	}
	v.Allocations, err = loadAllocations(ctx, r.tx, id)
	return v, err
}

func (r *txRepo) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vouchers (ref, kind, number, date, partner_id, amount, method, check_number, check_date, account_id, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING `+voucherColumns,
		v.Ref, v.Kind, v.Number, v.Date, v.PartnerID, v.Amount, v.Method, v.CheckNumber, v.CheckDate, v.AccountID, v.Status)
	inserted, err := scanVoucher(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Voucher{}, ErrDuplicateNumber
		}
		return Voucher{}, err
	}
	return inserted, nil
}

func (r *txRepo) ReplaceAllocations(ctx context.Context, voucherID int64, allocs []Allocation) ([]Allocation, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_allocations WHERE voucher_id=$1`, voucherID); err != nil {
		return nil, err
	}
	out := make([]Allocation, 0, len(allocs))
	for _, a := range allocs {
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_allocations (voucher_id, invoice_id, amount)
VALUES ($1,$2,$3) RETURNING id`, voucherID, a.InvoiceID, a.Amount).Scan(&a.ID)
		if err != nil {
			return nil, err
		}
		a.VoucherID = voucherID
		out = append(out, a)
	}
	return out, nil
}

func (r *txRepo) UpdateDraftHeader(ctx context.Context, v Voucher) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers
SET number=$2, date=$3, partner_id=$4, amount=$5, method=$6, check_number=$7, check_date=$8, account_id=$9, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`,
		v.ID, v.Number, v.Date, v.PartnerID, v.Amount, v.Method, v.CheckNumber, v.CheckDate, v.AccountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepo) MarkPosted(ctx context.Context, id int64, entryID int64, postedAt time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers
SET status='POSTED', entry_id=$2, posted_at=$3, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, entryID, postedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepo) DeleteVoucherRows(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_allocations WHERE voucher_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepo) NextVoucherNumber(ctx context.Context, kind Kind) (string, error) {
	seq, prefix := "receipt_voucher_number_seq", "RV-"
	if kind == KindPayment {
		seq, prefix = "payment_voucher_number_seq", "PV-"
	}
	var number string
	err := r.tx.QueryRow(ctx, `SELECT '`+prefix+`' || LPAD(nextval('`+seq+`')::text, 6, '0')`).Scan(&number)
	return number, err
}

func (r *txRepo) GetAllocatableInvoice(ctx context.Context, invoiceID int64) (InvoiceRef, error) {
	var ref InvoiceRef
	err := r.tx.QueryRow(ctx, `SELECT id, number, customer_id, status, total FROM sales_invoices WHERE id=$1`, invoiceID).
		Scan(&ref.ID, &ref.Number, &ref.CustomerID, &ref.Status, &ref.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InvoiceRef{}, sales.ErrInvoiceNotFound
		}
		return InvoiceRef{}, err
	}
	return ref, nil
}

// Get fetches one voucher with allocations.
func (r *Repository) Get(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`, id))
	if err != nil {
		return Voucher{}, err
	}
	v.Allocations, err = loadAllocations(ctx, r.pool, id)
	return v, err
}

// List returns vouchers of one kind, newest first.
func (r *Repository) List(ctx context.Context, kind Kind, limit int) ([]Voucher, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE kind=$1 ORDER BY id DESC LIMIT $2`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		var v Voucher
		if err := rows.Scan(&v.ID, &v.Ref, &v.Kind, &v.Number, &v.Date, &v.PartnerID, &v.Amount,
			&v.Method, &v.CheckNumber, &v.CheckDate, &v.AccountID, &v.Status,
			&v.EntryID, &v.PostedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
