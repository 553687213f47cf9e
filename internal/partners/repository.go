package partners

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/db"
)

// Repository persists partners in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional partner operations next to the full
// ledger contract, so a partner and its linked account are created or
// removed as one unit.
type TxRepository interface {
	ledger.Tx
	InsertPartner(ctx context.Context, p Partner) (Partner, error)
	GetPartnerRow(ctx context.Context, id int64) (Partner, error)
	UpdatePartner(ctx context.Context, id int64, in PartnerInput) error
	DeletePartner(ctx context.Context, id int64) error
}

type txRepo struct {
	ledger.Tx
	tx pgx.Tx
}

// WithTx executes fn inside one transaction shared with the ledger.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Tx: ledger.NewTx(tx), tx: tx})
	})
}

const partnerColumns = `id, kind, code, name, phone, email, opening_balance, current_balance, account_id, created_at, updated_at`

func scanPartner(row pgx.Row) (Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.Kind, &p.Code, &p.Name, &p.Phone, &p.Email, &p.OpeningBalance, &p.CurrentBalance, &p.AccountID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Partner{}, ErrPartnerNotFound
		}
		return Partner{}, err
	}
	return p, nil
}

func (r *txRepo) InsertPartner(ctx context.Context, p Partner) (Partner, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO partners (kind, code, name, phone, email, opening_balance, current_balance, account_id)
VALUES ($1,$2,$3,$4,$5,$6,0,$7) RETURNING `+partnerColumns,
		p.Kind, p.Code, p.Name, p.Phone, p.Email, p.OpeningBalance, p.AccountID)
	inserted, err := scanPartner(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Partner{}, ErrDuplicateCode
		}
		return Partner{}, err
	}
	return inserted, nil
}

func (r *txRepo) GetPartnerRow(ctx context.Context, id int64) (Partner, error) {
	return scanPartner(r.tx.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepo) UpdatePartner(ctx context.Context, id int64, in PartnerInput) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE partners SET name=$2, phone=$3, email=$4, updated_at=NOW() WHERE id=$1`,
		id, in.Name, in.Phone, in.Email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

func (r *txRepo) DeletePartner(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM partners WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

// Get fetches one partner.
func (r *Repository) Get(ctx context.Context, id int64) (Partner, error) {
	return scanPartner(r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id=$1`, id))
}

// List returns partners of one kind ordered by code.
func (r *Repository) List(ctx context.Context, kind ledger.PartnerKind) ([]Partner, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partnerColumns+` FROM partners WHERE kind=$1 ORDER BY code ASC`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Kind, &p.Code, &p.Name, &p.Phone, &p.Email, &p.OpeningBalance, &p.CurrentBalance, &p.AccountID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
