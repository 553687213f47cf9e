package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/fikrimamdouh/ElectronAccount-sub000/internal/jobs"
)

// LedgerIntegrityJob re-derives the ledger invariants from raw rows and
// reports any drift. It never repairs: a finding means some code path
// mutated balances outside the posting workflows and needs a human.
type LedgerIntegrityJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob wires dependencies for the scan handler.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes ledger integrity scan tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	entryDrift, err := j.scanEntries(ctx, payload.MaxEntries)
	if err != nil {
		resultErr = err
		return err
	}
	partnerDrift, err := j.scanPartnerMirrors(ctx)
	if err != nil {
		resultErr = err
		return err
	}

	j.Metrics.AddDrift("entry", entryDrift)
	j.Metrics.AddDrift("partner", partnerDrift)
	j.Logger.Info("ledger integrity scan finished",
		slog.Int("entry_drift", entryDrift),
		slog.Int("partner_drift", partnerDrift))
	return nil
}

// scanEntries verifies that every journal entry balances and that its
// stored totals match the sum of its lines.
func (j *LedgerIntegrityJob) scanEntries(ctx context.Context, maxEntries int) (int, error) {
	query := `SELECT e.id, e.number
FROM journal_entries e
JOIN LATERAL (
    SELECT COALESCE(SUM(l.debit), 0) AS debit, COALESCE(SUM(l.credit), 0) AS credit
    FROM entry_lines l WHERE l.entry_id = e.id
) sums ON TRUE
WHERE sums.debit <> sums.credit
   OR e.total_debit <> sums.debit
   OR e.total_credit <> sums.credit
ORDER BY e.id DESC`
	args := []any{}
	if maxEntries > 0 {
		query += ` LIMIT $1`
		args = append(args, maxEntries)
	}
	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	drift := 0
	for rows.Next() {
		var id int64
		var number string
		if err := rows.Scan(&id, &number); err != nil {
			return drift, err
		}
		drift++
		j.Logger.Error("unbalanced journal entry detected",
			slog.Int64("entry_id", id), slog.String("number", number))
	}
	return drift, rows.Err()
}

// scanPartnerMirrors verifies that each partner's mirrored balance agrees
// with its linked account: equal for customers, negated for suppliers.
func (j *LedgerIntegrityJob) scanPartnerMirrors(ctx context.Context) (int, error) {
	rows, err := j.Pool.Query(ctx, `SELECT p.id, p.code, p.current_balance, a.balance, p.kind
FROM partners p
JOIN accounts a ON a.id = p.account_id
WHERE (p.kind = 'CUSTOMER' AND p.current_balance <> a.balance)
   OR (p.kind = 'SUPPLIER' AND p.current_balance <> -a.balance)`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	drift := 0
	for rows.Next() {
		var (
			id                     int64
			code, kind             string
			partnerBal, accountBal string
		)
		if err := rows.Scan(&id, &code, &partnerBal, &accountBal, &kind); err != nil {
			return drift, err
		}
		drift++
		j.Logger.Error("partner balance drifted from linked account",
			slog.Int64("partner_id", id),
			slog.String("code", code),
			slog.String("kind", kind),
			slog.String("partner_balance", partnerBal),
			slog.String("account_balance", accountBal))
	}
	return drift, rows.Err()
}
