package closing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Repository persists daily closings in PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, audit *shared.AuditLogger) *Repository {
	return &Repository{pool: pool, audit: audit}
}

// TxRepository exposes the transactional operations behind a submission.
type TxRepository interface {
	InsertClosing(ctx context.Context, c Closing) (Closing, error)
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx    pgx.Tx
	audit *shared.AuditLogger
}

// WithTx executes the callback inside a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("closing: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepo{tx: tx, audit: r.audit}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InsertClosing stores the closing row. The unique index on the date column is
// the backstop against two submissions racing for the same day.
func (r *txRepo) InsertClosing(ctx context.Context, c Closing) (Closing, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO daily_closings
(closing_date, expected_cash, expected_mpesa, expected_card, expected_total, declared_cash, declared_mpesa, declared_card, cash_variance, total_variance, status, sales_count, notes, submitted_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at`,
		c.Date, c.ExpectedCash, c.ExpectedMpesa, c.ExpectedCard, c.ExpectedTotal,
		c.DeclaredCash, c.DeclaredMpesa, c.DeclaredCard, c.CashVariance, c.TotalVariance,
		string(c.Status), c.SalesCount, c.Notes, c.SubmittedBy)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Closing{}, ErrClosingExists
		}
		return Closing{}, err
	}
	return c, nil
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.RecordTx(ctx, r.tx, log)
}

// DayTotals sums the date's non-voided sales by payment method.
func (r *Repository) DayTotals(ctx context.Context, date time.Time) (DayTotals, error) {
	var t DayTotals
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(total) FILTER (WHERE payment_method = 'CASH'), 0),
COALESCE(SUM(total) FILTER (WHERE payment_method = 'MPESA'), 0),
COALESCE(SUM(total) FILTER (WHERE payment_method = 'CARD'), 0),
COALESCE(SUM(total), 0),
COUNT(*)
FROM sales
WHERE is_voided = FALSE AND created_at >= $1 AND created_at < $2`,
		date, date.AddDate(0, 0, 1)).Scan(&t.Cash, &t.Mpesa, &t.Card, &t.Total, &t.SalesCount)
	return t, err
}

const closingColumns = `c.id, c.closing_date, c.expected_cash, c.expected_mpesa, c.expected_card, c.expected_total,
c.declared_cash, c.declared_mpesa, c.declared_card, c.cash_variance, c.total_variance, c.status, c.sales_count, c.notes, c.submitted_by, u.name, c.created_at`

// GetByDate returns the closing for a date, or shared.ErrNotFound.
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (Closing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+closingColumns+`
FROM daily_closings c
JOIN users u ON u.id = c.submitted_by
WHERE c.closing_date = $1`, date)
	return scanClosing(row)
}

// ListRecent returns the most recent closings, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Closing, error) {
	if limit <= 0 || limit > 100 {
		limit = 7
	}
	rows, err := r.pool.Query(ctx, `SELECT `+closingColumns+`
FROM daily_closings c
JOIN users u ON u.id = c.submitted_by
ORDER BY c.closing_date DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var closings []Closing
	for rows.Next() {
		c, err := scanClosing(rows)
		if err != nil {
			return nil, err
		}
		closings = append(closings, c)
	}
	return closings, rows.Err()
}

func scanClosing(row pgx.Row) (Closing, error) {
	var c Closing
	var status string
	err := row.Scan(&c.ID, &c.Date, &c.ExpectedCash, &c.ExpectedMpesa, &c.ExpectedCard, &c.ExpectedTotal,
		&c.DeclaredCash, &c.DeclaredMpesa, &c.DeclaredCard, &c.CashVariance, &c.TotalVariance,
		&status, &c.SalesCount, &c.Notes, &c.SubmittedBy, &c.SubmitterName, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Closing{}, shared.ErrNotFound
		}
		return Closing{}, err
	}
	c.Status = ClosingStatus(status)
	return c, nil
}
