package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, audit *shared.AuditLogger) *Repository {
	return &Repository{pool: pool, audit: audit}
}

// productState is the locked stock snapshot an adjustment starts from.
type productState struct {
	ID        int64
	Name      string
	CostPrice float64
	Stock     int
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (productState, error)
	SetStock(ctx context.Context, productID int64, stock int) error
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
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
		return fmt.Errorf("inventory: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepo{tx: tx, audit: r.audit}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (productState, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, name, cost_price, current_stock FROM products WHERE id = $1 FOR UPDATE`, productID)
	var p productState
	if err := row.Scan(&p.ID, &p.Name, &p.CostPrice, &p.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return productState{}, shared.ErrNotFound
		}
		return productState{}, err
	}
	return p, nil
}

func (r *txRepo) SetStock(ctx context.Context, productID int64, stock int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`, productID, stock)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, movement_type, quantity, reason, reference_id, user_id, unit_cost)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`, m.ProductID, string(m.Type), m.Quantity, m.Reason, m.ReferenceID, m.UserID, m.UnitCost)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return Movement{}, err
	}
	return m, nil
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.RecordTx(ctx, r.tx, log)
}

// ListMovements returns recent movements, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT m.id, m.product_id, p.name, m.movement_type, m.quantity, m.reason, m.reference_id, m.user_id, u.name, m.unit_cost, m.created_at
FROM stock_movements m
JOIN products p ON p.id = m.product_id
JOIN users u ON u.id = m.user_id`
	var args []any
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		query += ` WHERE m.product_id = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY m.created_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		var movementType string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &movementType, &m.Quantity, &m.Reason, &m.ReferenceID, &m.UserID, &m.UserName, &m.UnitCost, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(movementType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
