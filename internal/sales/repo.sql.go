package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, audit *shared.AuditLogger) *Repository {
	return &Repository{pool: pool, audit: audit}
}

// TxRepository exposes the transactional operations the service composes into
// a single all-or-nothing sale.
type TxRepository interface {
	NextReceiptSequence(ctx context.Context, day time.Time) (int, error)
	GetProductForUpdate(ctx context.Context, productID int64) (saleProduct, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	IncrementStock(ctx context.Context, productID int64, quantity int) error
	InsertMovement(ctx context.Context, productID int64, movementType string, quantity int, reason string, referenceID int64, userID int64, unitCost float64) error
	GetSaleForUpdate(ctx context.Context, saleID int64) (Sale, error)
	MarkVoided(ctx context.Context, saleID int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepo struct {
	tx    pgx.Tx
	audit *shared.AuditLogger
}

// errProductRowMissing distinguishes a missing/inactive row from infra errors.
var errProductRowMissing = errors.New("sales: product row missing")

// errStockGuard fires when the conditional decrement touches no row. The
// FOR UPDATE check should make this unreachable; it is the correctness
// backstop, not the primary guard.
var errStockGuard = errors.New("sales: stock decrement guard rejected update")

// WithTx executes fn inside a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("sales: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepo{tx: tx, audit: r.audit}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// NextReceiptSequence atomically bumps and returns the per-day receipt
// counter inside the sale transaction, so concurrent sales on the same day
// can never observe the same sequence.
func (r *txRepo) NextReceiptSequence(ctx context.Context, day time.Time) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO receipt_counters (day, seq) VALUES ($1::date, 1)
ON CONFLICT (day) DO UPDATE SET seq = receipt_counters.seq + 1
RETURNING seq`, day).Scan(&seq)
	return seq, err
}

// GetProductForUpdate locks the product row for the rest of the transaction,
// serialising the stock check and decrement per product.
func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (saleProduct, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, name, cost_price, selling_price, current_stock
FROM products WHERE id = $1 AND is_active FOR UPDATE`, productID)
	var p saleProduct
	if err := row.Scan(&p.ID, &p.Name, &p.CostPrice, &p.SellingPrice, &p.CurrentStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return saleProduct{}, errProductRowMissing
		}
		return saleProduct{}, err
	}
	return p, nil
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (receipt_number, user_id, subtotal, discount, total, payment_method, payment_reference, total_cost, gross_profit, is_voided)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, FALSE)
RETURNING id`, sale.ReceiptNumber, sale.UserID, sale.Subtotal, sale.Discount, sale.Total, string(sale.PaymentMethod), derefString(sale.PaymentReference), sale.TotalCost, sale.GrossProfit).Scan(&id)
	return id, err
}

func (r *txRepo) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, unit_cost, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, saleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.UnitCost, item.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET current_stock = current_stock - $2, updated_at = NOW()
WHERE id = $1 AND current_stock >= $2`, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errStockGuard
	}
	return nil
}

func (r *txRepo) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET current_stock = current_stock + $2, updated_at = NOW()
WHERE id = $1`, productID, quantity)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, productID int64, movementType string, quantity int, reason string, referenceID int64, userID int64, unitCost float64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (product_id, movement_type, quantity, reason, reference_id, user_id, unit_cost)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, productID, movementType, quantity, reason, referenceID, userID, unitCost)
	return err
}

func (r *txRepo) GetSaleForUpdate(ctx context.Context, saleID int64) (Sale, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, receipt_number, user_id, subtotal, discount, total, payment_method, payment_reference, total_cost, gross_profit, is_voided, created_at
FROM sales WHERE id = $1 FOR UPDATE`, saleID)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, sale_id, product_id, product_name, quantity, unit_price, unit_cost, subtotal
FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.UnitCost, &item.Subtotal); err != nil {
			return Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

func (r *txRepo) MarkVoided(ctx context.Context, saleID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales SET is_voided = TRUE WHERE id = $1`, saleID)
	return err
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.RecordTx(ctx, r.tx, log)
}

func scanSale(row pgx.Row) (Sale, error) {
	var sale Sale
	var method string
	if err := row.Scan(&sale.ID, &sale.ReceiptNumber, &sale.UserID, &sale.Subtotal, &sale.Discount, &sale.Total, &method, &sale.PaymentReference, &sale.TotalCost, &sale.GrossProfit, &sale.IsVoided, &sale.CreatedAt); err != nil {
		return Sale{}, err
	}
	sale.PaymentMethod = shared.PaymentMethod(method)
	return sale, nil
}

// GetSale loads a sale with its items and the seller name.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT s.id, s.receipt_number, s.user_id, s.subtotal, s.discount, s.total, s.payment_method, s.payment_reference, s.total_cost, s.gross_profit, s.is_voided, s.created_at, u.name
FROM sales s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, id)
	var sale Sale
	var method string
	if err := row.Scan(&sale.ID, &sale.ReceiptNumber, &sale.UserID, &sale.Subtotal, &sale.Discount, &sale.Total, &method, &sale.PaymentReference, &sale.TotalCost, &sale.GrossProfit, &sale.IsVoided, &sale.CreatedAt, &sale.UserName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	sale.PaymentMethod = shared.PaymentMethod(method)

	items, err := r.itemsForSales(ctx, []int64{id})
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items[id]
	return sale, nil
}

// ListSales returns non-voided sales in the date range, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where := `WHERE NOT s.is_voided`
	var args []any
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND s.created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND s.created_at <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales s `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT s.id, s.receipt_number, s.user_id, s.subtotal, s.discount, s.total, s.payment_method, s.payment_reference, s.total_cost, s.gross_profit, s.is_voided, s.created_at, u.name
FROM sales s JOIN users u ON u.id = s.user_id %s ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Sale
	var ids []int64
	for rows.Next() {
		var sale Sale
		var method string
		if err := rows.Scan(&sale.ID, &sale.ReceiptNumber, &sale.UserID, &sale.Subtotal, &sale.Discount, &sale.Total, &method, &sale.PaymentReference, &sale.TotalCost, &sale.GrossProfit, &sale.IsVoided, &sale.CreatedAt, &sale.UserName); err != nil {
			return nil, 0, err
		}
		sale.PaymentMethod = shared.PaymentMethod(method)
		result = append(result, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := r.itemsForSales(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range result {
		result[i].Items = items[result[i].ID]
	}
	return result, total, nil
}

func (r *Repository) itemsForSales(ctx context.Context, saleIDs []int64) (map[int64][]SaleItem, error) {
	if len(saleIDs) == 0 {
		return map[int64][]SaleItem{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, product_name, quantity, unit_price, unit_cost, subtotal
FROM sale_items WHERE sale_id = ANY($1) ORDER BY id`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make(map[int64][]SaleItem)
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.UnitCost, &item.Subtotal); err != nil {
			return nil, err
		}
		items[item.SaleID] = append(items[item.SaleID], item)
	}
	return items, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
