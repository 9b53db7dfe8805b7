package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind reports. Every sales query
// filters on is_voided = FALSE; sale item snapshots carry the unit cost so
// profit math never touches current product prices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// salesTotals is the headline aggregate over a window.
type salesTotals struct {
	Total float64
	COGS  float64
	Count int
}

func (r *Repository) SalesTotals(ctx context.Context, from, to time.Time) (salesTotals, error) {
	var t salesTotals
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(s.total), 0),
COALESCE(SUM(s.total_cost), 0),
COUNT(*)
FROM sales s
WHERE s.is_voided = FALSE AND s.created_at >= $1 AND s.created_at < $2`, from, to).
		Scan(&t.Total, &t.COGS, &t.Count)
	return t, err
}

func (r *Repository) ApprovedExpensesTotal(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)
FROM expenses
WHERE status = 'APPROVED' AND approved_at >= $1 AND approved_at < $2`, from, to).Scan(&total)
	return total, err
}

func (r *Repository) PaymentBreakdown(ctx context.Context, from, to time.Time) ([]PaymentTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT payment_method, COALESCE(SUM(total), 0), COUNT(*)
FROM sales
WHERE is_voided = FALSE AND created_at >= $1 AND created_at < $2
GROUP BY payment_method
ORDER BY 2 DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var breakdown []PaymentTotal
	for rows.Next() {
		var p PaymentTotal
		if err := rows.Scan(&p.Method, &p.Total, &p.Count); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, p)
	}
	return breakdown, rows.Err()
}

func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRevenue, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.product_id, i.product_name,
SUM(i.quantity)::int,
COALESCE(SUM(i.subtotal), 0),
COALESCE(SUM(i.subtotal - i.unit_cost * i.quantity), 0)
FROM sale_items i
JOIN sales s ON s.id = i.sale_id
WHERE s.is_voided = FALSE AND s.created_at >= $1 AND s.created_at < $2
GROUP BY i.product_id, i.product_name
ORDER BY 4 DESC
LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []ProductRevenue
	for rows.Next() {
		var p ProductRevenue
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue, &p.Profit); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) DailySeries(ctx context.Context, from, to time.Time) ([]DailyPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('day', created_at)::date,
COALESCE(SUM(total), 0),
COALESCE(SUM(total - total_cost), 0),
COUNT(*)
FROM sales
WHERE is_voided = FALSE AND created_at >= $1 AND created_at < $2
GROUP BY 1
ORDER BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var series []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Date, &p.Sales, &p.Profit, &p.Count); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

func (r *Repository) ExpensesByCategory(ctx context.Context, from, to time.Time) ([]CategoryExpenses, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, COALESCE(SUM(e.amount), 0), COUNT(*)
FROM expenses e
JOIN expense_categories c ON c.id = e.category_id
WHERE e.status = 'APPROVED' AND e.approved_at >= $1 AND e.approved_at < $2
GROUP BY c.id, c.name
ORDER BY 3 DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []CategoryExpenses
	for rows.Next() {
		var c CategoryExpenses
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Total, &c.Count); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) PendingExpenseCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE status = 'PENDING'`).Scan(&count)
	return count, err
}

func (r *Repository) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, current_stock, reorder_level
FROM products
WHERE is_active = TRUE AND current_stock <= reorder_level
ORDER BY current_stock ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.CurrentStock, &item.ReorderLevel); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) RecentSales(ctx context.Context, limit int) ([]RecentSale, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.receipt_number, s.total, s.payment_method, u.name, s.created_at
FROM sales s
JOIN users u ON u.id = s.user_id
WHERE s.is_voided = FALSE
ORDER BY s.created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []RecentSale
	for rows.Next() {
		var s RecentSale
		if err := rows.Scan(&s.ID, &s.ReceiptNumber, &s.Total, &s.PaymentMethod, &s.SellerName, &s.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
