package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/platform/db"
	"github.com/dukapos/dukapos/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `p.id, p.sku, p.barcode, p.name, p.description, p.category_id, c.name,
p.cost_price, p.selling_price, p.current_stock, p.reorder_level, p.is_active, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.CostPrice, &p.SellingPrice, &p.CurrentStock, &p.ReorderLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListProducts returns products matching the filter, ordered by name.
func (r *Repository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id`
	var conds []string
	var args []any
	if !filter.IncludeInactive {
		conds = append(conds, "p.is_active")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := fmt.Sprintf("$%d", len(args))
		conds = append(conds, fmt.Sprintf("(p.name ILIKE %s OR p.sku ILIKE %s OR p.barcode ILIKE %s)", n, n, n))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.LowStock {
		conds = append(conds, "p.current_stock <= p.reorder_level")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.name ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct loads a product by id, active or not.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// SKUExists reports whether another product uses this SKU.
func (r *Repository) SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1 AND id <> $2)`, sku, excludeID).Scan(&exists)
	return exists, err
}

// BarcodeExists reports whether another product uses this barcode.
func (r *Repository) BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE barcode = $1 AND id <> $2)`, barcode, excludeID).Scan(&exists)
	return exists, err
}

// InsertProduct creates a product and, when initial stock is positive, the
// opening PURCHASE movement in the same transaction.
func (r *Repository) InsertProduct(ctx context.Context, in ProductInput) (Product, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO products (sku, barcode, name, description, category_id, cost_price, selling_price, current_stock, reorder_level, is_active)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8, $9, TRUE)
RETURNING id`, in.SKU, in.Barcode, in.Name, in.Description, in.CategoryID, in.CostPrice, in.SellingPrice, in.InitialStock, in.ReorderLevel).Scan(&id)
		if err != nil {
			return mapDuplicate(err)
		}
		if in.InitialStock > 0 {
			_, err = tx.Exec(ctx, `INSERT INTO stock_movements (product_id, movement_type, quantity, reason, user_id, unit_cost)
VALUES ($1, 'PURCHASE', $2, 'Initial stock', $3, $4)`, id, in.InitialStock, in.ActorID, in.CostPrice)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return r.GetProduct(ctx, id)
}

// UpdateProduct updates product fields. Stock is deliberately not touched;
// stock changes go through movements only.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET sku = $2, barcode = NULLIF($3, ''), name = $4, description = NULLIF($5, ''),
category_id = $6, cost_price = $7, selling_price = $8, reorder_level = $9, updated_at = NOW()
WHERE id = $1`, id, in.SKU, in.Barcode, in.Name, in.Description, in.CategoryID, in.CostPrice, in.SellingPrice, in.ReorderLevel)
	if err != nil {
		return Product{}, mapDuplicate(err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, shared.ErrNotFound
	}
	return r.GetProduct(ctx, id)
}

// ArchiveProduct soft-deletes a product.
func (r *Repository) ArchiveProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// InsertCategory creates a category.
func (r *Repository) InsertCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		return Category{}, mapDuplicate(err)
	}
	return c, nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "barcode"):
			return ErrBarcodeTaken
		default:
			return ErrSKUTaken
		}
	}
	return err
}
