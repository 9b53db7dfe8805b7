package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, audit *shared.AuditLogger) *Repository {
	return &Repository{pool: pool, audit: audit}
}

// TxRepository exposes the transactional operations behind a decision.
type TxRepository interface {
	GetExpenseForUpdate(ctx context.Context, expenseID int64) (Expense, error)
	ApplyDecision(ctx context.Context, e Expense) error
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
		return fmt.Errorf("expenses: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepo{tx: tx, audit: r.audit}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepo) GetExpenseForUpdate(ctx context.Context, expenseID int64) (Expense, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, category_id, amount, description, payment_method, receipt_ref, status, submitted_by, approved_by, approved_at, rejection_reason, created_at
FROM expenses WHERE id = $1 FOR UPDATE`, expenseID)
	return scanExpense(row)
}

func (r *txRepo) ApplyDecision(ctx context.Context, e Expense) error {
	_, err := r.tx.Exec(ctx, `UPDATE expenses SET status = $2, approved_by = $3, approved_at = $4, rejection_reason = $5 WHERE id = $1`,
		e.ID, string(e.Status), e.ApprovedBy, e.ApprovedAt, e.RejectionReason)
	return err
}

func (r *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.RecordTx(ctx, r.tx, log)
}

// InsertExpense stores a new pending expense.
func (r *Repository) InsertExpense(ctx context.Context, e Expense) (Expense, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO expenses (category_id, amount, description, payment_method, receipt_ref, status, submitted_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`, e.CategoryID, e.Amount, e.Description, string(e.PaymentMethod), e.ReceiptRef, string(e.Status), e.SubmittedBy)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// GetExpense loads a single expense with category and user names attached.
func (r *Repository) GetExpense(ctx context.Context, expenseID int64) (Expense, error) {
	row := r.pool.QueryRow(ctx, listQuery+` WHERE e.id = $1`, expenseID)
	return scanExpenseDetail(row)
}

const listQuery = `SELECT e.id, e.category_id, c.name, e.amount, e.description, e.payment_method, e.receipt_ref, e.status, e.submitted_by, s.name, e.approved_by, a.name, e.approved_at, e.rejection_reason, e.created_at
FROM expenses e
JOIN expense_categories c ON c.id = e.category_id
JOIN users s ON s.id = e.submitted_by
LEFT JOIN users a ON a.id = e.approved_by`

// ListExpenses returns expenses matching the filter, newest first, with a
// total count for pagination.
func (r *Repository) ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	where := ""
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.Status != "" {
		add("e.status = $%d", string(filter.Status))
	}
	if filter.SubmittedBy != 0 {
		add("e.submitted_by = $%d", filter.SubmittedBy)
	}
	if !filter.From.IsZero() {
		add("e.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("e.created_at < $%d", filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	query := listQuery + where + fmt.Sprintf(` ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		e, err := scanExpenseDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// ListCategories returns all expense categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// InsertCategory creates an expense category.
func (r *Repository) InsertCategory(ctx context.Context, c Category) (Category, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO expense_categories (name, description) VALUES ($1, $2) RETURNING id`, c.Name, c.Description)
	if err := row.Scan(&c.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Category{}, ErrCategoryTaken
		}
		return Category{}, err
	}
	return c, nil
}

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var method, status string
	err := row.Scan(&e.ID, &e.CategoryID, &e.Amount, &e.Description, &method, &e.ReceiptRef, &status, &e.SubmittedBy, &e.ApprovedBy, &e.ApprovedAt, &e.RejectionReason, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, err
	}
	e.PaymentMethod = shared.PaymentMethod(method)
	e.Status = ExpenseStatus(status)
	return e, nil
}

func scanExpenseDetail(row pgx.Row) (Expense, error) {
	var e Expense
	var method, status string
	err := row.Scan(&e.ID, &e.CategoryID, &e.CategoryName, &e.Amount, &e.Description, &method, &e.ReceiptRef, &status, &e.SubmittedBy, &e.SubmitterName, &e.ApprovedBy, &e.ApproverName, &e.ApprovedAt, &e.RejectionReason, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, err
	}
	e.PaymentMethod = shared.PaymentMethod(method)
	e.Status = ExpenseStatus(status)
	return e, nil
}
