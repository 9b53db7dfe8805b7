package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users newest first, with sale and expense counts.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.email, u.name, u.role, u.is_active, u.created_at,
       (SELECT COUNT(*) FROM sales s WHERE s.user_id = u.id),
       (SELECT COUNT(*) FROM expenses e WHERE e.submitted_by = u.id)
FROM users u ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []User
	for rows.Next() {
		var user User
		var role string
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &user.CreatedAt, &user.SaleCount, &user.ExpenseCount); err != nil {
			return nil, err
		}
		user.Role = shared.Role(role)
		result = append(result, user)
	}
	return result, rows.Err()
}

// GetUser loads a single user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, name, role, is_active, created_at FROM users WHERE id = $1`, id)
	var user User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	user.Role = shared.Role(role)
	return user, nil
}

// EmailExists reports whether a user with the email already exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// InsertUser creates a new account. The unique index on email is the backstop
// against concurrent registrations.
func (r *Repository) InsertUser(ctx context.Context, in CreateUserInput, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING id, email, name, role, is_active, created_at`, in.Email, in.Name, passwordHash, string(in.Role))

	var user User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	user.Role = shared.Role(role)
	return user, nil
}

// SetActive flips the is_active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1
RETURNING id, email, name, role, is_active, created_at`, id, active)
	var user User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	user.Role = shared.Role(role)
	return user, nil
}
