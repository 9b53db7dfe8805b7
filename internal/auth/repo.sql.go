package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Repository provides PostgreSQL backed persistence for authentication.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByEmail loads a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, role, is_active, created_at, updated_at
FROM users WHERE email = $1`, email)

	var user User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = shared.Role(role)
	return &user, nil
}
