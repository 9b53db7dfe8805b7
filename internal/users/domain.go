package users

import (
	"errors"
	"time"

	"github.com/dukapos/dukapos/internal/shared"
)

// User represents a user account for management. The password hash never
// leaves this package.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         shared.Role `json:"role"`
	IsActive     bool        `json:"isActive"`
	SaleCount    int         `json:"saleCount"`
	ExpenseCount int         `json:"expenseCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	passwordHash string
}

// CreateUserInput carries fields for a new account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     shared.Role
	ActorID  int64
}

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("users: email already in use")

// ErrInvalidRole indicates an unknown role value.
var ErrInvalidRole = errors.New("users: invalid role")

// ErrSelfDeactivation indicates an owner tried to deactivate their own account.
var ErrSelfDeactivation = errors.New("users: cannot deactivate your own account")
