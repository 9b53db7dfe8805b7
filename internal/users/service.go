package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	InsertUser(ctx context.Context, in CreateUserInput, passwordHash string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user management business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser registers a new account.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Name == "" || in.Password == "" {
		return User{}, fmt.Errorf("users: email, name and password are required")
	}
	if !in.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	taken, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}

	user, err := s.repo.InsertUser(ctx, in, string(hash))
	if err != nil {
		return User{}, err
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     in.ActorID,
		Action:      "USER_CREATE",
		Entity:      "User",
		EntityID:    strconv.FormatInt(user.ID, 10),
		Description: fmt.Sprintf("Created user: %s (%s) with role %s", user.Name, user.Email, user.Role),
		NewValue:    map[string]any{"email": user.Email, "role": string(user.Role)},
	}); err != nil {
		return User{}, err
	}
	return user, nil
}

// SetActive activates or deactivates an account. Owners cannot deactivate
// themselves, otherwise a store could end up without an active owner.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actorID int64) (User, error) {
	if id == actorID && !active {
		return User{}, ErrSelfDeactivation
	}
	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}

	action := "USER_DEACTIVATE"
	verb := "Deactivated"
	if active {
		action = "USER_ACTIVATE"
		verb = "Activated"
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     actorID,
		Action:      action,
		Entity:      "User",
		EntityID:    strconv.FormatInt(user.ID, 10),
		Description: fmt.Sprintf("%s user: %s (%s)", verb, user.Name, user.Email),
		OldValue:    map[string]any{"isActive": !active},
		NewValue:    map[string]any{"isActive": active},
	}); err != nil {
		return User{}, err
	}
	return user, nil
}
