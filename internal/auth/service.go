package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort defines data access used by the service.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo     RepositoryPort
	sessions *SessionStore
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, sessions *SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Authenticate validates email/password credentials. Unknown accounts,
// inactive accounts, and bad passwords all fail identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, shared.Claims, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", shared.Claims{}, err
	}
	claims := shared.Claims{UserID: user.ID, Name: user.Name, Role: user.Role}
	token, err := s.sessions.Create(ctx, claims)
	if err != nil {
		return "", shared.Claims{}, err
	}
	return token, claims, nil
}

// Logout removes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// Resolve maps a session token to claims.
func (s *Service) Resolve(ctx context.Context, token string) (shared.Claims, error) {
	return s.sessions.Get(ctx, token)
}
