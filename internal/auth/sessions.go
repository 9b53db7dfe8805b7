package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dukapos/dukapos/internal/shared"
)

// ErrSessionNotFound indicates an expired or unknown session token.
var ErrSessionNotFound = errors.New("auth: session not found")

// SessionStore keeps opaque session tokens in Redis. The stored payload is the
// full claims set, so request handling never reaches back into Postgres.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

type sessionPayload struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create issues a new session token for the user.
func (s *SessionStore) Create(ctx context.Context, claims shared.Claims) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(sessionPayload{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   string(claims.Role),
	})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store session: %w", err)
	}
	return token, nil
}

// Get resolves a token into claims.
func (s *SessionStore) Get(ctx context.Context, token string) (shared.Claims, error) {
	if token == "" {
		return shared.Claims{}, ErrSessionNotFound
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Claims{}, ErrSessionNotFound
		}
		return shared.Claims{}, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(data, &stored); err != nil {
		return shared.Claims{}, err
	}
	return shared.Claims{UserID: stored.UserID, Name: stored.Name, Role: shared.Role(stored.Role)}, nil
}

// Destroy removes a session token.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) key(token string) string {
	return "duka:session:" + token
}
