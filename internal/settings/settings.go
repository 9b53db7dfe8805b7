package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/shared"
)

// Setting is one store configuration entry, such as the store name or the
// receipt footer text.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ErrKeyRequired indicates an empty setting key.
var ErrKeyRequired = errors.New("settings: key required")

// Repository persists settings in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one setting by key.
func (r *Repository) Get(ctx context.Context, key string) (Setting, error) {
	row := r.pool.QueryRow(ctx, `SELECT key, value, description, updated_at FROM settings WHERE key = $1`, key)
	var s Setting
	if err := row.Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, shared.ErrNotFound
		}
		return Setting{}, err
	}
	return s, nil
}

// List returns all settings ordered by key.
func (r *Repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// Upsert writes the setting, inserting or replacing the value for the key.
func (r *Repository) Upsert(ctx context.Context, s Setting) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO settings (key, value, description, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = COALESCE(EXCLUDED.description, settings.description), updated_at = NOW()`,
		s.Key, s.Value, s.Description)
	return err
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, key string) (Setting, error)
	List(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, s Setting) error
}

// AuditPort records audit log entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the store's key-value settings.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get returns one setting.
func (s *Service) Get(ctx context.Context, key string) (Setting, error) {
	return s.repo.Get(ctx, key)
}

// List returns all settings.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Set writes a setting and leaves an audit trail with the old and new values.
// Owner-only; the route group enforces the role.
func (s *Service) Set(ctx context.Context, key, value string, description *string, actorID int64) (Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Setting{}, ErrKeyRequired
	}
	var previous string
	if existing, err := s.repo.Get(ctx, key); err == nil {
		previous = existing.Value
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Setting{}, err
	}
	if err := s.repo.Upsert(ctx, Setting{Key: key, Value: value, Description: description}); err != nil {
		return Setting{}, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     actorID,
		Action:      "SETTING_UPDATE",
		Entity:      "Setting",
		EntityID:    key,
		Description: fmt.Sprintf("Updated setting %s", key),
		OldValue:    map[string]any{"value": previous},
		NewValue:    map[string]any{"value": value},
	}); err != nil {
		return Setting{}, err
	}
	return s.repo.Get(ctx, key)
}
