package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a read-side view of one audit_logs row.
type Entry struct {
	ID          int64           `json:"id"`
	ActorID     int64           `json:"actorId"`
	ActorName   string          `json:"actorName"`
	Action      string          `json:"action"`
	Entity      string          `json:"entity"`
	EntityID    string          `json:"entityId"`
	Description string          `json:"description"`
	OldValue    json.RawMessage `json:"oldValue,omitempty"`
	NewValue    json.RawMessage `json:"newValue,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Filter narrows audit listings.
type Filter struct {
	Entity   string
	EntityID string
	ActorID  int64
	Limit    int
}

// Repository reads from the append-only audit_logs table. Writes go through
// shared.AuditLogger; nothing here mutates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns recent audit entries, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT l.id, l.actor_id, u.name, l.action, l.entity, l.entity_id, l.description, l.old_value, l.new_value, l.occurred_at
FROM audit_logs l
JOIN users u ON u.id = l.actor_id`
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
	if filter.Entity != "" {
		add("l.entity = $%d", filter.Entity)
	}
	if filter.EntityID != "" {
		add("l.entity_id = $%d", filter.EntityID)
	}
	if filter.ActorID != 0 {
		add("l.actor_id = $%d", filter.ActorID)
	}
	args = append(args, limit)
	query += where + fmt.Sprintf(` ORDER BY l.occurred_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.Action, &e.Entity, &e.EntityID, &e.Description, &e.OldValue, &e.NewValue, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
