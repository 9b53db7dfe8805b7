package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs. The table is append-only;
// rows are never updated or deleted.
type AuditLog struct {
	ActorID     int64
	Action      string
	Entity      string
	EntityID    string
	Description string
	OldValue    map[string]any
	NewValue    map[string]any
	At          time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

const auditInsert = `INSERT INTO audit_logs (actor_id, action, entity, entity_id, description, old_value, new_value, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8::timestamptz, '0001-01-01'::timestamptz), NOW()))`

// Record persists the log entry outside any caller transaction.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	args, err := auditArgs(log)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, auditInsert, args...)
	return err
}

// RecordTx persists the log entry inside the supplied transaction so the audit
// row commits or rolls back with the mutation it describes.
func (l *AuditLogger) RecordTx(ctx context.Context, tx pgx.Tx, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	args, err := auditArgs(log)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, auditInsert, args...)
	return err
}

func auditArgs(log AuditLog) ([]any, error) {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return nil, errors.New("audit log requires action/entity/entity_id")
	}
	oldJSON, err := marshalNullable(log.OldValue)
	if err != nil {
		return nil, err
	}
	newJSON, err := marshalNullable(log.NewValue)
	if err != nil {
		return nil, err
	}
	return []any{log.ActorID, log.Action, log.Entity, log.EntityID, log.Description, oldJSON, newJSON, log.At}, nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
