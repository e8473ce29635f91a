package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unitrack/unitrack-api/internal/models"
)

// SessionEventRepository is the transactional outbox for session events.
// Events are inserted in the same transaction as the mutation they record
// and drained later by the relay worker.
type SessionEventRepository struct {
	db *sqlx.DB
}

// NewSessionEventRepository creates a new session event repository.
func NewSessionEventRepository(db *sqlx.DB) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

func (r *SessionEventRepository) executor(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert stores an unpublished event row.
func (r *SessionEventRepository) Insert(ctx context.Context, exec sqlx.ExtContext, event *models.SessionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO session_events (id, event_type, session_id, payload, recipients, published, created_at)
		VALUES (:id, :event_type, :session_id, :payload, :recipients, :published, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.executor(exec), query, event); err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	return nil
}

// ListUnpublished returns pending events oldest first.
func (r *SessionEventRepository) ListUnpublished(ctx context.Context, limit int) ([]models.SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, event_type, session_id, payload, recipients, published, created_at
		FROM session_events WHERE published = FALSE ORDER BY created_at ASC LIMIT $1`
	var events []models.SessionEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("list unpublished session events: %w", err)
	}
	return events, nil
}

// MarkPublished flags an event as delivered.
func (r *SessionEventRepository) MarkPublished(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE session_events SET published = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark session event published: %w", err)
	}
	return nil
}
