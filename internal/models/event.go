package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SessionEventType enumerates the logical events emitted on session mutations.
type SessionEventType string

// Session event types.
const (
	EventSessionCreated   SessionEventType = "session.created"
	EventSessionUpdated   SessionEventType = "session.updated"
	EventSessionCancelled SessionEventType = "session.cancelled"
)

// SessionEvent is an outbox row recording a mutation for external delivery.
// It is written in the same transaction as the mutation it describes and
// marked published once a notifier accepts it.
type SessionEvent struct {
	ID         string           `db:"id" json:"id"`
	EventType  SessionEventType `db:"event_type" json:"event_type"`
	SessionID  string           `db:"session_id" json:"session_id"`
	Payload    types.JSONText   `db:"payload" json:"payload"`
	Recipients types.JSONText   `db:"recipients" json:"recipients"`
	Published  bool             `db:"published" json:"published"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
