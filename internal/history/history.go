// Package history keeps the append-only audit trail of estimate and job changes.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EntityKind string

const (
	EntityEstimate EntityKind = "estimate"
	EntityJob      EntityKind = "job"
)

type Action string

const (
	ActionCreate      Action = "CREATE"
	ActionUpdateLines Action = "UPDATE_LINES"
	ActionStatus      Action = "STATUS"
	ActionConvert     Action = "CONVERT"
	ActionDelete      Action = "DELETE"
)

type Entry struct {
	ID         uuid.UUID
	EntityKind EntityKind
	EntityID   uuid.UUID
	Action     Action
	FromStatus *string
	ToStatus   *string
	Note       *string
	Payload    map[string]any
	ActorID    uuid.UUID
	CreatedAt  time.Time
}

// Appender persists a single entry.
type Appender interface {
	AppendHistory(ctx context.Context, entry Entry) error
}

// BestEffort records history without ever failing the caller.
// Errors from the appender are logged and dropped.
type BestEffort struct {
	log *slog.Logger
	now func() time.Time
}

func NewBestEffort(log *slog.Logger) *BestEffort {
	if log == nil {
		log = slog.Default()
	}

	return &BestEffort{log: log, now: time.Now}
}

func (b *BestEffort) Record(ctx context.Context, appender Appender, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = b.now()
	}

	if err := appender.AppendHistory(ctx, entry); err != nil {
		b.log.WarnContext(ctx, "failed to record history",
			"entity_kind", entry.EntityKind,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
	}
}

// StatusChange is a convenience for entries that move an entity between two states.
func StatusChange(kind EntityKind, id uuid.UUID, action Action, from, to string, actor uuid.UUID) Entry {
	e := Entry{
		EntityKind: kind,
		EntityID:   id,
		Action:     action,
		ToStatus:   &to,
		ActorID:    actor,
	}

	if from != "" {
		e.FromStatus = &from
	}

	return e
}
