package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/history"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AppendHistory(ctx context.Context, entry history.Entry) error {
	return insert(ctx, s.db, entry)
}

func (s *Store) List(ctx context.Context, kind history.EntityKind, id uuid.UUID) ([]history.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, action, from_status, to_status, note, payload, actor_id, created_at
		FROM history_entries
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at ASC, id ASC`, kind, id)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry

	for rows.Next() {
		var (
			e       history.Entry
			payload []byte
		)

		if err := rows.Scan(
			&e.ID, &e.EntityKind, &e.EntityID, &e.Action,
			&e.FromStatus, &e.ToStatus, &e.Note, &payload, &e.ActorID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}

		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decoding history payload: %w", err)
			}
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// TxAppender writes history inside an open transaction. Each insert runs under a savepoint
// so a failed insert does not abort the caller's transaction.
type TxAppender struct {
	tx *sql.Tx
}

func NewTxAppender(tx *sql.Tx) *TxAppender {
	return &TxAppender{tx: tx}
}

func (a *TxAppender) AppendHistory(ctx context.Context, entry history.Entry) error {
	if _, err := a.tx.ExecContext(ctx, "SAVEPOINT history_append"); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}

	if err := insert(ctx, a.tx, entry); err != nil {
		if _, rbErr := a.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT history_append"); rbErr != nil {
			return fmt.Errorf("rolling back savepoint: %w (after %w)", rbErr, err)
		}

		return err
	}

	if _, err := a.tx.ExecContext(ctx, "RELEASE SAVEPOINT history_append"); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}

	return nil
}

func insert(ctx context.Context, q database.DBTX, e history.Entry) error {
	var payload []byte

	if len(e.Payload) > 0 {
		var err error

		payload, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("encoding history payload: %w", err)
		}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO history_entries (entity_kind, entity_id, action, from_status, to_status, note, payload, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.EntityKind, e.EntityID, e.Action, e.FromStatus, e.ToStatus, e.Note, payload, e.ActorID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	return nil
}
