package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
)

// Counter increments sequence_counters rows. It must be bound to a *sql.Tx for the lock to mean anything.
type Counter struct {
	q database.DBTX
}

func New(q database.DBTX) *Counter {
	return &Counter{q: q}
}

func (c *Counter) IncrementCounter(ctx context.Context, siteID uuid.UUID, kind sequence.Kind) (int64, error) {
	var current int64

	err := c.q.QueryRowContext(ctx, `
		SELECT current FROM sequence_counters
		WHERE site_id = $1 AND kind = $2
		FOR UPDATE`, siteID, kind).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		// First number for this site and kind. ON CONFLICT covers a concurrent first insert,
		// after which the re-select waits on that row's lock.
		if _, err := c.q.ExecContext(ctx, `
			INSERT INTO sequence_counters (site_id, kind, current)
			VALUES ($1, $2, 0)
			ON CONFLICT (site_id, kind) DO NOTHING`, siteID, kind); err != nil {
			return 0, fmt.Errorf("seeding counter: %w", err)
		}

		err = c.q.QueryRowContext(ctx, `
			SELECT current FROM sequence_counters
			WHERE site_id = $1 AND kind = $2
			FOR UPDATE`, siteID, kind).Scan(&current)
	}

	if err != nil {
		return 0, fmt.Errorf("locking counter: %w", err)
	}

	next := current + 1

	if _, err := c.q.ExecContext(ctx, `
		UPDATE sequence_counters SET current = $3
		WHERE site_id = $1 AND kind = $2`, siteID, kind, next); err != nil {
		return 0, fmt.Errorf("updating counter: %w", err)
	}

	return next, nil
}
