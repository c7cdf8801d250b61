package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
)

type Queries struct {
	q database.DBTX
}

func NewQueries(q database.DBTX) *Queries {
	return &Queries{q: q}
}

// Reminder locks and returns the reminder, or nil if it does not exist.
func (q *Queries) Reminder(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	var r reminder.Reminder

	err := q.q.QueryRowContext(ctx, `
		SELECT id, site_id, vehicle_id, title, catalog_id, unit_price, tax_rate, due_at, status, job_id
		FROM maintenance_reminders
		WHERE id = $1
		FOR UPDATE`, id).
		Scan(&r.ID, &r.SiteID, &r.VehicleID, &r.Title, &r.CatalogID, &r.UnitPrice, &r.TaxRate, &r.DueAt, &r.Status, &r.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting reminder: %w", err)
	}

	return &r, nil
}

func (q *Queries) PostponeReminder(ctx context.Context, id uuid.UUID, until time.Time) error {
	if _, err := q.q.ExecContext(ctx, `
		UPDATE maintenance_reminders SET status = $2, due_at = $3
		WHERE id = $1`, id, reminder.StatusPostponed, until); err != nil {
		return fmt.Errorf("postponing reminder: %w", err)
	}

	return nil
}

func (q *Queries) ResolveReminder(ctx context.Context, id, jobID uuid.UUID) error {
	if _, err := q.q.ExecContext(ctx, `
		UPDATE maintenance_reminders SET status = $2, job_id = $3
		WHERE id = $1`, id, reminder.StatusResolved, jobID); err != nil {
		return fmt.Errorf("resolving reminder: %w", err)
	}

	return nil
}
