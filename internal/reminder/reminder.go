// Package reminder resolves the maintenance reminders a caller attaches to a conversion.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/job"
)

type Action string

const (
	ActionAddLine  Action = "add_line"
	ActionPostpone Action = "postpone"
	ActionIgnore   Action = "ignore"
)

// ParseAction maps free text to an Action. Anything unrecognised is ActionIgnore.
func ParseAction(s string) Action {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionAddLine, ActionPostpone:
		return a
	}

	return ActionIgnore
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPostponed Status = "POSTPONED"
	StatusResolved  Status = "RESOLVED"
)

type Reminder struct {
	ID        uuid.UUID
	SiteID    uuid.UUID
	VehicleID uuid.UUID
	Title     string
	CatalogID *uuid.UUID
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	DueAt     time.Time
	Status    Status
	JobID     *uuid.UUID
}

// Decision is what the caller wants done with one reminder.
type Decision struct {
	ReminderID    uuid.UUID
	Action        Action
	PostponeUntil *time.Time
}

// Store is the transactional view of reminders used during conversion.
type Store interface {
	Reminder(ctx context.Context, id uuid.UUID) (*Reminder, error)
	PostponeReminder(ctx context.Context, id uuid.UUID, until time.Time) error
	ResolveReminder(ctx context.Context, id, jobID uuid.UUID) error
}

type Outcome struct {
	Lines     []job.LineItem
	Added     []uuid.UUID
	Postponed []uuid.UUID
	Ignored   []uuid.UUID
}

type Resolver struct {
	log           *slog.Logger
	now           func() time.Time
	postponeDelay time.Duration
}

func NewResolver(log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{log: log, now: time.Now, postponeDelay: 30 * 24 * time.Hour}
}

// Resolve applies each decision for the vehicle of j. Reminders that are missing, belong to
// another vehicle or are already resolved are ignored.
func (r *Resolver) Resolve(ctx context.Context, store Store, j *job.Job, decisions []Decision) (Outcome, error) {
	var out Outcome

	for _, d := range decisions {
		if d.Action == ActionIgnore {
			out.Ignored = append(out.Ignored, d.ReminderID)
			continue
		}

		rem, err := store.Reminder(ctx, d.ReminderID)
		if err != nil {
			return Outcome{}, fmt.Errorf("load reminder %s: %w", d.ReminderID, err)
		}

		if rem == nil || rem.VehicleID != j.VehicleID || rem.Status == StatusResolved {
			r.log.WarnContext(ctx, "skipping reminder", "reminder_id", d.ReminderID, "job_id", j.ID)
			out.Ignored = append(out.Ignored, d.ReminderID)

			continue
		}

		switch d.Action {
		case ActionAddLine:
			out.Lines = append(out.Lines, job.LineItem{
				Kind:        estimate.LineService,
				CatalogID:   rem.CatalogID,
				Description: rem.Title,
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   rem.UnitPrice,
				TaxRate:     rem.TaxRate,
				Amount:      estimate.ExtendedAmount(decimal.NewFromInt(1), rem.UnitPrice),
			})

			if err := store.ResolveReminder(ctx, rem.ID, j.ID); err != nil {
				return Outcome{}, fmt.Errorf("resolve reminder %s: %w", rem.ID, err)
			}

			out.Added = append(out.Added, rem.ID)
		case ActionPostpone:
			until := r.now().Add(r.postponeDelay)
			if d.PostponeUntil != nil && d.PostponeUntil.After(r.now()) {
				until = *d.PostponeUntil
			}

			if err := store.PostponeReminder(ctx, rem.ID, until); err != nil {
				return Outcome{}, fmt.Errorf("postpone reminder %s: %w", rem.ID, err)
			}

			out.Postponed = append(out.Postponed, rem.ID)
		}
	}

	return out, nil
}
