package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/conversion"
	"github.com/MrJamesThe3rd/garage/internal/database"
	estimateStore "github.com/MrJamesThe3rd/garage/internal/estimate/store"
	historyStore "github.com/MrJamesThe3rd/garage/internal/history/store"
	"github.com/MrJamesThe3rd/garage/internal/job"
	jobStore "github.com/MrJamesThe3rd/garage/internal/job/store"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
	reminderStore "github.com/MrJamesThe3rd/garage/internal/reminder/store"
	sequenceStore "github.com/MrJamesThe3rd/garage/internal/sequence/store"
)

type Store struct {
	db   *sql.DB
	caps database.Capabilities
}

func New(db *sql.DB, caps database.Capabilities) *Store {
	return &Store{db: db, caps: caps}
}

// Begin opens the conversion transaction. Read committed is enough because every row
// the conversion depends on is read with FOR UPDATE.
func (s *Store) Begin(ctx context.Context) (conversion.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &txStore{
		Tx:         tx,
		Queries:    estimateStore.NewQueries(tx),
		Counter:    sequenceStore.New(tx),
		TxAppender: historyStore.NewTxAppender(tx),
		jobs:       jobStore.NewQueries(tx, s.caps),
		reminders:  reminderStore.NewQueries(tx),
	}, nil
}

type txStore struct {
	*sql.Tx
	*estimateStore.Queries
	*sequenceStore.Counter
	*historyStore.TxAppender

	jobs      *jobStore.Queries
	reminders *reminderStore.Queries
}

var _ conversion.Tx = (*txStore)(nil)

func (t *txStore) InsertJob(ctx context.Context, j *job.Job) error {
	return t.jobs.InsertJob(ctx, j)
}

func (t *txStore) InsertJobLines(ctx context.Context, lines []job.LineItem) error {
	return t.jobs.InsertJobLines(ctx, lines)
}

func (t *txStore) JobLines(ctx context.Context, jobID uuid.UUID) ([]job.LineItem, error) {
	return t.jobs.JobLines(ctx, jobID)
}

func (t *txStore) UpdateJobTotal(ctx context.Context, jobID uuid.UUID, total decimal.Decimal) error {
	return t.jobs.UpdateJobTotal(ctx, jobID, total)
}

func (t *txStore) JobByOrigin(ctx context.Context, estimateID uuid.UUID) (*job.Ref, error) {
	return t.jobs.JobByOrigin(ctx, estimateID)
}

func (t *txStore) JobByID(ctx context.Context, jobID uuid.UUID) (*job.Ref, error) {
	return t.jobs.JobByID(ctx, jobID)
}

func (t *txStore) OpenJobsForVehicle(ctx context.Context, vehicleID uuid.UUID) ([]job.Ref, error) {
	return t.jobs.OpenJobsForVehicle(ctx, vehicleID)
}

func (t *txStore) SetAssignees(ctx context.Context, jobID uuid.UUID, userIDs []uuid.UUID) error {
	return t.jobs.SetAssignees(ctx, jobID, userIDs)
}

func (t *txStore) Reminder(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	return t.reminders.Reminder(ctx, id)
}

func (t *txStore) PostponeReminder(ctx context.Context, id uuid.UUID, until time.Time) error {
	return t.reminders.PostponeReminder(ctx, id, until)
}

func (t *txStore) ResolveReminder(ctx context.Context, id, jobID uuid.UUID) error {
	return t.reminders.ResolveReminder(ctx, id, jobID)
}

// Parties locks the vehicle row so its owner cannot change until the conversion commits.
func (t *txStore) Parties(ctx context.Context, customerID, vehicleID uuid.UUID) (*conversion.Parties, error) {
	var p conversion.Parties

	err := t.QueryRowContext(ctx, `
		SELECT c.active, v.active, v.customer_id
		FROM vehicles v
		JOIN customers c ON c.id = $1
		WHERE v.id = $2
		FOR UPDATE OF v`, customerID, vehicleID).
		Scan(&p.CustomerActive, &p.VehicleActive, &p.VehicleOwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("loading customer and vehicle: %w", err)
	}

	return &p, nil
}
