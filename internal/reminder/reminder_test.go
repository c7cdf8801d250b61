package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/garage/internal/job"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
)

type fakeStore struct {
	reminders map[uuid.UUID]*reminder.Reminder
}

func (f *fakeStore) Reminder(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	r, ok := f.reminders[id]
	if !ok {
		return nil, nil
	}

	cp := *r

	return &cp, nil
}

func (f *fakeStore) PostponeReminder(_ context.Context, id uuid.UUID, until time.Time) error {
	f.reminders[id].Status = reminder.StatusPostponed
	f.reminders[id].DueAt = until

	return nil
}

func (f *fakeStore) ResolveReminder(_ context.Context, id, jobID uuid.UUID) error {
	f.reminders[id].Status = reminder.StatusResolved
	f.reminders[id].JobID = &jobID

	return nil
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, reminder.ActionAddLine, reminder.ParseAction("ADD_LINE"))
	assert.Equal(t, reminder.ActionPostpone, reminder.ParseAction(" postpone "))
	assert.Equal(t, reminder.ActionIgnore, reminder.ParseAction("ignore"))
	assert.Equal(t, reminder.ActionIgnore, reminder.ParseAction("snooze"))
	assert.Equal(t, reminder.ActionIgnore, reminder.ParseAction(""))
}

func TestResolver_Resolve(t *testing.T) {
	vehicle := uuid.New()
	j := &job.Job{ID: uuid.New(), VehicleID: vehicle}

	oil := &reminder.Reminder{
		ID: uuid.New(), VehicleID: vehicle, Title: "Oil change", Status: reminder.StatusPending,
		UnitPrice: decimal.RequireFromString("45.50"), TaxRate: decimal.NewFromInt(18),
	}
	tyres := &reminder.Reminder{ID: uuid.New(), VehicleID: vehicle, Title: "Tyre rotation", Status: reminder.StatusPending}
	other := &reminder.Reminder{ID: uuid.New(), VehicleID: uuid.New(), Title: "Other car", Status: reminder.StatusPending}
	done := &reminder.Reminder{ID: uuid.New(), VehicleID: vehicle, Title: "Done already", Status: reminder.StatusResolved}
	missing := uuid.New()
	skipped := uuid.New()

	store := &fakeStore{reminders: map[uuid.UUID]*reminder.Reminder{
		oil.ID: oil, tyres.ID: tyres, other.ID: other, done.ID: done,
	}}

	until := time.Now().Add(90 * 24 * time.Hour)

	out, err := reminder.NewResolver(nil).Resolve(context.Background(), store, j, []reminder.Decision{
		{ReminderID: oil.ID, Action: reminder.ActionAddLine},
		{ReminderID: tyres.ID, Action: reminder.ActionPostpone, PostponeUntil: &until},
		{ReminderID: other.ID, Action: reminder.ActionAddLine},
		{ReminderID: done.ID, Action: reminder.ActionAddLine},
		{ReminderID: missing, Action: reminder.ActionPostpone},
		{ReminderID: skipped, Action: reminder.ActionIgnore},
	})
	require.NoError(t, err)

	require.Len(t, out.Lines, 1)
	assert.Equal(t, "Oil change", out.Lines[0].Description)
	assert.True(t, decimal.RequireFromString("45.50").Equal(out.Lines[0].Amount))

	assert.Equal(t, []uuid.UUID{oil.ID}, out.Added)
	assert.Equal(t, []uuid.UUID{tyres.ID}, out.Postponed)
	assert.ElementsMatch(t, []uuid.UUID{other.ID, done.ID, missing, skipped}, out.Ignored)

	assert.Equal(t, reminder.StatusResolved, store.reminders[oil.ID].Status)
	assert.Equal(t, j.ID, *store.reminders[oil.ID].JobID)
	assert.Equal(t, reminder.StatusPostponed, store.reminders[tyres.ID].Status)
	assert.True(t, until.Equal(store.reminders[tyres.ID].DueAt))
	assert.Equal(t, reminder.StatusPending, store.reminders[other.ID].Status)
}

func TestResolver_PostponeDefaultsToThirtyDays(t *testing.T) {
	vehicle := uuid.New()
	rem := &reminder.Reminder{ID: uuid.New(), VehicleID: vehicle, Status: reminder.StatusPending}
	store := &fakeStore{reminders: map[uuid.UUID]*reminder.Reminder{rem.ID: rem}}

	past := time.Now().Add(-time.Hour)

	_, err := reminder.NewResolver(nil).Resolve(context.Background(), store, &job.Job{VehicleID: vehicle}, []reminder.Decision{
		{ReminderID: rem.ID, Action: reminder.ActionPostpone, PostponeUntil: &past},
	})
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), store.reminders[rem.ID].DueAt, time.Minute)
}
