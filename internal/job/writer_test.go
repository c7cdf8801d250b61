package job_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/job"
)

type memSink struct {
	jobs      map[uuid.UUID]*job.Job
	lines     map[uuid.UUID][]job.LineItem
	insertErr error
}

func newMemSink() *memSink {
	return &memSink{jobs: map[uuid.UUID]*job.Job{}, lines: map[uuid.UUID][]job.LineItem{}}
}

func (m *memSink) InsertJob(_ context.Context, j *job.Job) error {
	if m.insertErr != nil {
		return m.insertErr
	}

	j.ID = uuid.New()
	m.jobs[j.ID] = j

	return nil
}

func (m *memSink) InsertJobLines(_ context.Context, lines []job.LineItem) error {
	for i := range lines {
		lines[i].ID = uuid.New()
		m.lines[lines[i].JobID] = append(m.lines[lines[i].JobID], lines[i])
	}

	return nil
}

func (m *memSink) JobLines(_ context.Context, jobID uuid.UUID) ([]job.LineItem, error) {
	return append([]job.LineItem(nil), m.lines[jobID]...), nil
}

func (m *memSink) UpdateJobTotal(_ context.Context, jobID uuid.UUID, total decimal.Decimal) error {
	m.jobs[jobID].Total = total
	return nil
}

func estimateLines() []estimate.LineItem {
	part := uuid.New()

	return []estimate.LineItem{
		{
			ID: uuid.New(), Position: 1, Kind: estimate.LineService, Description: "Brake service",
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("500.00"),
			TaxRate: decimal.NewFromInt(18), Amount: decimal.RequireFromString("500.00"),
		},
		{
			ID: uuid.New(), Position: 2, Kind: estimate.LinePart, CatalogID: &part, Description: "Brake pads",
			Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("150.00"),
			TaxRate: decimal.NewFromInt(18), Amount: decimal.RequireFromString("300.00"),
		},
	}
}

func TestWriter_Create(t *testing.T) {
	sink := newMemSink()
	source := estimateLines()
	j := &job.Job{Number: "JOB-2601-0001", Status: job.StatusOpen}

	lines, err := job.NewWriter().Create(context.Background(), sink, j, source)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.NotEqual(t, uuid.Nil, j.ID)
	assert.True(t, decimal.RequireFromString("800.00").Equal(j.Total))

	for i, l := range lines {
		assert.Equal(t, j.ID, l.JobID)
		assert.NotEqual(t, source[i].ID, l.ID)
		assert.Equal(t, source[i].Description, l.Description)
		assert.True(t, source[i].Amount.Equal(l.Amount))
	}

	// catalog ids are copied, not shared
	require.NotNil(t, lines[1].CatalogID)
	assert.Equal(t, *source[1].CatalogID, *lines[1].CatalogID)
	assert.NotSame(t, source[1].CatalogID, lines[1].CatalogID)
}

func TestWriter_CreateInsertError(t *testing.T) {
	sink := newMemSink()
	sink.insertErr = errors.New("unique violation")

	_, err := job.NewWriter().Create(context.Background(), sink, &job.Job{}, estimateLines())
	assert.ErrorContains(t, err, "unique violation")
}

func TestWriter_AppendAndRecalculate(t *testing.T) {
	ctx := context.Background()
	sink := newMemSink()
	w := job.NewWriter()
	j := &job.Job{}

	_, err := w.Create(ctx, sink, j, estimateLines())
	require.NoError(t, err)

	err = w.Append(ctx, sink, j, []job.LineItem{{
		Kind:        estimate.LineService,
		Description: "Oil change reminder",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.RequireFromString("45.50"),
	}})
	require.NoError(t, err)

	require.NoError(t, w.Recalculate(ctx, sink, j))

	lines := sink.lines[j.ID]
	require.Len(t, lines, 3)
	assert.Equal(t, 3, lines[2].Position)
	assert.True(t, decimal.RequireFromString("845.50").Equal(j.Total))
	assert.True(t, j.Total.Equal(sink.jobs[j.ID].Total))
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in     string
		want   job.Priority
		wantOK bool
	}{
		{in: "high", want: job.PriorityHigh, wantOK: true},
		{in: " URGENT ", want: job.PriorityUrgent, wantOK: true},
		{in: "Low", want: job.PriorityLow, wantOK: true},
		{in: "critical", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := job.ParsePriority(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_IsActive(t *testing.T) {
	assert.True(t, job.StatusOpen.IsActive())
	assert.True(t, job.StatusInProgress.IsActive())
	assert.True(t, job.StatusOnHold.IsActive())
	assert.False(t, job.StatusCompleted.IsActive())
	assert.False(t, job.StatusClosed.IsActive())
	assert.False(t, job.StatusCancelled.IsActive())
}
