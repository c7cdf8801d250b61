package job

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
)

// Sink persists job aggregates inside the caller's transaction.
type Sink interface {
	InsertJob(ctx context.Context, j *Job) error
	InsertJobLines(ctx context.Context, lines []LineItem) error
	JobLines(ctx context.Context, jobID uuid.UUID) ([]LineItem, error)
	UpdateJobTotal(ctx context.Context, jobID uuid.UUID, total decimal.Decimal) error
}

// Writer builds a job and its nested lines.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Create inserts j and value copies of source. j.ID and the line ids are set by the sink.
func (w *Writer) Create(ctx context.Context, sink Sink, j *Job, source []estimate.LineItem) ([]LineItem, error) {
	lines := CopyLines(source)
	j.Total = Total(lines)

	if err := sink.InsertJob(ctx, j); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	for i := range lines {
		lines[i].JobID = j.ID
	}

	if err := sink.InsertJobLines(ctx, lines); err != nil {
		return nil, fmt.Errorf("insert job lines: %w", err)
	}

	return lines, nil
}

// Append adds extra lines after the job's existing ones.
func (w *Writer) Append(ctx context.Context, sink Sink, j *Job, extra []LineItem) error {
	if len(extra) == 0 {
		return nil
	}

	current, err := sink.JobLines(ctx, j.ID)
	if err != nil {
		return fmt.Errorf("load job lines: %w", err)
	}

	next := len(current) + 1
	for _, l := range current {
		if l.Position >= next {
			next = l.Position + 1
		}
	}

	lines := make([]LineItem, len(extra))
	for i, l := range extra {
		l.ID = uuid.Nil
		l.JobID = j.ID
		l.Position = next + i
		l.Amount = estimate.ExtendedAmount(l.Quantity, l.UnitPrice)
		lines[i] = l
	}

	if err := sink.InsertJobLines(ctx, lines); err != nil {
		return fmt.Errorf("insert job lines: %w", err)
	}

	return nil
}

// Recalculate sums the persisted lines of j and stores the result as its total.
func (w *Writer) Recalculate(ctx context.Context, sink Sink, j *Job) error {
	lines, err := sink.JobLines(ctx, j.ID)
	if err != nil {
		return fmt.Errorf("load job lines: %w", err)
	}

	j.Total = Total(lines)

	if err := sink.UpdateJobTotal(ctx, j.ID, j.Total); err != nil {
		return fmt.Errorf("update job total: %w", err)
	}

	return nil
}

// CopyLines copies estimate lines by value, dropping their identity.
func CopyLines(source []estimate.LineItem) []LineItem {
	lines := make([]LineItem, len(source))
	for i, l := range source {
		var catalogID *uuid.UUID
		if l.CatalogID != nil {
			catalogID = new(*l.CatalogID)
		}

		lines[i] = LineItem{
			Position:    i + 1,
			Kind:        l.Kind,
			CatalogID:   catalogID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			Amount:      estimate.ExtendedAmount(l.Quantity, l.UnitPrice),
		}
	}

	return lines
}

func Total(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}

	return total
}
