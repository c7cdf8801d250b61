// Package sequence allocates human-readable document numbers such as EST-2601-0001.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the document family a counter belongs to.
type Kind string

const (
	KindEstimate Kind = "estimate"
	KindJob      Kind = "job"
)

// Counter increments the (site, kind) counter and returns the new value.
// Implementations must hold a row lock on the counter until the surrounding transaction ends.
type Counter interface {
	IncrementCounter(ctx context.Context, siteID uuid.UUID, kind Kind) (int64, error)
}

type Format struct {
	Prefixes map[Kind]string
	Padding  int
}

func DefaultFormat() Format {
	return Format{
		Prefixes: map[Kind]string{KindEstimate: "EST", KindJob: "JOB"},
		Padding:  4,
	}
}

type Allocator struct {
	format Format
	now    func() time.Time
}

func NewAllocator(format Format) *Allocator {
	return &Allocator{format: format, now: time.Now}
}

// WithClock returns a copy of the allocator that reads time from now.
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	return &Allocator{format: a.format, now: now}
}

// Next reserves the next number for kind at siteID within the counter's transaction.
// A rolled back transaction releases the number, so numbers stay gapless as long as callers commit.
func (a *Allocator) Next(ctx context.Context, counter Counter, siteID uuid.UUID, kind Kind) (string, error) {
	n, err := counter.IncrementCounter(ctx, siteID, kind)
	if err != nil {
		return "", fmt.Errorf("incrementing %s counter: %w", kind, err)
	}

	return a.Format(kind, n, a.now()), nil
}

// Format renders n as <prefix>-<YYMM>-<zero padded n>.
func (a *Allocator) Format(kind Kind, n int64, at time.Time) string {
	prefix, ok := a.format.Prefixes[kind]
	if !ok || prefix == "" {
		prefix = string(kind)
	}

	padding := a.format.Padding
	if padding <= 0 {
		padding = 1
	}

	return fmt.Sprintf("%s-%s-%0*d", prefix, at.Format("0601"), padding, n)
}
