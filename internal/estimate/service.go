package estimate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=estimate
type Repository interface {
	GetEstimate(ctx context.Context, siteID, id uuid.UUID) (*Estimate, error)
	ListEstimates(ctx context.Context, filter ListFilter) ([]*Estimate, error)
	ListLines(ctx context.Context, estimateID uuid.UUID) ([]LineItem, error)

	Begin(ctx context.Context) (Tx, error)
}

// Tx is a unit of work over one or more estimates. LockEstimate takes a row lock
// that is held until Commit or Rollback.
type Tx interface {
	sequence.Counter
	history.Appender

	LockEstimate(ctx context.Context, siteID, id uuid.UUID) (*Estimate, error)
	InsertEstimate(ctx context.Context, e *Estimate) error
	UpdateEstimate(ctx context.Context, e *Estimate) error

	EstimateLines(ctx context.Context, estimateID uuid.UUID) ([]LineItem, error)
	InsertLine(ctx context.Context, line *LineItem) error
	UpdateLine(ctx context.Context, line *LineItem) error
	DeleteLine(ctx context.Context, estimateID, lineID uuid.UUID) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo    Repository
	numbers *sequence.Allocator
	history *history.BestEffort
	now     func() time.Time
}

func NewService(repo Repository, numbers *sequence.Allocator, recorder *history.BestEffort) *Service {
	return &Service{
		repo:    repo,
		numbers: numbers,
		history: recorder,
		now:     time.Now,
	}
}

// WithClock replaces the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type ListFilter struct {
	SiteID     uuid.UUID
	Status     *Status
	CustomerID *uuid.UUID
	VehicleID  *uuid.UUID
}

type LineParams struct {
	Kind        LineKind
	CatalogID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

type CreateParams struct {
	SiteID     uuid.UUID
	CustomerID uuid.UUID
	VehicleID  uuid.UUID
	ActorID    uuid.UUID
	Notes      string
	ValidUntil *time.Time
	Lines      []LineParams
}

type TransitionParams struct {
	SiteID       uuid.UUID
	EstimateID   uuid.UUID
	ActorID      uuid.UUID
	To           Status
	Note         string
	Capabilities Capabilities
}

// Actor identifies who is changing an estimate and with what permissions.
type Actor struct {
	SiteID       uuid.UUID
	ID           uuid.UUID
	Capabilities Capabilities
}

func (s *Service) Get(ctx context.Context, siteID, id uuid.UUID) (*Estimate, error) {
	e, err := s.repo.GetEstimate(ctx, siteID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("get estimate", err)
		}

		return nil, err
	}

	return e, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Estimate, error) {
	return s.repo.ListEstimates(ctx, filter)
}

func (s *Service) Lines(ctx context.Context, estimateID uuid.UUID) ([]LineItem, error) {
	return s.repo.ListLines(ctx, estimateID)
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Estimate, error) {
	fields := apperr.FieldErrors{}
	if params.SiteID == uuid.Nil {
		fields["site_id"] = "required"
	}

	if params.CustomerID == uuid.Nil {
		fields["customer_id"] = "required"
	}

	if params.VehicleID == uuid.Nil {
		fields["vehicle_id"] = "required"
	}

	for i, lp := range params.Lines {
		for k, v := range validateLine(lp) {
			fields[fmt.Sprintf("lines[%d].%s", i, k)] = v
		}
	}

	if len(fields) > 0 {
		return nil, apperr.New(apperr.KindValidation, "invalid estimate").WithDetails(fields)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	number, err := s.numbers.Next(ctx, tx, params.SiteID, sequence.KindEstimate)
	if err != nil {
		return nil, fmt.Errorf("allocate estimate number: %w", err)
	}

	now := s.now()
	e := &Estimate{
		SiteID:     params.SiteID,
		Number:     number,
		CustomerID: params.CustomerID,
		VehicleID:  params.VehicleID,
		Notes:      strings.TrimSpace(params.Notes),
		Status:     StatusDraft,
		ValidUntil: params.ValidUntil,
		CreatedBy:  params.ActorID,
		UpdatedBy:  params.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	lines := make([]LineItem, len(params.Lines))
	for i, lp := range params.Lines {
		lines[i] = newLine(lp, i+1)
	}

	e.Total = Total(lines)

	if err := tx.InsertEstimate(ctx, e); err != nil {
		return nil, fmt.Errorf("insert estimate: %w", err)
	}

	for i := range lines {
		lines[i].EstimateID = e.ID
		if err := tx.InsertLine(ctx, &lines[i]); err != nil {
			return nil, fmt.Errorf("insert line: %w", err)
		}
	}

	s.history.Record(ctx, tx, history.Entry{
		EntityKind: history.EntityEstimate,
		EntityID:   e.ID,
		Action:     history.ActionCreate,
		ToStatus:   new(string(StatusDraft)),
		ActorID:    params.ActorID,
		Payload:    map[string]any{"number": e.Number, "lines": len(lines), "total": e.Total.StringFixed(2)},
	})

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	return e, nil
}

// AddLines appends lines to a draft estimate and recomputes its total.
func (s *Service) AddLines(ctx context.Context, actor Actor, estimateID uuid.UUID, params []LineParams) (*Estimate, error) {
	fields := apperr.FieldErrors{}
	for i, lp := range params {
		for k, v := range validateLine(lp) {
			fields[fmt.Sprintf("lines[%d].%s", i, k)] = v
		}
	}

	if len(fields) > 0 {
		return nil, apperr.New(apperr.KindValidation, "invalid line items").WithDetails(fields)
	}

	return s.mutateLines(ctx, actor, estimateID, "add", func(tx Tx, current []LineItem) error {
		next := nextPosition(current)
		for i, lp := range params {
			line := newLine(lp, next+i)
			line.EstimateID = estimateID

			if err := tx.InsertLine(ctx, &line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}

		return nil
	})
}

func (s *Service) UpdateLine(ctx context.Context, actor Actor, estimateID, lineID uuid.UUID, params LineParams) (*Estimate, error) {
	if fields := validateLine(params); len(fields) > 0 {
		return nil, apperr.New(apperr.KindValidation, "invalid line item").WithDetails(fields)
	}

	return s.mutateLines(ctx, actor, estimateID, "update", func(tx Tx, current []LineItem) error {
		existing, ok := findLine(current, lineID)
		if !ok {
			return notFound("update line", ErrLineNotFound)
		}

		line := newLine(params, existing.Position)
		line.ID = existing.ID
		line.EstimateID = estimateID

		return tx.UpdateLine(ctx, &line)
	})
}

func (s *Service) RemoveLine(ctx context.Context, actor Actor, estimateID, lineID uuid.UUID) (*Estimate, error) {
	return s.mutateLines(ctx, actor, estimateID, "remove", func(tx Tx, current []LineItem) error {
		if _, ok := findLine(current, lineID); !ok {
			return notFound("remove line", ErrLineNotFound)
		}

		return tx.DeleteLine(ctx, estimateID, lineID)
	})
}

func (s *Service) mutateLines(ctx context.Context, actor Actor, estimateID uuid.UUID, op string, fn func(Tx, []LineItem) error) (*Estimate, error) {
	if !actor.Capabilities.Has(CapabilityEdit) {
		return nil, apperr.Newf(apperr.KindMissingCapability, "changing line items requires the %q capability", CapabilityEdit)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s line: %w", op, err)
	}
	defer tx.Rollback()

	e, err := s.lock(ctx, tx, actor.SiteID, estimateID)
	if err != nil {
		return nil, err
	}

	if !e.IsEditable() {
		return nil, apperr.Newf(apperr.KindNotEditable, "estimate %s is %s and can no longer be edited", e.Number, e.Status)
	}

	current, err := tx.EstimateLines(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}

	if err := fn(tx, current); err != nil {
		return nil, err
	}

	lines, err := tx.EstimateLines(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("reload lines: %w", err)
	}

	previous := e.Total
	e.Total = Total(lines)
	e.UpdatedBy = actor.ID
	e.UpdatedAt = s.now()

	if err := tx.UpdateEstimate(ctx, e); err != nil {
		return nil, fmt.Errorf("update estimate: %w", err)
	}

	s.history.Record(ctx, tx, history.Entry{
		EntityKind: history.EntityEstimate,
		EntityID:   e.ID,
		Action:     history.ActionUpdateLines,
		ActorID:    actor.ID,
		Payload: map[string]any{
			"op":             op,
			"lines":          len(lines),
			"previous_total": previous.StringFixed(2),
			"total":          e.Total.StringFixed(2),
		},
	})

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s line: %w", op, err)
	}

	return e, nil
}

// Transition moves an estimate between DRAFT, APPROVED and REJECTED.
// Conversion to a job goes through the conversion workflow instead.
func (s *Service) Transition(ctx context.Context, params TransitionParams) (*Estimate, error) {
	if !params.To.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", params.To)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	e, err := s.lock(ctx, tx, params.SiteID, params.EstimateID)
	if err != nil {
		return nil, err
	}

	if params.To == StatusConverted && e.Status != StatusConverted {
		if CanTransition(e.Status, params.To) {
			return nil, apperr.Newf(apperr.KindNotConvertible,
				"estimate %s cannot be marked converted directly: use conversion", e.Number)
		}

		return nil, invalidTransition(e.Status, params.To)
	}

	noop, err := CheckTransition(e, params.To, params.Note, params.Capabilities)
	if err != nil {
		return nil, err
	}

	if noop {
		return e, nil
	}

	from := ApplyTransition(e, params.To, params.Note, params.ActorID, s.now())

	if err := tx.UpdateEstimate(ctx, e); err != nil {
		return nil, fmt.Errorf("update estimate: %w", err)
	}

	entry := history.StatusChange(history.EntityEstimate, e.ID, history.ActionStatus, string(from), string(e.Status), params.ActorID)
	if note := strings.TrimSpace(params.Note); note != "" {
		entry.Note = &note
	}

	s.history.Record(ctx, tx, entry)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	return e, nil
}

// Delete soft-deletes a draft or rejected estimate.
func (s *Service) Delete(ctx context.Context, actor Actor, estimateID uuid.UUID) error {
	if !actor.Capabilities.Has(CapabilityEdit) {
		return apperr.Newf(apperr.KindMissingCapability, "deleting an estimate requires the %q capability", CapabilityEdit)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	e, err := s.lock(ctx, tx, actor.SiteID, estimateID)
	if err != nil {
		return err
	}

	if !e.IsDeletable() {
		return apperr.Newf(apperr.KindNotEditable, "estimate %s is %s and cannot be deleted", e.Number, e.Status)
	}

	now := s.now()
	e.DeletedAt = &now
	e.UpdatedBy = actor.ID
	e.UpdatedAt = now

	if err := tx.UpdateEstimate(ctx, e); err != nil {
		return fmt.Errorf("delete estimate: %w", err)
	}

	s.history.Record(ctx, tx, history.Entry{
		EntityKind: history.EntityEstimate,
		EntityID:   e.ID,
		Action:     history.ActionDelete,
		FromStatus: new(string(e.Status)),
		ActorID:    actor.ID,
	})

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	return nil
}

func (s *Service) lock(ctx context.Context, tx Tx, siteID, id uuid.UUID) (*Estimate, error) {
	e, err := tx.LockEstimate(ctx, siteID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("lock estimate", err)
		}

		return nil, fmt.Errorf("lock estimate: %w", err)
	}

	if e.IsDeleted() {
		return nil, notFound("lock estimate", ErrNotFound)
	}

	return e, nil
}

func validateLine(p LineParams) apperr.FieldErrors {
	fields := apperr.FieldErrors{}

	if p.Kind != LineService && p.Kind != LinePart {
		fields["kind"] = "must be service or part"
	}

	if strings.TrimSpace(p.Description) == "" {
		fields["description"] = "required"
	}

	switch {
	case !p.Quantity.IsPositive():
		fields["quantity"] = "must be greater than zero"
	case !fitsScale(p.Quantity, quantityScale):
		fields["quantity"] = "must have at most 3 decimal places"
	}

	switch {
	case p.UnitPrice.IsNegative():
		fields["unit_price"] = "must not be negative"
	case !fitsScale(p.UnitPrice, moneyScale):
		fields["unit_price"] = "must have at most 2 decimal places"
	}

	switch {
	case p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(100)):
		fields["tax_rate"] = "must be between 0 and 100"
	case !fitsScale(p.TaxRate, moneyScale):
		fields["tax_rate"] = "must have at most 2 decimal places"
	}

	return fields
}

// Column scales of the line tables; amounts are computed from stored values.
const (
	quantityScale = 3
	moneyScale    = 2
)

func fitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

func newLine(p LineParams, position int) LineItem {
	return LineItem{
		Position:    position,
		Kind:        p.Kind,
		CatalogID:   p.CatalogID,
		Description: strings.TrimSpace(p.Description),
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		TaxRate:     p.TaxRate,
		Amount:      ExtendedAmount(p.Quantity, p.UnitPrice),
	}
}

func nextPosition(lines []LineItem) int {
	highest := 0
	for _, l := range lines {
		if l.Position > highest {
			highest = l.Position
		}
	}

	return highest + 1
}

func findLine(lines []LineItem, id uuid.UUID) (LineItem, bool) {
	for _, l := range lines {
		if l.ID == id {
			return l, true
		}
	}

	return LineItem{}, false
}
