// Package conversion turns an approved estimate into a job in a single transaction.
package conversion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/catalog"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/job"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
)

type Repository interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the unit of work a conversion runs in. LockEstimate and the sequence counter
// hold row locks until Commit or Rollback.
type Tx interface {
	sequence.Counter
	history.Appender
	job.Sink
	reminder.Store

	LockEstimate(ctx context.Context, siteID, id uuid.UUID) (*estimate.Estimate, error)
	EstimateLines(ctx context.Context, estimateID uuid.UUID) ([]estimate.LineItem, error)
	UpdateEstimate(ctx context.Context, e *estimate.Estimate) error

	JobByOrigin(ctx context.Context, estimateID uuid.UUID) (*job.Ref, error)
	JobByID(ctx context.Context, jobID uuid.UUID) (*job.Ref, error)
	OpenJobsForVehicle(ctx context.Context, vehicleID uuid.UUID) ([]job.Ref, error)
	SetAssignees(ctx context.Context, jobID uuid.UUID, userIDs []uuid.UUID) error

	Parties(ctx context.Context, customerID, vehicleID uuid.UUID) (*Parties, error)

	Commit() error
	Rollback() error
}

// Parties describes the customer and vehicle an estimate points at. Nil means either row is missing.
type Parties struct {
	CustomerActive bool
	VehicleActive  bool
	VehicleOwnerID uuid.UUID
}

//go:generate mockgen -source=conversion.go -destination=catalog_mock.go -package=conversion -exclude_interfaces=Repository,Tx,SchemaCapabilities
type Catalog interface {
	Classification(ctx context.Context, siteID uuid.UUID, code string) (*catalog.Classification, error)
	ResolveUsers(ctx context.Context, siteID uuid.UUID, ids []uuid.UUID) (active, unknown []uuid.UUID, err error)
}

// SchemaCapabilities reports optional schema features. Fields backed by a missing
// feature are ignored rather than rejected.
type SchemaCapabilities interface {
	SupportsJobOrigin() bool
	SupportsJobClassification() bool
	SupportsInsuranceFields() bool
	SupportsAssignees() bool
	SupportsMaintenanceReminders() bool
}

// Options are the caller's choices for the new job. Everything is optional unless StrictInput is set.
type Options struct {
	Priority       string          `json:"priority"`
	PromisedAt     *time.Time      `json:"promised_at"`
	Diagnosis      string          `json:"diagnosis" validate:"max=4000"`
	Odometer       *int64          `json:"odometer" validate:"omitempty,gte=0"`
	Classification string          `json:"classification" validate:"max=64"`
	Insurance      *InsuranceInput `json:"insurance"`
	Assignees      []uuid.UUID     `json:"assignees"`
	Reminders      []ReminderInput `json:"reminders"`
	// StrictInput rejects missing or malformed fields instead of defaulting them.
	StrictInput bool `json:"strict_input"`
}

type InsuranceInput struct {
	Company        string `json:"company" validate:"max=120"`
	PolicyNumber   string `json:"policy_number" validate:"max=64"`
	ClaimNumber    string `json:"claim_number" validate:"max=64"`
	ApprovedAmount string `json:"approved_amount" validate:"omitempty,numeric"`
	Deductible     string `json:"deductible" validate:"omitempty,numeric"`
}

type ReminderInput struct {
	ID            uuid.UUID  `json:"id"`
	Action        string     `json:"action"`
	PostponeUntil *time.Time `json:"postpone_until"`
}

type Request struct {
	SiteID     uuid.UUID
	EstimateID uuid.UUID
	ActorID    uuid.UUID
	Options    Options
}

type Result struct {
	JobID            uuid.UUID
	JobNumber        string
	AlreadyConverted bool
	// Anomaly describes back-reference disagreements found on an already converted estimate.
	Anomaly string
}
