package job

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
)

var ErrNotFound = errors.New("job not found")

// Status represents the operational state of a job.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusOnHold     Status = "ON_HOLD"
	StatusCompleted  Status = "COMPLETED"
	StatusClosed     Status = "CLOSED"
	StatusCancelled  Status = "CANCELLED"
)

// ActiveStatuses are the statuses in which a job still occupies its vehicle.
var ActiveStatuses = []Status{StatusOpen, StatusInProgress, StatusOnHold}

func (s Status) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}

	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority accepts any casing. ok is false for unknown values.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, true
	}

	return "", false
}

type InsuranceClaim struct {
	Company        string
	PolicyNumber   string
	ClaimNumber    string
	ApprovedAmount *decimal.Decimal
	Deductible     *decimal.Decimal
}

// Job is the operational record of work on a vehicle.
type Job struct {
	ID                 uuid.UUID
	SiteID             uuid.UUID
	Number             string
	CustomerID         uuid.UUID
	VehicleID          uuid.UUID
	Status             Status
	Priority           Priority
	PromisedAt         *time.Time
	Diagnosis          string
	Odometer           *int64
	ClassificationCode *string
	Insurance          *InsuranceClaim
	OriginEstimateID   *uuid.UUID
	Total              decimal.Decimal
	CreatedBy          uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LineItem is a job's copy of a priced line. It never shares identity with its source.
type LineItem struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	Position    int
	Kind        estimate.LineKind
	CatalogID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Amount      decimal.Decimal
}

// Ref is the minimal view of a job used for conflict and idempotency checks.
type Ref struct {
	ID               uuid.UUID
	Number           string
	Status           Status
	OriginEstimateID *uuid.UUID
}
