package estimate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an estimate.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusConverted Status = "CONVERTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusRejected, StatusConverted:
		return true
	}

	return false
}

// LineKind separates labour from parts.
type LineKind string

const (
	LineService LineKind = "service"
	LinePart    LineKind = "part"
)

// Estimate is a priced offer of work for one vehicle of one customer.
type Estimate struct {
	ID              uuid.UUID
	SiteID          uuid.UUID
	Number          string
	CustomerID      uuid.UUID
	VehicleID       uuid.UUID
	Notes           string
	Status          Status
	Total           decimal.Decimal
	ValidUntil      *time.Time
	ConvertedJobID  *uuid.UUID
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
	CreatedBy       uuid.UUID
	UpdatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// LineItem is one priced row of an estimate. Job lines share the same shape.
type LineItem struct {
	ID          uuid.UUID
	EstimateID  uuid.UUID
	Position    int
	Kind        LineKind
	CatalogID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal // percent, e.g. 18 for 18%
	Amount      decimal.Decimal // Quantity × UnitPrice, rounded to cents
}

// ExtendedAmount is the pre-tax value of a line, rounded to cents.
func ExtendedAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// Total sums the line amounts.
func Total(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}

	return total
}
