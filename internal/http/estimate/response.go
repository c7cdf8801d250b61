package estimate

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
)

type LineResponse struct {
	ID          uuid.UUID         `json:"id"`
	Position    int               `json:"position"`
	Kind        estimate.LineKind `json:"kind"`
	CatalogID   *uuid.UUID        `json:"catalog_id,omitempty"`
	Description string            `json:"description"`
	Quantity    string            `json:"quantity"`
	UnitPrice   string            `json:"unit_price"`
	TaxRate     string            `json:"tax_rate"`
	Amount      string            `json:"amount"`
}

type Response struct {
	ID              uuid.UUID       `json:"id"`
	Number          string          `json:"number"`
	Status          estimate.Status `json:"status"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	VehicleID       uuid.UUID       `json:"vehicle_id"`
	Notes           string          `json:"notes,omitempty"`
	Total           string          `json:"total"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty"`
	ConvertedJobID  *uuid.UUID      `json:"converted_job_id,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []LineResponse  `json:"lines,omitempty"`
}

// NewResponse renders an estimate. Lines are omitted when nil.
func NewResponse(e *estimate.Estimate, lines []estimate.LineItem) Response {
	resp := Response{
		ID:              e.ID,
		Number:          e.Number,
		Status:          e.Status,
		CustomerID:      e.CustomerID,
		VehicleID:       e.VehicleID,
		Notes:           e.Notes,
		Total:           e.Total.StringFixed(2),
		ValidUntil:      e.ValidUntil,
		ConvertedJobID:  e.ConvertedJobID,
		ApprovedAt:      e.ApprovedAt,
		RejectedAt:      e.RejectedAt,
		RejectionReason: e.RejectionReason,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	if lines != nil {
		resp.Lines = make([]LineResponse, 0, len(lines))
	}

	for _, l := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ID:          l.ID,
			Position:    l.Position,
			Kind:        l.Kind,
			CatalogID:   l.CatalogID,
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   l.UnitPrice.StringFixed(2),
			TaxRate:     l.TaxRate.String(),
			Amount:      l.Amount.StringFixed(2),
		})
	}

	return resp
}

func toResponseList(estimates []*estimate.Estimate) []Response {
	out := make([]Response, 0, len(estimates))
	for _, e := range estimates {
		out = append(out, NewResponse(e, nil))
	}

	return out
}
