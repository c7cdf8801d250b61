package job

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/http/auth"
	"github.com/MrJamesThe3rd/garage/internal/http/httpkit"
	"github.com/MrJamesThe3rd/garage/internal/job"
)

type HistoryLister interface {
	List(ctx context.Context, kind history.EntityKind, id uuid.UUID) ([]history.Entry, error)
}

type Handler struct {
	svc     *job.Service
	history HistoryLister
}

func NewHandler(svc *job.Service, history HistoryLister) *Handler {
	return &Handler{svc: svc, history: history}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Get("/{id}/history", h.listHistory)
}

type insuranceResponse struct {
	Company        string  `json:"company,omitempty"`
	PolicyNumber   string  `json:"policy_number,omitempty"`
	ClaimNumber    string  `json:"claim_number,omitempty"`
	ApprovedAmount *string `json:"approved_amount,omitempty"`
	Deductible     *string `json:"deductible,omitempty"`
}

type lineResponse struct {
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

type jobResponse struct {
	ID               uuid.UUID          `json:"id"`
	Number           string             `json:"number"`
	Status           job.Status         `json:"status"`
	Priority         job.Priority       `json:"priority"`
	CustomerID       uuid.UUID          `json:"customer_id"`
	VehicleID        uuid.UUID          `json:"vehicle_id"`
	PromisedAt       *time.Time         `json:"promised_at,omitempty"`
	Diagnosis        string             `json:"diagnosis"`
	Odometer         *int64             `json:"odometer,omitempty"`
	Classification   *string            `json:"classification,omitempty"`
	Insurance        *insuranceResponse `json:"insurance,omitempty"`
	OriginEstimateID *uuid.UUID         `json:"origin_estimate_id,omitempty"`
	Total            string             `json:"total"`
	CreatedAt        time.Time          `json:"created_at"`
	Lines            []lineResponse     `json:"lines"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	j, lines, err := h.svc.Get(r.Context(), actor.SiteID, id)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	httpkit.JSON(w, http.StatusOK, toResponse(j, lines))
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	if _, _, err := h.svc.Get(r.Context(), actor.SiteID, id); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	entries, err := h.history.List(r.Context(), history.EntityJob, id)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	httpkit.JSON(w, http.StatusOK, httpkit.History(entries))
}

func toResponse(j *job.Job, lines []job.LineItem) jobResponse {
	resp := jobResponse{
		ID:               j.ID,
		Number:           j.Number,
		Status:           j.Status,
		Priority:         j.Priority,
		CustomerID:       j.CustomerID,
		VehicleID:        j.VehicleID,
		PromisedAt:       j.PromisedAt,
		Diagnosis:        j.Diagnosis,
		Odometer:         j.Odometer,
		Classification:   j.ClassificationCode,
		OriginEstimateID: j.OriginEstimateID,
		Total:            j.Total.StringFixed(2),
		CreatedAt:        j.CreatedAt,
		Lines:            make([]lineResponse, 0, len(lines)),
	}

	if ins := j.Insurance; ins != nil {
		resp.Insurance = &insuranceResponse{
			Company:      ins.Company,
			PolicyNumber: ins.PolicyNumber,
			ClaimNumber:  ins.ClaimNumber,
		}

		if ins.ApprovedAmount != nil {
			resp.Insurance.ApprovedAmount = new(ins.ApprovedAmount.StringFixed(2))
		}

		if ins.Deductible != nil {
			resp.Insurance.Deductible = new(ins.Deductible.StringFixed(2))
		}
	}

	for _, l := range lines {
		resp.Lines = append(resp.Lines, lineResponse{
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
