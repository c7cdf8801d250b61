package estimate

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/http/auth"
	"github.com/MrJamesThe3rd/garage/internal/http/httpkit"
)

type HistoryLister interface {
	List(ctx context.Context, kind history.EntityKind, id uuid.UUID) ([]history.Entry, error)
}

type Handler struct {
	svc     *estimate.Service
	history HistoryLister
}

func NewHandler(svc *estimate.Service, history HistoryLister) *Handler {
	return &Handler{svc: svc, history: history}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/lines", h.addLines)
	r.Patch("/{id}/lines/{lineID}", h.updateLine)
	r.Delete("/{id}/lines/{lineID}", h.removeLine)
	r.Post("/{id}/status", h.transition)
	r.Get("/{id}/history", h.listHistory)
}

type lineRequest struct {
	Kind        estimate.LineKind `json:"kind"`
	CatalogID   *uuid.UUID        `json:"catalog_id"`
	Description string            `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal   `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	TaxRate     decimal.Decimal   `json:"tax_rate"`
}

func (l lineRequest) params() estimate.LineParams {
	return estimate.LineParams{
		Kind:        l.Kind,
		CatalogID:   l.CatalogID,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		TaxRate:     l.TaxRate,
	}
}

type createRequest struct {
	CustomerID uuid.UUID     `json:"customer_id" validate:"required"`
	VehicleID  uuid.UUID     `json:"vehicle_id" validate:"required"`
	Notes      string        `json:"notes" validate:"max=4000"`
	ValidUntil *time.Time    `json:"valid_until"`
	Lines      []lineRequest `json:"lines" validate:"dive"`
}

type linesRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Status estimate.Status `json:"status" validate:"required"`
	Note   string          `json:"note" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := httpkit.Decode(r, &req); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	lines := make([]estimate.LineParams, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, l.params())
	}

	e, err := h.svc.Create(r.Context(), estimate.CreateParams{
		SiteID:     actor.SiteID,
		CustomerID: req.CustomerID,
		VehicleID:  req.VehicleID,
		ActorID:    actor.ID,
		Notes:      req.Notes,
		ValidUntil: req.ValidUntil,
		Lines:      lines,
	})
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	h.writeEstimate(w, r, http.StatusCreated, e)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	filter := estimate.ListFilter{SiteID: actor.SiteID}
	query := r.URL.Query()

	if s := query.Get("status"); s != "" {
		status := estimate.Status(s)
		if !status.Valid() {
			httpkit.Error(w, r, apperr.Newf(apperr.KindValidation, "unknown status %q", s))
			return
		}

		filter.Status = &status
	}

	for param, dst := range map[string]**uuid.UUID{
		"customer_id": &filter.CustomerID,
		"vehicle_id":  &filter.VehicleID,
	} {
		s := query.Get(param)
		if s == "" {
			continue
		}

		id, err := uuid.Parse(s)
		if err != nil {
			httpkit.Error(w, r, apperr.Newf(apperr.KindValidation, "invalid %s", param))
			return
		}

		*dst = &id
	}

	estimates, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	httpkit.JSON(w, http.StatusOK, toResponseList(estimates))
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

	e, err := h.svc.Get(r.Context(), actor.SiteID, id)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	h.writeEstimate(w, r, http.StatusOK, e)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor.EstimateActor(), id); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addLines(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	var req linesRequest
	if err := httpkit.Decode(r, &req); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	params := make([]estimate.LineParams, 0, len(req.Lines))
	for _, l := range req.Lines {
		params = append(params, l.params())
	}

	e, err := h.svc.AddLines(r.Context(), actor.EstimateActor(), id, params)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	h.writeEstimate(w, r, http.StatusOK, e)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	lineID, err := httpkit.URLID(r, "lineID")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	var req lineRequest
	if err := httpkit.Decode(r, &req); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	e, err := h.svc.UpdateLine(r.Context(), actor.EstimateActor(), id, lineID, req.params())
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	h.writeEstimate(w, r, http.StatusOK, e)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	lineID, err := httpkit.URLID(r, "lineID")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	e, err := h.svc.RemoveLine(r.Context(), actor.EstimateActor(), id, lineID)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	h.writeEstimate(w, r, http.StatusOK, e)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	var req transitionRequest
	if err := httpkit.Decode(r, &req); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	e, err := h.svc.Transition(r.Context(), estimate.TransitionParams{
		SiteID:       actor.SiteID,
		EstimateID:   id,
		ActorID:      actor.ID,
		To:           req.Status,
		Note:         req.Note,
		Capabilities: actor.Capabilities,
	})
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	httpkit.JSON(w, http.StatusOK, NewResponse(e, nil))
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

	// Scopes the lookup to the caller's site.
	if _, err := h.svc.Get(r.Context(), actor.SiteID, id); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	entries, err := h.history.List(r.Context(), history.EntityEstimate, id)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	httpkit.JSON(w, http.StatusOK, httpkit.History(entries))
}

func (h *Handler) writeEstimate(w http.ResponseWriter, r *http.Request, status int, e *estimate.Estimate) {
	lines, err := h.svc.Lines(r.Context(), e.ID)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	httpkit.JSON(w, status, NewResponse(e, lines))
}
