// Package httpkit holds the JSON plumbing shared by the HTTP handlers.
package httpkit

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/validate"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Kind    apperr.Kind `json:"kind,omitempty"`
	Details any         `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// Error writes err with the status of its apperr kind. Internal failures are logged
// and answered with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.KindInternal, "internal error", err)
	}

	if appErr.Kind == apperr.KindInternal {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		JSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: apperr.KindInternal})

		return
	}

	JSON(w, appErr.HTTPStatus(), ErrorResponse{Error: appErr.Error(), Kind: appErr.Kind, Details: appErr.Details})
}

var validator = validate.New()

// DecodeJSON reads a JSON body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.KindValidation, "invalid request body: "+err.Error(), err)
	}

	return nil
}

// Decode is DecodeJSON followed by struct tag validation.
func Decode(r *http.Request, v any) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}

	fields, err := validator.Fields(v)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}

	if len(fields) > 0 {
		return apperr.New(apperr.KindValidation, "invalid request").WithDetails(fields)
	}

	return nil
}

// URLID parses the named chi URL parameter as a UUID.
func URLID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.KindValidation, "invalid %s", name).
			WithDetails(apperr.FieldErrors{name: "must be a UUID"})
	}

	return id, nil
}

type HistoryEntry struct {
	ID         uuid.UUID      `json:"id"`
	Action     history.Action `json:"action"`
	FromStatus *string        `json:"from_status,omitempty"`
	ToStatus   *string        `json:"to_status,omitempty"`
	Note       *string        `json:"note,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	ActorID    uuid.UUID      `json:"actor_id"`
	CreatedAt  time.Time      `json:"created_at"`
}

func History(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			ID:         e.ID,
			Action:     e.Action,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Note:       e.Note,
			Payload:    e.Payload,
			ActorID:    e.ActorID,
			CreatedAt:  e.CreatedAt,
		})
	}

	return out
}
