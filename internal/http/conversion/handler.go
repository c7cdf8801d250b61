package conversion

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/conversion"
	"github.com/MrJamesThe3rd/garage/internal/http/auth"
	"github.com/MrJamesThe3rd/garage/internal/http/httpkit"
)

type Handler struct {
	orchestrator *conversion.Orchestrator
}

func NewHandler(orchestrator *conversion.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// Routes mounts under the estimates router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/{id}/convert", h.convert)
}

type convertResponse struct {
	JobID            uuid.UUID `json:"job_id"`
	JobNumber        string    `json:"job_number"`
	AlreadyConverted bool      `json:"already_converted"`
	Anomaly          string    `json:"anomaly,omitempty"`
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	// Options are validated by the orchestrator, which drops bad fields unless strict_input is set.
	var opts conversion.Options
	if err := httpkit.DecodeJSON(r, &opts); err != nil {
		httpkit.Error(w, r, err)
		return
	}

	res, err := h.orchestrator.Convert(r.Context(), conversion.Request{
		SiteID:     actor.SiteID,
		EstimateID: id,
		ActorID:    actor.ID,
		Options:    opts,
	})
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyConverted {
		status = http.StatusOK
	}

	httpkit.JSON(w, status, convertResponse{
		JobID:            res.JobID,
		JobNumber:        res.JobNumber,
		AlreadyConverted: res.AlreadyConverted,
		Anomaly:          res.Anomaly,
	})
}
