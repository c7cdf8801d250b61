package importcsv

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/http/auth"
	estimateHTTP "github.com/MrJamesThe3rd/garage/internal/http/estimate"
	"github.com/MrJamesThe3rd/garage/internal/http/httpkit"
	"github.com/MrJamesThe3rd/garage/internal/importer"
)

const maxUpload = 10 << 20

type Handler struct {
	importSvc   *importer.Service
	estimateSvc *estimate.Service
}

func NewHandler(importSvc *importer.Service, estimateSvc *estimate.Service) *Handler {
	return &Handler{
		importSvc:   importSvc,
		estimateSvc: estimateSvc,
	}
}

// Routes mounts under the estimates router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/{id}/import", h.importCSV)
}

type importResponse struct {
	Imported  int                   `json:"imported"`
	Matched   int                   `json:"matched"`
	Unmatched []string              `json:"unmatched"`
	Charset   string                `json:"charset"`
	Estimate  estimateHTTP.Response `json:"estimate"`
}

// importCSV appends every row of an uploaded supplier parts list to a draft estimate.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Require(w, r)
	if !ok {
		return
	}

	id, err := httpkit.URLID(r, "id")
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		httpkit.Error(w, r, apperr.Wrap(apperr.KindValidation, "failed to parse form: "+err.Error(), err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpkit.Error(w, r, apperr.New(apperr.KindValidation, "file field is required"))
		return
	}
	defer file.Close()

	res, err := h.importSvc.Lines(r.Context(), actor.SiteID, file)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	e, err := h.estimateSvc.AddLines(r.Context(), actor.EstimateActor(), id, res.Lines)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	lines, err := h.estimateSvc.Lines(r.Context(), e.ID)
	if err != nil {
		httpkit.Error(w, r, err)
		return
	}

	unmatched := res.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}

	httpkit.JSON(w, http.StatusOK, importResponse{
		Imported:  len(res.Lines),
		Matched:   res.Matched,
		Unmatched: unmatched,
		Charset:   res.Charset,
		Estimate:  estimateHTTP.NewResponse(e, lines),
	})
}
