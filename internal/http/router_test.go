package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/garage/internal/conversion"
	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	apphttp "github.com/MrJamesThe3rd/garage/internal/http"
	"github.com/MrJamesThe3rd/garage/internal/http/auth"
	conversionHTTP "github.com/MrJamesThe3rd/garage/internal/http/conversion"
	estimateHTTP "github.com/MrJamesThe3rd/garage/internal/http/estimate"
	"github.com/MrJamesThe3rd/garage/internal/http/importcsv"
	jobHTTP "github.com/MrJamesThe3rd/garage/internal/http/job"
	"github.com/MrJamesThe3rd/garage/internal/importer"
	"github.com/MrJamesThe3rd/garage/internal/job"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
	"github.com/MrJamesThe3rd/garage/internal/storetest"
)

var (
	secret  = []byte("router-test-secret")
	siteID  = uuid.MustParse("0b7e3d52-6f1a-4c84-9b2e-5d7a1c3e9f40")
	clerkID = uuid.MustParse("c4a1e9f2-3b7d-4e58-8a06-1f2d3c4b5a69")
	today   = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
)

type server struct {
	handler    http.Handler
	mem        *storetest.Memory
	customerID uuid.UUID
	vehicleID  uuid.UUID
}

func newServer(t *testing.T) *server {
	t.Helper()

	ctrl := gomock.NewController(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return today }
	caps := database.AllCapabilities()

	mem := storetest.NewMemory(caps)
	numbers := sequence.NewAllocator(sequence.DefaultFormat()).WithClock(clock)
	recorder := history.NewBestEffort(log)

	matcher := importer.NewMockPartMatcher(ctrl)
	matcher.EXPECT().MatchPart(gomock.Any(), siteID, gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	catalog := conversion.NewMockCatalog(ctrl)

	estimates := estimate.NewService(mem.Estimates(), numbers, recorder).WithClock(clock)
	orchestrator := conversion.New(conversion.Deps{
		Repo:         mem.Conversions(),
		Catalog:      catalog,
		Capabilities: caps,
		Numbers:      numbers,
		History:      recorder,
		Logger:       log,
	}).WithClock(clock)

	s := &server{
		mem:        mem,
		customerID: uuid.New(),
		vehicleID:  uuid.New(),
	}

	mem.AddCustomer(s.customerID, true)
	mem.AddVehicle(s.vehicleID, s.customerID, true)

	s.handler = apphttp.New(
		apphttp.Options{JWTSecret: secret, AllowedOrigins: []string{"http://localhost:5173"}},
		estimateHTTP.NewHandler(estimates, mem),
		conversionHTTP.NewHandler(orchestrator),
		importcsv.NewHandler(importer.NewService(matcher, log), estimates),
		jobHTTP.NewHandler(job.NewService(mem), mem),
	)

	return s
}

func token(t *testing.T, caps ...string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		SiteID: siteID.String(),
		Caps:   caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clerkID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(secret)
	require.NoError(t, err)

	return signed
}

func (s *server) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

type estimateBody struct {
	ID             uuid.UUID  `json:"id"`
	Number         string     `json:"number"`
	Status         string     `json:"status"`
	Total          string     `json:"total"`
	ConvertedJobID *uuid.UUID `json:"converted_job_id"`
	Lines          []struct {
		Description string  `json:"description"`
		Amount      string  `json:"amount"`
		CatalogID   *string `json:"catalog_id"`
	} `json:"lines"`
}

type errorBody struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind"`
	Details map[string]string `json:"details"`
}

func (s *server) createEstimate(t *testing.T, bearer string) estimateBody {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/estimates", bearer, map[string]any{
		"customer_id": s.customerID,
		"vehicle_id":  s.vehicleID,
		"notes":       "Brakes squeal when cold",
		"lines": []map[string]any{
			{"kind": "service", "description": "Replace front pads", "quantity": "2", "unit_price": "150", "tax_rate": "18"},
			{"kind": "part", "description": "Pad set", "quantity": "1", "unit_price": "500", "tax_rate": "18"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[estimateBody](t, rec)
}

func TestRouter_Health(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/estimates", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/estimates", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_EstimateToJob(t *testing.T) {
	s := newServer(t)
	bearer := token(t, "approve", "reject", "edit")

	created := s.createEstimate(t, bearer)
	assert.Equal(t, "EST-2601-0001", created.Number)
	assert.Equal(t, "DRAFT", created.Status)
	assert.Equal(t, "800.00", created.Total)
	assert.Len(t, created.Lines, 2)

	rec := s.do(t, http.MethodPost, "/api/v1/estimates/"+created.ID.String()+"/status", bearer,
		map[string]string{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "APPROVED", decode[estimateBody](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/v1/estimates/"+created.ID.String()+"/convert", bearer,
		map[string]any{"priority": "HIGH", "diagnosis": "Worn pads"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	type convertBody struct {
		JobID            uuid.UUID `json:"job_id"`
		JobNumber        string    `json:"job_number"`
		AlreadyConverted bool      `json:"already_converted"`
	}

	first := decode[convertBody](t, rec)
	assert.Equal(t, "JOB-2601-0001", first.JobNumber)
	assert.False(t, first.AlreadyConverted)

	rec = s.do(t, http.MethodPost, "/api/v1/estimates/"+created.ID.String()+"/convert", bearer, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	again := decode[convertBody](t, rec)
	assert.True(t, again.AlreadyConverted)
	assert.Equal(t, first.JobID, again.JobID)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/"+first.JobID.String(), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type jobBody struct {
		Number           string    `json:"number"`
		Status           string    `json:"status"`
		Priority         string    `json:"priority"`
		Diagnosis        string    `json:"diagnosis"`
		OriginEstimateID uuid.UUID `json:"origin_estimate_id"`
		Total            string    `json:"total"`
		Lines            []any     `json:"lines"`
	}

	j := decode[jobBody](t, rec)
	assert.Equal(t, "JOB-2601-0001", j.Number)
	assert.Equal(t, "OPEN", j.Status)
	assert.Equal(t, "HIGH", j.Priority)
	assert.Equal(t, "Worn pads", j.Diagnosis)
	assert.Equal(t, created.ID, j.OriginEstimateID)
	assert.Equal(t, "800.00", j.Total)
	assert.Len(t, j.Lines, 2)

	rec = s.do(t, http.MethodGet, "/api/v1/estimates/"+created.ID.String(), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	converted := decode[estimateBody](t, rec)
	assert.Equal(t, "CONVERTED", converted.Status)
	require.NotNil(t, converted.ConvertedJobID)
	assert.Equal(t, first.JobID, *converted.ConvertedJobID)

	rec = s.do(t, http.MethodGet, "/api/v1/estimates/"+created.ID.String()+"/history", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var actions []string
	for _, e := range decode[[]httpHistory](t, rec) {
		actions = append(actions, e.Action)
	}

	assert.Equal(t, []string{"CREATE", "STATUS", "CONVERT"}, actions)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/"+first.JobID.String()+"/history", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httpHistory](t, rec), 1)
}

type httpHistory struct {
	Action string `json:"action"`
}

func TestRouter_Errors(t *testing.T) {
	s := newServer(t)
	full := token(t, "approve", "reject", "edit")
	draft := s.createEstimate(t, full)
	estimatePath := "/api/v1/estimates/" + draft.ID.String()

	type testCase struct {
		name       string
		method     string
		path       string
		bearer     string
		body       any
		wantStatus int
		wantKind   string
		wantField  string
	}

	tests := []testCase{
		{
			name:       "UnknownEstimate",
			method:     http.MethodGet,
			path:       "/api/v1/estimates/" + uuid.NewString(),
			bearer:     full,
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "MalformedID",
			method:     http.MethodGet,
			path:       "/api/v1/estimates/abc",
			bearer:     full,
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
			wantField:  "id",
		},
		{
			name:       "MissingCustomer",
			method:     http.MethodPost,
			path:       "/api/v1/estimates",
			bearer:     full,
			body:       map[string]any{"vehicle_id": s.vehicleID},
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
			wantField:  "customer_id",
		},
		{
			name:       "ApproveWithoutCapability",
			method:     http.MethodPost,
			path:       estimatePath + "/status",
			bearer:     token(t, "edit"),
			body:       map[string]string{"status": "APPROVED"},
			wantStatus: http.StatusForbidden,
			wantKind:   "missing_capability",
		},
		{
			name:       "RejectWithoutNote",
			method:     http.MethodPost,
			path:       estimatePath + "/status",
			bearer:     full,
			body:       map[string]string{"status": "REJECTED"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "DraftToConverted",
			method:     http.MethodPost,
			path:       estimatePath + "/status",
			bearer:     full,
			body:       map[string]string{"status": "CONVERTED"},
			wantStatus: http.StatusConflict,
			wantKind:   "invalid_transition",
		},
		{
			name:       "ConvertDraft",
			method:     http.MethodPost,
			path:       estimatePath + "/convert",
			bearer:     full,
			body:       map[string]any{},
			wantStatus: http.StatusConflict,
			wantKind:   "not_convertible",
		},
		{
			name:       "StrictConversion",
			method:     http.MethodPost,
			path:       estimatePath + "/convert",
			bearer:     full,
			body:       map[string]any{"strict_input": true},
			wantStatus: http.StatusConflict,
			wantKind:   "not_convertible",
		},
		{
			name:       "UnknownJob",
			method:     http.MethodGet,
			path:       "/api/v1/jobs/" + uuid.NewString(),
			bearer:     full,
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "InvalidStatusFilter",
			method:     http.MethodGet,
			path:       "/api/v1/estimates?status=PENDING",
			bearer:     full,
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.bearer, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Error)

			if tt.wantField != "" {
				assert.Contains(t, body.Details, tt.wantField)
			}
		})
	}
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates", bytes.NewBufferString("customer_id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token(t, "edit"))

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_ListEstimates(t *testing.T) {
	s := newServer(t)
	bearer := token(t, "approve", "reject", "edit")

	first := s.createEstimate(t, bearer)
	s.createEstimate(t, bearer)

	rec := s.do(t, http.MethodPost, "/api/v1/estimates/"+first.ID.String()+"/status", bearer,
		map[string]string{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/estimates", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]estimateBody](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/v1/estimates?status=APPROVED", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	approved := decode[[]estimateBody](t, rec)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)
}

func TestRouter_ImportPartsList(t *testing.T) {
	s := newServer(t)
	bearer := token(t, "edit")
	draft := s.createEstimate(t, bearer)

	csv := "SKU,Description,Qty,Unit Price,Tax %\n" +
		"BRK-1,\"Brake disc, front\",2,120.00,18\n" +
		",Shop supplies,1,5,\n"

	var buf bytes.Buffer

	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "parts.csv")
	require.NoError(t, err)

	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates/"+draft.ID.String()+"/import", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type importBody struct {
		Imported  int          `json:"imported"`
		Matched   int          `json:"matched"`
		Unmatched []string     `json:"unmatched"`
		Charset   string       `json:"charset"`
		Estimate  estimateBody `json:"estimate"`
	}

	got := decode[importBody](t, rec)
	assert.Equal(t, 2, got.Imported)
	assert.Equal(t, 0, got.Matched)
	assert.Equal(t, []string{"Brake disc, front", "Shop supplies"}, got.Unmatched)
	assert.Equal(t, "UTF-8", got.Charset)
	assert.Len(t, got.Estimate.Lines, 4)
	assert.Equal(t, "1045.00", got.Estimate.Total)
}

func TestRouter_ImportRequiresFile(t *testing.T) {
	s := newServer(t)
	bearer := token(t, "edit")
	draft := s.createEstimate(t, bearer)

	var buf bytes.Buffer

	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("note", "no file"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates/"+draft.ID.String()+"/import", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
