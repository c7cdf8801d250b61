package estimate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
	"github.com/MrJamesThe3rd/garage/internal/storetest"
)

var (
	siteID = uuid.MustParse("3f2a9f0e-1d8c-4d53-9a0b-7c1e5b6a4d21")
	clerk  = uuid.MustParse("9e8d7c6b-5a49-4382-9170-6f5e4d3c2b1a")
	now    = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
)

func newService(repo estimate.Repository) *estimate.Service {
	clock := func() time.Time { return now }
	numbers := sequence.NewAllocator(sequence.DefaultFormat()).WithClock(clock)
	recorder := history.NewBestEffort(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return estimate.NewService(repo, numbers, recorder).WithClock(clock)
}

func lineParams(desc, qty, price string) estimate.LineParams {
	return estimate.LineParams{
		Kind:        estimate.LineService,
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		TaxRate:     decimal.NewFromInt(18),
	}
}

func editor() estimate.Actor {
	return estimate.Actor{SiteID: siteID, ID: clerk, Capabilities: estimate.NewCapabilities("approve", "reject", "edit")}
}

func createDraft(t *testing.T, svc *estimate.Service, lines ...estimate.LineParams) *estimate.Estimate {
	t.Helper()

	e, err := svc.Create(context.Background(), estimate.CreateParams{
		SiteID:     siteID,
		CustomerID: uuid.New(),
		VehicleID:  uuid.New(),
		ActorID:    clerk,
		Notes:      "Front brakes",
		Lines:      lines,
	})
	require.NoError(t, err)

	return e
}

func TestService_Create(t *testing.T) {
	mem := storetest.NewMemory(database.AllCapabilities())
	svc := newService(mem.Estimates())

	first := createDraft(t, svc, lineParams("Brake pads", "2", "250"), lineParams("Labour", "1", "300"))
	second := createDraft(t, svc)

	assert.Equal(t, "EST-2601-0001", first.Number)
	assert.Equal(t, "EST-2601-0002", second.Number)
	assert.Equal(t, estimate.StatusDraft, first.Status)
	assert.Equal(t, "800.00", first.Total.StringFixed(2))
	assert.Equal(t, "0.00", second.Total.StringFixed(2))

	lines, err := svc.Lines(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Position)
	assert.Equal(t, "500.00", lines[0].Amount.StringFixed(2))
	assert.Equal(t, 2, lines[1].Position)

	entries := mem.History(history.EntityEstimate, first.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionCreate, entries[0].Action)
	assert.Equal(t, "DRAFT", *entries[0].ToStatus)
}

func TestService_Create_Validation(t *testing.T) {
	mem := storetest.NewMemory(database.AllCapabilities())
	svc := newService(mem.Estimates())

	bad := lineParams("", "0", "-1")

	_, err := svc.Create(context.Background(), estimate.CreateParams{
		SiteID:    siteID,
		VehicleID: uuid.New(),
		Lines:     []estimate.LineParams{bad},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))

	fields, ok := appErr.Details.(apperr.FieldErrors)
	require.True(t, ok)
	assert.Contains(t, fields, "customer_id")
	assert.Contains(t, fields, "lines[0].description")
	assert.Contains(t, fields, "lines[0].quantity")
	assert.Contains(t, fields, "lines[0].unit_price")

	list, err := svc.List(context.Background(), estimate.ListFilter{SiteID: siteID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_Create_Precision(t *testing.T) {
	type testCase struct {
		name       string
		line       estimate.LineParams
		wantFields []string
	}

	withTax := func(p estimate.LineParams, rate string) estimate.LineParams {
		p.TaxRate = decimal.RequireFromString(rate)
		return p
	}

	tests := []testCase{
		{name: "QuantityScale", line: lineParams("Oil", "1.0005", "100"), wantFields: []string{"lines[0].quantity"}},
		{name: "UnitPriceScale", line: lineParams("Oil", "1", "100.004"), wantFields: []string{"lines[0].unit_price"}},
		{name: "Both", line: lineParams("Oil", "1.0005", "100.004"), wantFields: []string{"lines[0].quantity", "lines[0].unit_price"}},
		{name: "TaxRateScale", line: withTax(lineParams("Oil", "1", "100"), "18.125"), wantFields: []string{"lines[0].tax_rate"}},
		{name: "TrailingZeros", line: lineParams("Oil", "1.50000", "100.0000")},
		{name: "AtColumnScale", line: lineParams("Oil", "1.125", "99.99")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storetest.NewMemory(database.AllCapabilities())
			svc := newService(mem.Estimates())

			e, err := svc.Create(context.Background(), estimate.CreateParams{
				SiteID:     siteID,
				CustomerID: uuid.New(),
				VehicleID:  uuid.New(),
				ActorID:    clerk,
				Lines:      []estimate.LineParams{tt.line},
			})

			if len(tt.wantFields) == 0 {
				require.NoError(t, err)

				lines, err := svc.Lines(context.Background(), e.ID)
				require.NoError(t, err)
				require.Len(t, lines, 1)
				assert.True(t, lines[0].Amount.Equal(estimate.ExtendedAmount(lines[0].Quantity.Round(3), lines[0].UnitPrice.Round(2))))
				assert.True(t, e.Total.Equal(lines[0].Amount))

				return
			}

			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr))

			fields, ok := appErr.Details.(apperr.FieldErrors)
			require.True(t, ok)
			assert.Len(t, fields, len(tt.wantFields))

			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestService_Lines(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory(database.AllCapabilities())
	svc := newService(mem.Estimates())

	e := createDraft(t, svc, lineParams("Brake pads", "2", "250"))

	got, err := svc.AddLines(ctx, editor(), e.ID, []estimate.LineParams{lineParams("Labour", "1.5", "120")})
	require.NoError(t, err)
	assert.Equal(t, "680.00", got.Total.StringFixed(2))

	lines, err := svc.Lines(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[1].Position)

	got, err = svc.UpdateLine(ctx, editor(), e.ID, lines[0].ID, lineParams("Brake pads", "4", "250"))
	require.NoError(t, err)
	assert.Equal(t, "1180.00", got.Total.StringFixed(2))

	got, err = svc.RemoveLine(ctx, editor(), e.ID, lines[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.Total.StringFixed(2))

	_, err = svc.RemoveLine(ctx, editor(), e.ID, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	stored, err := svc.Get(ctx, siteID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", stored.Total.StringFixed(2))

	entries := mem.History(history.EntityEstimate, e.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, history.ActionUpdateLines, entries[3].Action)
	assert.Equal(t, "remove", entries[3].Payload["op"])
}

func TestService_Lines_Rejected(t *testing.T) {
	ctx := context.Background()

	type testCase struct {
		name     string
		actor    estimate.Actor
		approve  bool
		wantKind apperr.Kind
	}

	tests := []testCase{
		{
			name:     "MissingCapability",
			actor:    estimate.Actor{SiteID: siteID, ID: clerk, Capabilities: estimate.NewCapabilities("approve")},
			wantKind: apperr.KindMissingCapability,
		},
		{
			name:     "NotEditable",
			actor:    editor(),
			approve:  true,
			wantKind: apperr.KindNotEditable,
		},
		{
			name:     "OtherSite",
			actor:    estimate.Actor{SiteID: uuid.New(), ID: clerk, Capabilities: estimate.NewCapabilities("edit")},
			wantKind: apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storetest.NewMemory(database.AllCapabilities())
			svc := newService(mem.Estimates())
			e := createDraft(t, svc, lineParams("Brake pads", "2", "250"))

			if tt.approve {
				_, err := svc.Transition(ctx, estimate.TransitionParams{
					SiteID: siteID, EstimateID: e.ID, ActorID: clerk,
					To: estimate.StatusApproved, Capabilities: editor().Capabilities,
				})
				require.NoError(t, err)
			}

			_, err := svc.AddLines(ctx, tt.actor, e.ID, []estimate.LineParams{lineParams("Labour", "1", "100")})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.GetKind(err))

			lines, err := svc.Lines(ctx, e.ID)
			require.NoError(t, err)
			assert.Len(t, lines, 1)
		})
	}
}

func TestService_Transition(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory(database.AllCapabilities())
	svc := newService(mem.Estimates())
	e := createDraft(t, svc, lineParams("Brake pads", "2", "250"))

	transition := func(to estimate.Status, note string, caps estimate.Capabilities) (*estimate.Estimate, error) {
		return svc.Transition(ctx, estimate.TransitionParams{
			SiteID:       siteID,
			EstimateID:   e.ID,
			ActorID:      clerk,
			To:           to,
			Note:         note,
			Capabilities: caps,
		})
	}

	all := editor().Capabilities

	_, err := transition(estimate.StatusRejected, "", all)
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	_, err = transition(estimate.StatusApproved, "", estimate.NewCapabilities("reject"))
	assert.Equal(t, apperr.KindMissingCapability, apperr.GetKind(err))

	_, err = transition(estimate.StatusConverted, "", all)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err))

	_, err = transition("SHIPPED", "", all)
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	got, err := transition(estimate.StatusRejected, "Customer found it cheaper", all)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusRejected, got.Status)
	assert.Equal(t, "Customer found it cheaper", *got.RejectionReason)

	got, err = transition(estimate.StatusApproved, "", all)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusApproved, got.Status)
	assert.Equal(t, now, *got.ApprovedAt)
	assert.Nil(t, got.RejectionReason)

	got, err = transition(estimate.StatusApproved, "", nil)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusApproved, got.Status)

	_, err = transition(estimate.StatusConverted, "", all)
	assert.Equal(t, apperr.KindNotConvertible, apperr.GetKind(err))

	_, err = transition(estimate.StatusDraft, "", all)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err))

	entries := mem.History(history.EntityEstimate, e.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, history.ActionStatus, entries[1].Action)
	assert.Equal(t, "DRAFT", *entries[1].FromStatus)
	assert.Equal(t, "REJECTED", *entries[1].ToStatus)
	assert.Equal(t, "Customer found it cheaper", *entries[1].Note)
	assert.Equal(t, "REJECTED", *entries[2].FromStatus)
	assert.Equal(t, "APPROVED", *entries[2].ToStatus)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory(database.AllCapabilities())
	svc := newService(mem.Estimates())

	draft := createDraft(t, svc)
	approved := createDraft(t, svc, lineParams("Labour", "1", "100"))

	_, err := svc.Transition(ctx, estimate.TransitionParams{
		SiteID: siteID, EstimateID: approved.ID, ActorID: clerk,
		To: estimate.StatusApproved, Capabilities: editor().Capabilities,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, editor(), approved.ID)
	assert.Equal(t, apperr.KindNotEditable, apperr.GetKind(err))

	err = svc.Delete(ctx, estimate.Actor{SiteID: siteID, ID: clerk}, draft.ID)
	assert.Equal(t, apperr.KindMissingCapability, apperr.GetKind(err))

	require.NoError(t, svc.Delete(ctx, editor(), draft.ID))

	_, err = svc.Get(ctx, siteID, draft.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	err = svc.Delete(ctx, editor(), draft.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	list, err := svc.List(ctx, estimate.ListFilter{SiteID: siteID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, approved.ID, list[0].ID)

	entries := mem.History(history.EntityEstimate, draft.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, history.ActionDelete, entries[1].Action)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory(database.AllCapabilities())
	svc := newService(mem.Estimates())

	a := createDraft(t, svc)
	createDraft(t, svc)

	_, err := svc.Transition(ctx, estimate.TransitionParams{
		SiteID: siteID, EstimateID: a.ID, ActorID: clerk,
		To: estimate.StatusApproved, Capabilities: editor().Capabilities,
	})
	require.NoError(t, err)

	approved := estimate.StatusApproved

	type testCase struct {
		name    string
		filter  estimate.ListFilter
		wantLen int
	}

	tests := []testCase{
		{name: "All", filter: estimate.ListFilter{SiteID: siteID}, wantLen: 2},
		{name: "ByStatus", filter: estimate.ListFilter{SiteID: siteID, Status: &approved}, wantLen: 1},
		{name: "ByVehicle", filter: estimate.ListFilter{SiteID: siteID, VehicleID: &a.VehicleID}, wantLen: 1},
		{name: "OtherSite", filter: estimate.ListFilter{SiteID: uuid.New()}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_RepositoryFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	type testCase struct {
		name      string
		setupMock func(repo *estimate.MockRepository, tx *estimate.MockTx)
		call      func(svc *estimate.Service) error
		wantKind  apperr.Kind
	}

	tests := []testCase{
		{
			name: "GetNotFound",
			setupMock: func(repo *estimate.MockRepository, _ *estimate.MockTx) {
				repo.EXPECT().GetEstimate(gomock.Any(), siteID, gomock.Any()).Return(nil, estimate.ErrNotFound)
			},
			call: func(svc *estimate.Service) error {
				_, err := svc.Get(ctx, siteID, uuid.New())
				return err
			},
			wantKind: apperr.KindNotFound,
		},
		{
			name: "BeginFails",
			setupMock: func(repo *estimate.MockRepository, _ *estimate.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(nil, boom)
			},
			call: func(svc *estimate.Service) error {
				_, err := svc.Create(ctx, estimate.CreateParams{SiteID: siteID, CustomerID: uuid.New(), VehicleID: uuid.New()})
				return err
			},
		},
		{
			name: "CounterFailsAndRollsBack",
			setupMock: func(repo *estimate.MockRepository, tx *estimate.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().IncrementCounter(gomock.Any(), siteID, sequence.KindEstimate).Return(int64(0), boom)
				tx.EXPECT().Rollback().Return(nil)
			},
			call: func(svc *estimate.Service) error {
				_, err := svc.Create(ctx, estimate.CreateParams{SiteID: siteID, CustomerID: uuid.New(), VehicleID: uuid.New()})
				return err
			},
		},
		{
			name: "HistoryFailureStillCommits",
			setupMock: func(repo *estimate.MockRepository, tx *estimate.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().IncrementCounter(gomock.Any(), siteID, sequence.KindEstimate).Return(int64(7), nil)
				tx.EXPECT().InsertEstimate(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e *estimate.Estimate) error {
						assert.Equal(t, "EST-2601-0007", e.Number)
						e.ID = uuid.New()

						return nil
					})
				tx.EXPECT().AppendHistory(gomock.Any(), gomock.Any()).Return(boom)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			call: func(svc *estimate.Service) error {
				_, err := svc.Create(ctx, estimate.CreateParams{SiteID: siteID, CustomerID: uuid.New(), VehicleID: uuid.New()})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := estimate.NewMockRepository(ctrl)
			tx := estimate.NewMockTx(ctrl)
			tt.setupMock(repo, tx)

			err := tt.call(newService(repo))

			switch {
			case tt.name == "HistoryFailureStillCommits":
				assert.NoError(t, err)
			case tt.wantKind != "":
				assert.Equal(t, tt.wantKind, apperr.GetKind(err))
			default:
				assert.ErrorIs(t, err, boom)
			}
		})
	}
}
