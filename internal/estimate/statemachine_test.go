package estimate_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
)

var allStatuses = []estimate.Status{
	estimate.StatusDraft,
	estimate.StatusApproved,
	estimate.StatusRejected,
	estimate.StatusConverted,
}

func TestCanTransition(t *testing.T) {
	allowed := map[estimate.Status][]estimate.Status{
		estimate.StatusDraft:     {estimate.StatusApproved, estimate.StatusRejected},
		estimate.StatusApproved:  {estimate.StatusRejected, estimate.StatusConverted},
		estimate.StatusRejected:  {estimate.StatusDraft, estimate.StatusApproved},
		estimate.StatusConverted: nil,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}

			assert.Equal(t, want, estimate.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	all := estimate.NewCapabilities("approve", "reject", "edit")

	type testCase struct {
		name     string
		from     estimate.Status
		to       estimate.Status
		note     string
		caps     estimate.Capabilities
		wantNoop bool
		wantKind apperr.Kind
	}

	tests := []testCase{
		{name: "DraftToApproved", from: estimate.StatusDraft, to: estimate.StatusApproved, caps: all},
		{name: "DraftToRejected", from: estimate.StatusDraft, to: estimate.StatusRejected, note: "too expensive", caps: all},
		{name: "ApprovedToRejected", from: estimate.StatusApproved, to: estimate.StatusRejected, note: "customer declined", caps: all},
		{name: "RejectedToDraft", from: estimate.StatusRejected, to: estimate.StatusDraft, caps: all},
		{name: "RejectedToApproved", from: estimate.StatusRejected, to: estimate.StatusApproved, caps: all},
		{name: "SelfIsNoop", from: estimate.StatusApproved, to: estimate.StatusApproved, wantNoop: true},
		{name: "ConvertedSelfIsNoop", from: estimate.StatusConverted, to: estimate.StatusConverted, wantNoop: true},
		{name: "ApprovedToDraft", from: estimate.StatusApproved, to: estimate.StatusDraft, caps: all, wantKind: apperr.KindInvalidTransition},
		{name: "DraftToConverted", from: estimate.StatusDraft, to: estimate.StatusConverted, caps: all, wantKind: apperr.KindInvalidTransition},
		{name: "ConvertedIsTerminal", from: estimate.StatusConverted, to: estimate.StatusDraft, caps: all, wantKind: apperr.KindInvalidTransition},
		{name: "RejectWithoutNote", from: estimate.StatusDraft, to: estimate.StatusRejected, note: "   ", caps: all, wantKind: apperr.KindValidation},
		{name: "ApproveWithoutCapability", from: estimate.StatusDraft, to: estimate.StatusApproved, caps: estimate.NewCapabilities("reject"), wantKind: apperr.KindMissingCapability},
		{name: "RejectWithoutCapability", from: estimate.StatusApproved, to: estimate.StatusRejected, note: "no", caps: estimate.NewCapabilities("approve"), wantKind: apperr.KindMissingCapability},
		{name: "ReopenWithoutCapability", from: estimate.StatusRejected, to: estimate.StatusDraft, caps: estimate.NewCapabilities("approve", "reject"), wantKind: apperr.KindMissingCapability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &estimate.Estimate{Status: tt.from}

			noop, err := estimate.CheckTransition(e, tt.to, tt.note, tt.caps)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.GetKind(err))
				assert.False(t, noop)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantNoop, noop)
		})
	}
}

func TestApplyTransition(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	actor := uuid.New()

	e := &estimate.Estimate{Status: estimate.StatusDraft}

	from := estimate.ApplyTransition(e, estimate.StatusRejected, "  too expensive ", actor, now)
	assert.Equal(t, estimate.StatusDraft, from)
	assert.Equal(t, estimate.StatusRejected, e.Status)
	require.NotNil(t, e.RejectionReason)
	assert.Equal(t, "too expensive", *e.RejectionReason)
	assert.Equal(t, now, *e.RejectedAt)
	assert.Equal(t, actor, e.UpdatedBy)

	estimate.ApplyTransition(e, estimate.StatusApproved, "", actor, now.Add(time.Hour))
	assert.Equal(t, estimate.StatusApproved, e.Status)
	assert.Nil(t, e.RejectionReason)
	assert.Nil(t, e.RejectedAt)
	assert.Equal(t, now.Add(time.Hour), *e.ApprovedAt)
}

func TestMarkConverted(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	jobID := uuid.New()

	t.Run("Approved", func(t *testing.T) {
		e := &estimate.Estimate{Status: estimate.StatusApproved}

		require.NoError(t, estimate.MarkConverted(e, jobID, uuid.New(), now))
		assert.Equal(t, estimate.StatusConverted, e.Status)
		assert.Equal(t, jobID, *e.ConvertedJobID)
	})

	t.Run("Draft", func(t *testing.T) {
		e := &estimate.Estimate{Status: estimate.StatusDraft}

		err := estimate.MarkConverted(e, jobID, uuid.New(), now)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(err))
		assert.Nil(t, e.ConvertedJobID)
	})
}

func TestPredicates(t *testing.T) {
	deleted := time.Now()

	type testCase struct {
		name            string
		e               estimate.Estimate
		wantEditable    bool
		wantConvertible bool
		wantDeletable   bool
	}

	tests := []testCase{
		{name: "Draft", e: estimate.Estimate{Status: estimate.StatusDraft}, wantEditable: true, wantDeletable: true},
		{name: "Approved", e: estimate.Estimate{Status: estimate.StatusApproved}, wantConvertible: true},
		{name: "ApprovedWithJob", e: estimate.Estimate{Status: estimate.StatusApproved, ConvertedJobID: new(uuid.New())}},
		{name: "Rejected", e: estimate.Estimate{Status: estimate.StatusRejected}, wantDeletable: true},
		{name: "Converted", e: estimate.Estimate{Status: estimate.StatusConverted}},
		{name: "DeletedDraft", e: estimate.Estimate{Status: estimate.StatusDraft, DeletedAt: &deleted}},
		{name: "DeletedApproved", e: estimate.Estimate{Status: estimate.StatusApproved, DeletedAt: &deleted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantEditable, tt.e.IsEditable())
			assert.Equal(t, tt.wantConvertible, tt.e.IsConvertible())
			assert.Equal(t, tt.wantDeletable, tt.e.IsDeletable())
		})
	}
}
