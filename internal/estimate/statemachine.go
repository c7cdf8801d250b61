package estimate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
)

// Capability is a permission the caller holds. Computing it is the caller's business.
type Capability string

const (
	CapabilityApprove Capability = "approve"
	CapabilityReject  Capability = "reject"
	CapabilityEdit    Capability = "edit"
)

type Capabilities map[Capability]bool

func NewCapabilities(caps ...string) Capabilities {
	c := make(Capabilities, len(caps))
	for _, name := range caps {
		c[Capability(strings.ToLower(strings.TrimSpace(name)))] = true
	}

	return c
}

func (c Capabilities) Has(want Capability) bool {
	return c[want]
}

var transitions = map[Status][]Status{
	StatusDraft:     {StatusApproved, StatusRejected},
	StatusApproved:  {StatusRejected, StatusConverted},
	StatusRejected:  {StatusDraft, StatusApproved},
	StatusConverted: nil,
}

// requiredCapability lists the capability needed to move into a status.
// CONVERTED is absent: only the conversion workflow reaches it.
var requiredCapability = map[Status]Capability{
	StatusApproved: CapabilityApprove,
	StatusRejected: CapabilityReject,
	StatusDraft:    CapabilityEdit,
}

// CanTransition reports whether the table allows from → to. A self transition is not in the table.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// TransitionDetails is attached to InvalidTransition errors.
type TransitionDetails struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

// CheckTransition validates a status change without applying it.
// It returns noop=true when the estimate is already in the target status.
func CheckTransition(e *Estimate, to Status, note string, caps Capabilities) (noop bool, err error) {
	if e.Status == to {
		return true, nil
	}

	if !CanTransition(e.Status, to) {
		return false, invalidTransition(e.Status, to)
	}

	if to == StatusRejected && strings.TrimSpace(note) == "" {
		return false, apperr.New(apperr.KindValidation, "a rejection note is required").
			WithDetails(apperr.FieldErrors{"note": "required when rejecting"})
	}

	if need, ok := requiredCapability[to]; ok && !caps.Has(need) {
		return false, apperr.Newf(apperr.KindMissingCapability, "moving to %s requires the %q capability", to, need).
			WithDetails(map[string]string{"capability": string(need)})
	}

	return false, nil
}

// ApplyTransition mutates e into status to and returns the previous status.
// Callers run CheckTransition first.
func ApplyTransition(e *Estimate, to Status, note string, actor uuid.UUID, now time.Time) Status {
	from := e.Status
	e.Status = to
	e.UpdatedBy = actor
	e.UpdatedAt = now

	switch to {
	case StatusApproved:
		e.ApprovedAt = &now
		e.RejectedAt = nil
		e.RejectionReason = nil
	case StatusRejected:
		reason := strings.TrimSpace(note)
		e.RejectedAt = &now
		e.RejectionReason = &reason
	case StatusDraft:
		e.ApprovedAt = nil
		e.RejectedAt = nil
		e.RejectionReason = nil
	}

	return from
}

// MarkConverted moves an approved estimate to CONVERTED and records the job it became.
func MarkConverted(e *Estimate, jobID, actor uuid.UUID, now time.Time) error {
	if !CanTransition(e.Status, StatusConverted) {
		return invalidTransition(e.Status, StatusConverted)
	}

	e.Status = StatusConverted
	e.ConvertedJobID = &jobID
	e.UpdatedBy = actor
	e.UpdatedAt = now

	return nil
}

func invalidTransition(from, to Status) error {
	return apperr.Newf(apperr.KindInvalidTransition, "cannot move estimate from %s to %s", from, to).
		WithDetails(TransitionDetails{From: from, To: to})
}

func (e *Estimate) IsDeleted() bool {
	return e.DeletedAt != nil
}

// IsEditable reports whether line items and header fields may change.
func (e *Estimate) IsEditable() bool {
	return e.Status == StatusDraft && !e.IsDeleted()
}

func (e *Estimate) IsConvertible() bool {
	return e.Status == StatusApproved && !e.IsDeleted() && e.ConvertedJobID == nil
}

func (e *Estimate) IsDeletable() bool {
	return (e.Status == StatusDraft || e.Status == StatusRejected) && !e.IsDeleted()
}
