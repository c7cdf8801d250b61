package conversion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/catalog"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/job"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
)

// resolved holds options after defaults and catalog lookups.
type resolved struct {
	Priority       job.Priority
	PromisedAt     time.Time
	Diagnosis      string
	Odometer       *int64
	Classification *catalog.Classification
	Insurance      *job.InsuranceClaim
	Assignees      []uuid.UUID
	Reminders      []reminder.Decision
}

// normalize applies defaults, checks the catalog and drops fields the schema cannot store.
// In strict mode every problem is collected and returned as InvalidConversionInput;
// otherwise bad optional fields are dropped and logged.
func (o *Orchestrator) normalize(ctx context.Context, e *estimate.Estimate, opts Options) (resolved, error) {
	now := o.now()
	strict := opts.StrictInput
	problems := apperr.FieldErrors{}

	fields, err := o.validate.Fields(opts)
	if err != nil {
		return resolved{}, fmt.Errorf("validate options: %w", err)
	}

	for k, v := range fields {
		problems[k] = v
	}

	out := resolved{Priority: job.PriorityMedium}

	if p, ok := job.ParsePriority(opts.Priority); ok {
		out.Priority = p
	}

	switch {
	case opts.PromisedAt == nil && strict:
		problems["promised_at"] = "required"
	case opts.PromisedAt != nil && opts.PromisedAt.Before(now) && strict:
		problems["promised_at"] = "must be in the future"
	case opts.PromisedAt == nil || opts.PromisedAt.Before(now):
		out.PromisedAt = now.Add(o.promiseOffset)
	default:
		out.PromisedAt = *opts.PromisedAt
	}

	out.Diagnosis = strings.TrimSpace(opts.Diagnosis)
	if out.Diagnosis == "" {
		if strict {
			problems["diagnosis"] = "required"
		} else if out.Diagnosis = strings.TrimSpace(e.Notes); out.Diagnosis == "" {
			out.Diagnosis = "Converted from estimate " + e.Number
		}
	}

	if _, bad := problems["diagnosis"]; bad && !strict {
		out.Diagnosis = "Converted from estimate " + e.Number
	}

	if _, bad := problems["odometer"]; !bad {
		out.Odometer = opts.Odometer
	}

	if err := o.resolveClassification(ctx, e.SiteID, opts, strict, problems, &out); err != nil {
		return resolved{}, err
	}

	out.Insurance = o.resolveInsurance(ctx, opts.Insurance, problems)

	if err := o.resolveAssignees(ctx, e.SiteID, opts.Assignees, strict, problems, &out); err != nil {
		return resolved{}, err
	}

	if o.caps.SupportsMaintenanceReminders() {
		for _, r := range opts.Reminders {
			out.Reminders = append(out.Reminders, reminder.Decision{
				ReminderID:    r.ID,
				Action:        reminder.ParseAction(r.Action),
				PostponeUntil: r.PostponeUntil,
			})
		}
	} else if len(opts.Reminders) > 0 {
		o.log.InfoContext(ctx, "ignoring reminders, schema has no reminder table", "estimate_id", e.ID)
	}

	if len(problems) > 0 {
		if strict {
			return resolved{}, apperr.New(apperr.KindInvalidConversionInput, "conversion options are invalid").
				WithDetails(problems)
		}

		o.log.WarnContext(ctx, "dropped invalid conversion options", "estimate_id", e.ID, "fields", problems)
	}

	return out, nil
}

func (o *Orchestrator) resolveClassification(ctx context.Context, siteID uuid.UUID, opts Options, strict bool, problems apperr.FieldErrors, out *resolved) error {
	code := strings.TrimSpace(opts.Classification)

	if !o.caps.SupportsJobClassification() {
		if code != "" {
			o.log.InfoContext(ctx, "ignoring classification, schema has no classification column", "classification", code)
		}

		return nil
	}

	if code == "" {
		if strict {
			problems["classification"] = "required"
		}

		return nil
	}

	if _, bad := problems["classification"]; bad {
		return nil
	}

	c, err := o.catalog.Classification(ctx, siteID, code)
	if err != nil {
		return fmt.Errorf("lookup classification: %w", err)
	}

	if c == nil || !c.Active {
		problems["classification"] = fmt.Sprintf("%q is not an active classification", code)
		return nil
	}

	out.Classification = c

	return nil
}

func (o *Orchestrator) resolveInsurance(ctx context.Context, in *InsuranceInput, problems apperr.FieldErrors) *job.InsuranceClaim {
	if in == nil {
		return nil
	}

	if !o.caps.SupportsInsuranceFields() {
		o.log.InfoContext(ctx, "ignoring insurance fields, schema has no insurance columns")
		return nil
	}

	claim := &job.InsuranceClaim{
		Company:      strings.TrimSpace(in.Company),
		PolicyNumber: strings.TrimSpace(in.PolicyNumber),
		ClaimNumber:  strings.TrimSpace(in.ClaimNumber),
	}

	claim.ApprovedAmount = money(in.ApprovedAmount, "insurance.approved_amount", problems)
	claim.Deductible = money(in.Deductible, "insurance.deductible", problems)

	if claim.Company == "" && claim.PolicyNumber == "" && claim.ClaimNumber == "" &&
		claim.ApprovedAmount == nil && claim.Deductible == nil {
		return nil
	}

	return claim
}

func money(raw, field string, problems apperr.FieldErrors) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if _, bad := problems[field]; bad {
		return nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		problems[field] = "must be a number"
		return nil
	}

	if d.IsNegative() {
		problems[field] = "must not be negative"
		return nil
	}

	d = d.Round(2)

	return &d
}

func (o *Orchestrator) resolveAssignees(ctx context.Context, siteID uuid.UUID, ids []uuid.UUID, strict bool, problems apperr.FieldErrors, out *resolved) error {
	if len(ids) == 0 {
		return nil
	}

	if !o.caps.SupportsAssignees() {
		o.log.InfoContext(ctx, "ignoring assignees, schema has no assignee table")
		return nil
	}

	active, unknown, err := o.catalog.ResolveUsers(ctx, siteID, ids)
	if err != nil {
		return fmt.Errorf("resolve assignees: %w", err)
	}

	if len(unknown) > 0 {
		names := make([]string, len(unknown))
		for i, id := range unknown {
			names[i] = id.String()
		}

		problems["assignees"] = "unknown or inactive users: " + strings.Join(names, ", ")
	}

	if len(unknown) > 0 && strict {
		return nil
	}

	out.Assignees = active

	return nil
}
