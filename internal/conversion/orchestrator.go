package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/job"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
	"github.com/MrJamesThe3rd/garage/internal/validate"
)

type Deps struct {
	Repo          Repository
	Catalog       Catalog
	Capabilities  SchemaCapabilities
	Numbers       *sequence.Allocator
	History       *history.BestEffort
	Reminders     *reminder.Resolver
	Logger        *slog.Logger
	PromiseOffset time.Duration
}

type Orchestrator struct {
	repo          Repository
	catalog       Catalog
	caps          SchemaCapabilities
	numbers       *sequence.Allocator
	writer        *job.Writer
	history       *history.BestEffort
	reminders     *reminder.Resolver
	validate      *validate.Validator
	log           *slog.Logger
	now           func() time.Time
	promiseOffset time.Duration
}

func New(deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	offset := deps.PromiseOffset
	if offset <= 0 {
		offset = 24 * time.Hour
	}

	recorder := deps.History
	if recorder == nil {
		recorder = history.NewBestEffort(log)
	}

	resolver := deps.Reminders
	if resolver == nil {
		resolver = reminder.NewResolver(log)
	}

	return &Orchestrator{
		repo:          deps.Repo,
		catalog:       deps.Catalog,
		caps:          deps.Capabilities,
		numbers:       deps.Numbers,
		writer:        job.NewWriter(),
		history:       recorder,
		reminders:     resolver,
		validate:      validate.New(),
		log:           log,
		now:           time.Now,
		promiseOffset: offset,
	}
}

// WithClock replaces the orchestrator clock. Used by tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Convert creates a job from an approved estimate. Calling it again for the same estimate
// returns the existing job with AlreadyConverted set. Every error is an *apperr.Error.
func (o *Orchestrator) Convert(ctx context.Context, req Request) (res *Result, err error) {
	defer func() {
		err = apperr.Ensure(err, "convert estimate")
	}()

	tx, err := o.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin conversion: %w", err)
	}
	defer tx.Rollback()

	e, err := tx.LockEstimate(ctx, req.SiteID, req.EstimateID)
	if err != nil {
		if errors.Is(err, estimate.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "estimate not found", err)
		}

		return nil, fmt.Errorf("lock estimate: %w", err)
	}

	if e.IsDeleted() {
		return nil, apperr.Newf(apperr.KindNotConvertible, "estimate %s is deleted", e.Number)
	}

	existing, anomaly, err := o.existingJob(ctx, tx, e)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return &Result{
			JobID:            existing.ID,
			JobNumber:        existing.Number,
			AlreadyConverted: true,
			Anomaly:          anomaly,
		}, nil
	}

	if !e.IsConvertible() {
		return nil, apperr.Newf(apperr.KindNotConvertible, "estimate %s is %s, only APPROVED estimates can be converted", e.Number, e.Status).
			WithDetails(map[string]string{"status": string(e.Status)})
	}

	opts, err := o.normalize(ctx, e, req.Options)
	if err != nil {
		return nil, err
	}

	if err := o.checkOwnership(ctx, tx, e); err != nil {
		return nil, err
	}

	if err := o.checkActiveJobs(ctx, tx, e, opts); err != nil {
		return nil, err
	}

	lines, err := tx.EstimateLines(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("load estimate lines: %w", err)
	}

	if len(lines) == 0 {
		return nil, apperr.Newf(apperr.KindNoLineItems, "estimate %s has no line items", e.Number)
	}

	number, err := o.numbers.Next(ctx, tx, e.SiteID, sequence.KindJob)
	if err != nil {
		return nil, fmt.Errorf("allocate job number: %w", err)
	}

	now := o.now()
	j := &job.Job{
		SiteID:     e.SiteID,
		Number:     number,
		CustomerID: e.CustomerID,
		VehicleID:  e.VehicleID,
		Status:     job.StatusOpen,
		Priority:   opts.Priority,
		PromisedAt: &opts.PromisedAt,
		Diagnosis:  opts.Diagnosis,
		Odometer:   opts.Odometer,
		Insurance:  opts.Insurance,
		CreatedBy:  req.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if opts.Classification != nil {
		j.ClassificationCode = &opts.Classification.Code
	}

	if o.caps.SupportsJobOrigin() {
		j.OriginEstimateID = &e.ID
	}

	if _, err := o.writer.Create(ctx, tx, j, lines); err != nil {
		return nil, err
	}

	if len(opts.Assignees) > 0 {
		if err := tx.SetAssignees(ctx, j.ID, opts.Assignees); err != nil {
			return nil, fmt.Errorf("set assignees: %w", err)
		}
	}

	var outcome reminder.Outcome
	if len(opts.Reminders) > 0 {
		outcome, err = o.reminders.Resolve(ctx, tx, j, opts.Reminders)
		if err != nil {
			return nil, err
		}

		if err := o.writer.Append(ctx, tx, j, outcome.Lines); err != nil {
			return nil, err
		}
	}

	if err := o.writer.Recalculate(ctx, tx, j); err != nil {
		return nil, err
	}

	o.history.Record(ctx, tx, history.Entry{
		EntityKind: history.EntityJob,
		EntityID:   j.ID,
		Action:     history.ActionCreate,
		ToStatus:   new(string(job.StatusOpen)),
		ActorID:    req.ActorID,
		Payload: map[string]any{
			"number":          j.Number,
			"origin_estimate": e.Number,
			"total":           j.Total.StringFixed(2),
			"reminder_lines":  len(outcome.Added),
		},
	})

	entry := history.StatusChange(history.EntityEstimate, e.ID, history.ActionConvert,
		string(e.Status), string(estimate.StatusConverted), req.ActorID)
	entry.Payload = map[string]any{"job_id": j.ID.String(), "job_number": j.Number}
	o.history.Record(ctx, tx, entry)

	if err := estimate.MarkConverted(e, j.ID, req.ActorID, now); err != nil {
		return nil, err
	}

	if err := tx.UpdateEstimate(ctx, e); err != nil {
		return nil, fmt.Errorf("mark estimate converted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conversion: %w", err)
	}

	o.log.InfoContext(ctx, "estimate converted",
		"estimate_id", e.ID,
		"estimate_number", e.Number,
		"job_id", j.ID,
		"job_number", j.Number,
		"total", j.Total.StringFixed(2),
	)

	return &Result{JobID: j.ID, JobNumber: j.Number}, nil
}

// existingJob looks for a job already created from e through both back-references.
// A disagreement between them is logged and reported; it is never repaired here.
func (o *Orchestrator) existingJob(ctx context.Context, tx Tx, e *estimate.Estimate) (*job.Ref, string, error) {
	var (
		byOrigin  *job.Ref
		byForward *job.Ref
		err       error
	)

	if o.caps.SupportsJobOrigin() {
		byOrigin, err = tx.JobByOrigin(ctx, e.ID)
		if err != nil {
			return nil, "", fmt.Errorf("find job by origin: %w", err)
		}
	}

	if e.ConvertedJobID != nil {
		byForward, err = tx.JobByID(ctx, *e.ConvertedJobID)
		if err != nil {
			return nil, "", fmt.Errorf("find converted job: %w", err)
		}
	}

	if byOrigin == nil && e.ConvertedJobID == nil {
		return nil, "", nil
	}

	var (
		found     *job.Ref
		anomalies []string
	)

	switch {
	case byOrigin != nil && byForward != nil && byOrigin.ID != byForward.ID:
		return nil, "", o.integrity(ctx, e, fmt.Sprintf("estimate references job %s but job %s claims it", byForward.Number, byOrigin.Number))
	case e.ConvertedJobID != nil && byForward == nil:
		return nil, "", o.integrity(ctx, e, fmt.Sprintf("estimate references missing job %s", e.ConvertedJobID))
	case byForward != nil && byForward.OriginEstimateID != nil && *byForward.OriginEstimateID != e.ID:
		return nil, "", o.integrity(ctx, e, fmt.Sprintf("referenced job %s originates from another estimate", byForward.Number))
	case byOrigin != nil && byForward != nil:
		found = byOrigin
	case byOrigin != nil:
		found = byOrigin
		anomalies = append(anomalies, fmt.Sprintf("job %s claims this estimate but the estimate has no job reference", byOrigin.Number))
	default:
		found = byForward
		if o.caps.SupportsJobOrigin() {
			anomalies = append(anomalies, fmt.Sprintf("job %s has no origin reference to this estimate", byForward.Number))
		}
	}

	if e.Status != estimate.StatusConverted {
		anomalies = append(anomalies, fmt.Sprintf("estimate status is %s instead of %s", e.Status, estimate.StatusConverted))
	}

	anomaly := strings.Join(anomalies, "; ")
	if anomaly != "" {
		o.log.WarnContext(ctx, "conversion back-references disagree",
			"estimate_id", e.ID,
			"job_id", found.ID,
			"anomaly", anomaly,
		)
	}

	return found, anomaly, nil
}

func (o *Orchestrator) integrity(ctx context.Context, e *estimate.Estimate, msg string) error {
	o.log.ErrorContext(ctx, "conversion back-references conflict", "estimate_id", e.ID, "detail", msg)
	return apperr.Newf(apperr.KindIntegrity, "estimate %s: %s", e.Number, msg)
}

func (o *Orchestrator) checkOwnership(ctx context.Context, tx Tx, e *estimate.Estimate) error {
	p, err := tx.Parties(ctx, e.CustomerID, e.VehicleID)
	if err != nil {
		return fmt.Errorf("load customer and vehicle: %w", err)
	}

	switch {
	case p == nil:
		return apperr.New(apperr.KindOwnershipMismatch, "customer or vehicle no longer exists")
	case !p.CustomerActive:
		return apperr.New(apperr.KindOwnershipMismatch, "customer is inactive")
	case !p.VehicleActive:
		return apperr.New(apperr.KindOwnershipMismatch, "vehicle is inactive")
	case p.VehicleOwnerID != e.CustomerID:
		return apperr.New(apperr.KindOwnershipMismatch, "vehicle no longer belongs to the estimate's customer")
	}

	return nil
}

func (o *Orchestrator) checkActiveJobs(ctx context.Context, tx Tx, e *estimate.Estimate, opts resolved) error {
	if opts.Classification != nil && opts.Classification.AllowsParallelJobs {
		return nil
	}

	open, err := tx.OpenJobsForVehicle(ctx, e.VehicleID)
	if err != nil {
		return fmt.Errorf("find open jobs: %w", err)
	}

	if len(open) == 0 {
		return nil
	}

	blocking := open[0]

	return apperr.Newf(apperr.KindVehicleHasActiveJob, "vehicle already has active job %s (%s)", blocking.Number, blocking.Status).
		WithDetails(apperr.BlockingJob{Number: blocking.Number, Status: string(blocking.Status)})
}
