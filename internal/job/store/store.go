package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/job"
)

// Store reads jobs outside of the conversion workflow.
type Store struct {
	db   *sql.DB
	caps database.Capabilities
}

func New(db *sql.DB, caps database.Capabilities) *Store {
	return &Store{db: db, caps: caps}
}

func (s *Store) GetJob(ctx context.Context, siteID, id uuid.UUID) (*job.Job, []job.LineItem, error) {
	q := NewQueries(s.db, s.caps)

	j, err := q.getJob(ctx, siteID, id)
	if err != nil {
		return nil, nil, err
	}

	lines, err := q.JobLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return j, lines, nil
}

// Queries holds the job statements. Optional columns are only touched when the schema has them.
type Queries struct {
	q    database.DBTX
	caps database.Capabilities
}

func NewQueries(q database.DBTX, caps database.Capabilities) *Queries {
	return &Queries{q: q, caps: caps}
}

func (q *Queries) columns() []string {
	cols := []string{
		"site_id", "number", "customer_id", "vehicle_id", "status", "priority",
		"promised_at", "diagnosis", "odometer", "total", "created_by", "created_at", "updated_at",
	}

	if q.caps.JobClassification {
		cols = append(cols, "classification_code")
	}

	if q.caps.JobOrigin {
		cols = append(cols, "origin_estimate_id")
	}

	if q.caps.InsuranceFields {
		cols = append(cols,
			"insurance_company", "insurance_policy_number", "insurance_claim_number",
			"insurance_approved_amount", "insurance_deductible",
		)
	}

	return cols
}

func (q *Queries) InsertJob(ctx context.Context, j *job.Job) error {
	args := []any{
		j.SiteID, j.Number, j.CustomerID, j.VehicleID, j.Status, j.Priority,
		j.PromisedAt, j.Diagnosis, j.Odometer, j.Total, j.CreatedBy, j.CreatedAt, j.UpdatedAt,
	}

	if q.caps.JobClassification {
		args = append(args, j.ClassificationCode)
	}

	if q.caps.JobOrigin {
		args = append(args, j.OriginEstimateID)
	}

	if q.caps.InsuranceFields {
		var ins job.InsuranceClaim
		if j.Insurance != nil {
			ins = *j.Insurance
		}

		args = append(args,
			nullable(ins.Company), nullable(ins.PolicyNumber), nullable(ins.ClaimNumber),
			ins.ApprovedAmount, ins.Deductible,
		)
	}

	cols := q.columns()
	placeholders := make([]string, len(cols))

	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO jobs (%s) VALUES (%s) RETURNING id`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if err := q.q.QueryRowContext(ctx, query, args...).Scan(&j.ID); err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	return nil
}

func (q *Queries) InsertJobLines(ctx context.Context, lines []job.LineItem) error {
	for i := range lines {
		l := &lines[i]

		err := q.q.QueryRowContext(ctx, `
			INSERT INTO job_lines (job_id, position, kind, catalog_id, description, quantity, unit_price, tax_rate, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			l.JobID, l.Position, l.Kind, l.CatalogID, l.Description, l.Quantity, l.UnitPrice, l.TaxRate, l.Amount,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("creating job line: %w", err)
		}
	}

	return nil
}

func (q *Queries) JobLines(ctx context.Context, jobID uuid.UUID) ([]job.LineItem, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, job_id, position, kind, catalog_id, description, quantity, unit_price, tax_rate, amount
		FROM job_lines
		WHERE job_id = $1
		ORDER BY position ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("listing job lines: %w", err)
	}
	defer rows.Close()

	var lines []job.LineItem

	for rows.Next() {
		var l job.LineItem
		if err := rows.Scan(
			&l.ID, &l.JobID, &l.Position, &l.Kind, &l.CatalogID, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Amount,
		); err != nil {
			return nil, fmt.Errorf("scanning job line: %w", err)
		}

		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (q *Queries) UpdateJobTotal(ctx context.Context, jobID uuid.UUID, total decimal.Decimal) error {
	if _, err := q.q.ExecContext(ctx, `UPDATE jobs SET total = $2, updated_at = NOW() WHERE id = $1`, jobID, total); err != nil {
		return fmt.Errorf("updating job total: %w", err)
	}

	return nil
}

// JobByOrigin finds the job whose origin column points at estimateID.
// It returns nil when the schema has no origin column or no job matches.
func (q *Queries) JobByOrigin(ctx context.Context, estimateID uuid.UUID) (*job.Ref, error) {
	if !q.caps.JobOrigin {
		return nil, nil
	}

	return q.ref(ctx, `WHERE origin_estimate_id = $1`, estimateID)
}

func (q *Queries) JobByID(ctx context.Context, jobID uuid.UUID) (*job.Ref, error) {
	return q.ref(ctx, `WHERE id = $1`, jobID)
}

// OpenJobsForVehicle lists jobs on the vehicle that are still active, oldest first.
func (q *Queries) OpenJobsForVehicle(ctx context.Context, vehicleID uuid.UUID) ([]job.Ref, error) {
	statuses := make([]string, len(job.ActiveStatuses))
	for i, s := range job.ActiveStatuses {
		statuses[i] = string(s)
	}

	rows, err := q.q.QueryContext(ctx, `SELECT `+q.refColumns()+`
		FROM jobs
		WHERE vehicle_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC`, vehicleID, statuses)
	if err != nil {
		return nil, fmt.Errorf("listing open jobs: %w", err)
	}
	defer rows.Close()

	var refs []job.Ref

	for rows.Next() {
		var r job.Ref
		if err := rows.Scan(&r.ID, &r.Number, &r.Status, &r.OriginEstimateID); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}

		refs = append(refs, r)
	}

	return refs, rows.Err()
}

// SetAssignees replaces the technicians assigned to a job.
func (q *Queries) SetAssignees(ctx context.Context, jobID uuid.UUID, userIDs []uuid.UUID) error {
	if !q.caps.Assignees {
		return nil
	}

	if _, err := q.q.ExecContext(ctx, `DELETE FROM job_assignees WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clearing assignees: %w", err)
	}

	for _, id := range userIDs {
		if _, err := q.q.ExecContext(ctx, `
			INSERT INTO job_assignees (job_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, jobID, id); err != nil {
			return fmt.Errorf("assigning user: %w", err)
		}
	}

	return nil
}

func (q *Queries) refColumns() string {
	if q.caps.JobOrigin {
		return `id, number, status, origin_estimate_id`
	}

	return `id, number, status, NULL::uuid`
}

func (q *Queries) ref(ctx context.Context, where string, arg any) (*job.Ref, error) {
	var r job.Ref

	err := q.q.QueryRowContext(ctx, `SELECT `+q.refColumns()+` FROM jobs `+where, arg).
		Scan(&r.ID, &r.Number, &r.Status, &r.OriginEstimateID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("finding job: %w", err)
	}

	return &r, nil
}

func (q *Queries) getJob(ctx context.Context, siteID, id uuid.UUID) (*job.Job, error) {
	var (
		j              job.Job
		classification sql.NullString
		origin         *uuid.UUID
		company        sql.NullString
		policy         sql.NullString
		claim          sql.NullString
		approved       decimal.NullDecimal
		deductible     decimal.NullDecimal
	)

	cols := `id, site_id, number, customer_id, vehicle_id, status, priority, promised_at, diagnosis, odometer,
		total, created_by, created_at, updated_at`
	dest := []any{
		&j.ID, &j.SiteID, &j.Number, &j.CustomerID, &j.VehicleID, &j.Status, &j.Priority, &j.PromisedAt,
		&j.Diagnosis, &j.Odometer, &j.Total, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt,
	}

	if q.caps.JobClassification {
		cols += `, classification_code`

		dest = append(dest, &classification)
	}

	if q.caps.JobOrigin {
		cols += `, origin_estimate_id`

		dest = append(dest, &origin)
	}

	if q.caps.InsuranceFields {
		cols += `, insurance_company, insurance_policy_number, insurance_claim_number,
			insurance_approved_amount, insurance_deductible`

		dest = append(dest, &company, &policy, &claim, &approved, &deductible)
	}

	err := q.q.QueryRowContext(ctx, `SELECT `+cols+` FROM jobs WHERE site_id = $1 AND id = $2`, siteID, id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, job.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}

	if classification.Valid {
		j.ClassificationCode = &classification.String
	}

	j.OriginEstimateID = origin

	if company.Valid || policy.Valid || claim.Valid || approved.Valid || deductible.Valid {
		j.Insurance = &job.InsuranceClaim{
			Company:      company.String,
			PolicyNumber: policy.String,
			ClaimNumber:  claim.String,
		}

		if approved.Valid {
			j.Insurance.ApprovedAmount = &approved.Decimal
		}

		if deductible.Valid {
			j.Insurance.Deductible = &deductible.Decimal
		}
	}

	return &j, nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	return &s
}
