package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	historyStore "github.com/MrJamesThe3rd/garage/internal/history/store"
	sequenceStore "github.com/MrJamesThe3rd/garage/internal/sequence/store"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetEstimate(ctx context.Context, siteID, id uuid.UUID) (*estimate.Estimate, error) {
	query := `SELECT ` + selectEstimateColumns + `
		FROM estimates e
		WHERE e.site_id = $1 AND e.id = $2 AND e.deleted_at IS NULL`

	e, err := scanEstimate(s.db.QueryRowContext(ctx, query, siteID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, estimate.ErrNotFound
		}

		return nil, fmt.Errorf("getting estimate: %w", err)
	}

	return e, nil
}

func (s *Store) ListEstimates(ctx context.Context, filter estimate.ListFilter) ([]*estimate.Estimate, error) {
	query := `SELECT ` + selectEstimateColumns + `
		FROM estimates e
		WHERE e.deleted_at IS NULL AND e.site_id = $1`

	args := []any{filter.SiteID}
	argIdx := 2

	if filter.Status != nil {
		query += fmt.Sprintf(" AND e.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND e.customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.VehicleID != nil {
		query += fmt.Sprintf(" AND e.vehicle_id = $%d", argIdx)

		args = append(args, *filter.VehicleID)
		argIdx++
	}

	query += " ORDER BY e.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*estimate.Estimate

	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning estimate: %w", err)
		}

		estimates = append(estimates, e)
	}

	return estimates, rows.Err()
}

func (s *Store) ListLines(ctx context.Context, estimateID uuid.UUID) ([]estimate.LineItem, error) {
	return NewQueries(s.db).EstimateLines(ctx, estimateID)
}

func (s *Store) Begin(ctx context.Context) (estimate.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &txStore{
		Tx:         tx,
		Queries:    NewQueries(tx),
		Counter:    sequenceStore.New(tx),
		TxAppender: historyStore.NewTxAppender(tx),
	}, nil
}

type txStore struct {
	*sql.Tx
	*Queries
	*sequenceStore.Counter
	*historyStore.TxAppender
}

// Queries holds the estimate statements. It runs against a *sql.DB or a *sql.Tx.
type Queries struct {
	q database.DBTX
}

func NewQueries(q database.DBTX) *Queries {
	return &Queries{q: q}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectEstimateColumns = `
	e.id, e.site_id, e.number, e.customer_id, e.vehicle_id, e.notes, e.status, e.total,
	e.valid_until, e.converted_job_id, e.approved_at, e.rejected_at, e.rejection_reason,
	e.created_by, e.updated_by, e.created_at, e.updated_at, e.deleted_at
`

func scanEstimate(s scanner) (*estimate.Estimate, error) {
	var (
		e      estimate.Estimate
		status string
	)

	if err := s.Scan(
		&e.ID, &e.SiteID, &e.Number, &e.CustomerID, &e.VehicleID, &e.Notes, &status, &e.Total,
		&e.ValidUntil, &e.ConvertedJobID, &e.ApprovedAt, &e.RejectedAt, &e.RejectionReason,
		&e.CreatedBy, &e.UpdatedBy, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	); err != nil {
		return nil, err
	}

	e.Status = estimate.Status(status)

	return &e, nil
}

// LockEstimate reads the estimate with FOR UPDATE. Soft-deleted rows are returned so callers can decide.
func (q *Queries) LockEstimate(ctx context.Context, siteID, id uuid.UUID) (*estimate.Estimate, error) {
	query := `SELECT ` + selectEstimateColumns + `
		FROM estimates e
		WHERE e.site_id = $1 AND e.id = $2
		FOR UPDATE`

	e, err := scanEstimate(q.q.QueryRowContext(ctx, query, siteID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, estimate.ErrNotFound
		}

		return nil, fmt.Errorf("locking estimate: %w", err)
	}

	return e, nil
}

func (q *Queries) InsertEstimate(ctx context.Context, e *estimate.Estimate) error {
	query := `
		INSERT INTO estimates (site_id, number, customer_id, vehicle_id, notes, status, total, valid_until,
			created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := q.q.QueryRowContext(ctx, query,
		e.SiteID, e.Number, e.CustomerID, e.VehicleID, e.Notes, e.Status, e.Total, e.ValidUntil,
		e.CreatedBy, e.UpdatedBy, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("creating estimate: %w", err)
	}

	return nil
}

func (q *Queries) UpdateEstimate(ctx context.Context, e *estimate.Estimate) error {
	query := `
		UPDATE estimates SET
			notes = $2, status = $3, total = $4, valid_until = $5, converted_job_id = $6,
			approved_at = $7, rejected_at = $8, rejection_reason = $9,
			updated_by = $10, updated_at = $11, deleted_at = $12
		WHERE id = $1
	`

	res, err := q.q.ExecContext(ctx, query,
		e.ID, e.Notes, e.Status, e.Total, e.ValidUntil, e.ConvertedJobID,
		e.ApprovedAt, e.RejectedAt, e.RejectionReason,
		e.UpdatedBy, e.UpdatedAt, e.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("updating estimate: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return estimate.ErrNotFound
	}

	return nil
}

const selectLineColumns = `id, estimate_id, position, kind, catalog_id, description, quantity, unit_price, tax_rate, amount`

func (q *Queries) EstimateLines(ctx context.Context, estimateID uuid.UUID) ([]estimate.LineItem, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+selectLineColumns+`
		FROM estimate_lines
		WHERE estimate_id = $1
		ORDER BY position ASC`, estimateID)
	if err != nil {
		return nil, fmt.Errorf("listing estimate lines: %w", err)
	}
	defer rows.Close()

	var lines []estimate.LineItem

	for rows.Next() {
		var (
			l    estimate.LineItem
			kind string
		)

		if err := rows.Scan(
			&l.ID, &l.EstimateID, &l.Position, &kind, &l.CatalogID, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Amount,
		); err != nil {
			return nil, fmt.Errorf("scanning estimate line: %w", err)
		}

		l.Kind = estimate.LineKind(kind)
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (q *Queries) InsertLine(ctx context.Context, l *estimate.LineItem) error {
	err := q.q.QueryRowContext(ctx, `
		INSERT INTO estimate_lines (estimate_id, position, kind, catalog_id, description, quantity, unit_price, tax_rate, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		l.EstimateID, l.Position, l.Kind, l.CatalogID, l.Description, l.Quantity, l.UnitPrice, l.TaxRate, l.Amount,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("creating estimate line: %w", err)
	}

	return nil
}

func (q *Queries) UpdateLine(ctx context.Context, l *estimate.LineItem) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE estimate_lines SET
			kind = $3, catalog_id = $4, description = $5, quantity = $6, unit_price = $7, tax_rate = $8, amount = $9
		WHERE id = $1 AND estimate_id = $2`,
		l.ID, l.EstimateID, l.Kind, l.CatalogID, l.Description, l.Quantity, l.UnitPrice, l.TaxRate, l.Amount,
	)
	if err != nil {
		return fmt.Errorf("updating estimate line: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return estimate.ErrLineNotFound
	}

	return nil
}

func (q *Queries) DeleteLine(ctx context.Context, estimateID, lineID uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM estimate_lines WHERE id = $1 AND estimate_id = $2`, lineID, estimateID)
	if err != nil {
		return fmt.Errorf("deleting estimate line: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return estimate.ErrLineNotFound
	}

	return nil
}
