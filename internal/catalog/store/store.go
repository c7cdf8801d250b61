package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/catalog"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindClassification(ctx context.Context, siteID uuid.UUID, code string) (*catalog.Classification, error) {
	var c catalog.Classification

	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, active, allows_parallel_jobs
		FROM job_classifications
		WHERE site_id = $1 AND code = $2`, siteID, code).
		Scan(&c.Code, &c.Name, &c.Active, &c.AllowsParallelJobs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding classification: %w", err)
	}

	return &c, nil
}

func (s *Store) ListClassifications(ctx context.Context, siteID uuid.UUID) ([]catalog.Classification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, active, allows_parallel_jobs
		FROM job_classifications
		WHERE site_id = $1 AND active
		ORDER BY name ASC`, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing classifications: %w", err)
	}
	defer rows.Close()

	var out []catalog.Classification

	for rows.Next() {
		var c catalog.Classification
		if err := rows.Scan(&c.Code, &c.Name, &c.Active, &c.AllowsParallelJobs); err != nil {
			return nil, fmt.Errorf("scanning classification: %w", err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

func (s *Store) ActiveUsers(ctx context.Context, siteID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM users
		WHERE site_id = $1 AND active AND id = ANY($2::uuid[])`, siteID, idStrings)
	if err != nil {
		return nil, fmt.Errorf("finding active users: %w", err)
	}
	defer rows.Close()

	var found []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}

		found = append(found, id)
	}

	return found, rows.Err()
}

func (s *Store) FindPartBySKU(ctx context.Context, siteID uuid.UUID, sku string) (*catalog.Part, error) {
	return s.part(ctx, `
		SELECT id, sku, name, unit_price, tax_rate
		FROM catalog_parts
		WHERE site_id = $1 AND active AND sku = $2`, siteID, sku)
}

// SuggestPart picks the part whose name appears in the description, preferring the longest name.
func (s *Store) SuggestPart(ctx context.Context, siteID uuid.UUID, description string) (*catalog.Part, error) {
	return s.part(ctx, `
		SELECT id, sku, name, unit_price, tax_rate
		FROM catalog_parts
		WHERE site_id = $1 AND active AND $2 ILIKE '%' || name || '%'
		ORDER BY LENGTH(name) DESC
		LIMIT 1`, siteID, description)
}

func (s *Store) part(ctx context.Context, query string, args ...any) (*catalog.Part, error) {
	var p catalog.Part

	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.TaxRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding part: %w", err)
	}

	return &p, nil
}
