package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=catalog
type Repository interface {
	FindClassification(ctx context.Context, siteID uuid.UUID, code string) (*Classification, error)
	ListClassifications(ctx context.Context, siteID uuid.UUID) ([]Classification, error)
	ActiveUsers(ctx context.Context, siteID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
	FindPartBySKU(ctx context.Context, siteID uuid.UUID, sku string) (*Part, error)
	SuggestPart(ctx context.Context, siteID uuid.UUID, description string) (*Part, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Classification returns the classification with the given code, or nil if the site has none.
// Inactive classifications are returned with Active=false.
func (s *Service) Classification(ctx context.Context, siteID uuid.UUID, code string) (*Classification, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}

	return s.repo.FindClassification(ctx, siteID, code)
}

func (s *Service) Classifications(ctx context.Context, siteID uuid.UUID) ([]Classification, error) {
	return s.repo.ListClassifications(ctx, siteID)
}

// ResolveUsers splits ids into active users of the site and everything else.
// Duplicates are dropped and input order is kept.
func (s *Service) ResolveUsers(ctx context.Context, siteID uuid.UUID, ids []uuid.UUID) (active, unknown []uuid.UUID, err error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	found, err := s.repo.ActiveUsers(ctx, siteID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve users: %w", err)
	}

	valid := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		valid[id] = true
	}

	seen := make(map[uuid.UUID]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true

		if valid[id] {
			active = append(active, id)
		} else {
			unknown = append(unknown, id)
		}
	}

	return active, unknown, nil
}

// MatchPart looks a part up by SKU and falls back to the closest description match.
// Returns nil if nothing matches.
func (s *Service) MatchPart(ctx context.Context, siteID uuid.UUID, sku, description string) (*Part, error) {
	if sku = strings.TrimSpace(sku); sku != "" {
		p, err := s.repo.FindPartBySKU(ctx, siteID, sku)
		if err != nil || p != nil {
			return p, err
		}
	}

	if description = strings.TrimSpace(description); description == "" {
		return nil, nil
	}

	return s.repo.SuggestPart(ctx, siteID, description)
}
