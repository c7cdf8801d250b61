// Package importer turns supplier parts lists into estimate line items.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
	"github.com/MrJamesThe3rd/garage/internal/catalog"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/importer/parts"
)

type Parser interface {
	Parse(r io.Reader) ([]parts.Row, string, error)
}

//go:generate mockgen -source=service.go -destination=matcher_mock.go -package=importer -exclude_interfaces=Parser
type PartMatcher interface {
	MatchPart(ctx context.Context, siteID uuid.UUID, sku, description string) (*catalog.Part, error)
}

type Service struct {
	parser  Parser
	matcher PartMatcher
	log     *slog.Logger
}

func NewService(matcher PartMatcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		parser:  parts.NewParser(),
		matcher: matcher,
		log:     log,
	}
}

type Result struct {
	Lines     []estimate.LineParams
	Charset   string
	Matched   int
	Unmatched []string
}

// Lines parses r and resolves each row against the site's parts catalog.
// Rows the catalog does not know are still imported, without a catalog id.
func (s *Service) Lines(ctx context.Context, siteID uuid.UUID, r io.Reader) (*Result, error) {
	rows, charset, err := s.parser.Parse(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "unreadable parts list: "+err.Error(), err)
	}

	if len(rows) == 0 {
		return nil, apperr.New(apperr.KindValidation, "parts list has no rows")
	}

	res := &Result{Charset: charset, Lines: make([]estimate.LineParams, 0, len(rows))}

	for _, row := range rows {
		part, err := s.matcher.MatchPart(ctx, siteID, row.SKU, row.Description)
		if err != nil {
			return nil, fmt.Errorf("match part on line %d: %w", row.Line, err)
		}

		line := estimate.LineParams{
			Kind:        estimate.LinePart,
			Description: row.Description,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			TaxRate:     decimal.Zero,
		}

		if row.TaxRate != nil {
			line.TaxRate = *row.TaxRate
		}

		if part == nil {
			res.Unmatched = append(res.Unmatched, row.Description)
			res.Lines = append(res.Lines, line)

			continue
		}

		res.Matched++
		line.CatalogID = &part.ID

		if line.UnitPrice.IsZero() {
			line.UnitPrice = part.UnitPrice
		}

		if row.TaxRate == nil {
			line.TaxRate = part.TaxRate
		}

		res.Lines = append(res.Lines, line)
	}

	s.log.InfoContext(ctx, "parsed parts list",
		"site_id", siteID,
		"rows", len(rows),
		"matched", res.Matched,
		"charset", charset,
	)

	return res, nil
}
