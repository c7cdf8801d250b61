// Package catalog answers read-only lookups against the site's master data:
// job classifications, technicians and parts.
package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Classification struct {
	Code               string
	Name               string
	Active             bool
	AllowsParallelJobs bool
}

type Part struct {
	ID        uuid.UUID
	SKU       string
	Name      string
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}
