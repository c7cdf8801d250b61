package database

import (
	"context"
	"fmt"
	"strings"
)

// Capabilities records which optional schema features the connected database has.
// Older deployments may lack the columns added by later migrations.
type Capabilities struct {
	JobOrigin            bool
	JobClassification    bool
	InsuranceFields      bool
	Assignees            bool
	MaintenanceReminders bool
}

// AllCapabilities is the fully migrated schema.
func AllCapabilities() Capabilities {
	return Capabilities{
		JobOrigin:            true,
		JobClassification:    true,
		InsuranceFields:      true,
		Assignees:            true,
		MaintenanceReminders: true,
	}
}

func (c Capabilities) SupportsJobOrigin() bool            { return c.JobOrigin }
func (c Capabilities) SupportsJobClassification() bool    { return c.JobClassification }
func (c Capabilities) SupportsInsuranceFields() bool      { return c.InsuranceFields }
func (c Capabilities) SupportsAssignees() bool            { return c.Assignees }
func (c Capabilities) SupportsMaintenanceReminders() bool { return c.MaintenanceReminders }

// Without turns off the named features. Unknown names are ignored.
func (c Capabilities) Without(features ...string) Capabilities {
	for _, f := range features {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "job_origin":
			c.JobOrigin = false
		case "classification":
			c.JobClassification = false
		case "insurance":
			c.InsuranceFields = false
		case "assignees":
			c.Assignees = false
		case "reminders":
			c.MaintenanceReminders = false
		}
	}

	return c
}

// ProbeCapabilities inspects information_schema to find which optional tables and columns exist.
func ProbeCapabilities(ctx context.Context, db DBTX) (Capabilities, error) {
	columns, err := existing(ctx, db, `
		SELECT table_name || '.' || column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name IN ('jobs', 'job_classifications')`)
	if err != nil {
		return Capabilities{}, fmt.Errorf("probing columns: %w", err)
	}

	tables, err := existing(ctx, db, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()`)
	if err != nil {
		return Capabilities{}, fmt.Errorf("probing tables: %w", err)
	}

	caps := Capabilities{
		JobOrigin:            columns["jobs.origin_estimate_id"],
		JobClassification:    columns["jobs.classification_code"] && tables["job_classifications"],
		InsuranceFields:      columns["jobs.insurance_claim_number"],
		Assignees:            tables["job_assignees"],
		MaintenanceReminders: tables["maintenance_reminders"],
	}

	return caps, nil
}

func existing(ctx context.Context, db DBTX, query string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]bool)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		found[name] = true
	}

	return found, rows.Err()
}
