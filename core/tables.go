package core

import (
	"fmt"
	"time"

	"github.com/rbpanama/idbhealth/core/freshness"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// AssessTables turns the inventory into one TableStatus per monitored table, in
// mapping order. A monitored table that is absent from an inventoried schema is
// Unknown with a warning, or a ConfigurationError when cfg.StrictMapping is set.
// A monitored table without its mapped timestamp column is handled the same way;
// the inventory pass already recorded its warning.
// Tables of schemas that could not be inventoried are Unknown without an extra
// warning; the inventory pass already reported the schema.
func AssessTables(cfg *contract.Config, snapshots []schema.SchemaSnapshot, now time.Time) ([]schema.TableStatus, []schema.Warning, error) {
	index := make(map[string]schema.TableDescriptor)
	listed := make(map[string]struct{}, len(snapshots))
	for _, s := range snapshots {
		listed[s.Name] = struct{}{}
		for _, t := range s.Tables {
			index[s.Name+"."+t.Name] = t
		}
	}

	statuses := make([]schema.TableStatus, 0, len(cfg.Tables))
	var warnings []schema.Warning
	var missing, unresolved []string

	for _, mt := range cfg.Tables {
		status := schema.TableStatus{
			Schema:          mt.Schema,
			Table:           mt.Table,
			Category:        mt.Category,
			TimestampColumn: mt.Column,
			Status:          schema.UnknownStatus,
		}

		desc, found := index[mt.QualifiedName()]
		if !found {
			if _, ok := listed[mt.Schema]; ok {
				missing = append(missing, mt.QualifiedName())
				warnings = append(warnings, schema.Warning{
					Pass:    schema.FreshnessPass,
					Object:  mt.QualifiedName(),
					Kind:    schema.IntrospectionWarning,
					Message: fmt.Sprintf("monitored table %s does not exist", mt.QualifiedName()),
				})
			}
			statuses = append(statuses, status)
			continue
		}

		if desc.ColumnMissing {
			unresolved = append(unresolved, mt.QualifiedName()+"."+mt.Column)
		}
		status.Present = true
		status.RowCount = desc.RowCount
		status.Estimated = desc.Estimated
		status.LastUpdated = desc.LastUpdated
		status.AgeDays = freshness.Age(desc.LastUpdated, now)
		status.Status = desc.Status
		if status.Status == "" {
			status.Status = freshness.Classify(desc.LastUpdated, now)
		}
		statuses = append(statuses, status)
	}

	if cfg.StrictMapping && len(missing) > 0 {
		return nil, nil, contract.NewConfigError("mapping", "monitored tables not found in warehouse: %v", missing)
	}
	if cfg.StrictMapping && len(unresolved) > 0 {
		return nil, nil, contract.NewConfigError("mapping", "timestamp columns not found in warehouse: %v", unresolved)
	}
	return statuses, warnings, nil
}
