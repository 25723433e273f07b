// Package schema defines the data types shared between the assessment engine and its consumers.
package schema

import "time"

// CatalogObject is one row of the warehouse catalog for a schema.
type CatalogObject struct {
	Name          string
	Kind          ObjectKind
	EstimatedRows int64
}

// TableDescriptor describes a base table found during inventory.
type TableDescriptor struct {
	Schema          string          `json:"schema"`
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	RowCount        int64           `json:"row_count"`
	Estimated       bool            `json:"row_count_estimated"`
	LastUpdated     *time.Time      `json:"last_updated,omitempty"`
	TimestampColumn string          `json:"timestamp_column,omitempty"`
	ColumnMissing   bool            `json:"timestamp_column_missing,omitempty"`
	Monitored       bool            `json:"monitored"`
	Status          FreshnessStatus `json:"status,omitempty"`
}

// ViewDescriptor describes a view found during inventory.
// Only monitored views are verified with a row count probe.
type ViewDescriptor struct {
	Schema    string `json:"schema"`
	Name      string `json:"name"`
	Monitored bool   `json:"monitored"`
	Verified  bool   `json:"verified"`
	RowCount  *int64 `json:"row_count,omitempty"`
}

// SchemaSnapshot is the inventory of one schema at capture time.
type SchemaSnapshot struct {
	Name       string            `json:"name"`
	Tables     []TableDescriptor `json:"tables"`
	Views      []ViewDescriptor  `json:"views"`
	CapturedAt time.Time         `json:"captured_at"`
}

// TableStatus is the freshness verdict for one monitored table.
type TableStatus struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Category        string          `json:"category,omitempty"`
	TimestampColumn string          `json:"timestamp_column"`
	Present         bool            `json:"present"`
	RowCount        int64           `json:"row_count"`
	Estimated       bool            `json:"row_count_estimated"`
	LastUpdated     *time.Time      `json:"last_updated,omitempty"`
	AgeDays         *int            `json:"age_days,omitempty"`
	Status          FreshnessStatus `json:"status"`
}

// TriggerResult is the activity of one alert family for one country.
type TriggerResult struct {
	Family        AlertFamily `json:"family"`
	Country       string      `json:"country"`
	Executions    int64       `json:"executions"`
	LastExecution *time.Time  `json:"last_execution,omitempty"`
	Fired         *int64      `json:"fired,omitempty"`
}

// CountryTriggerSummary aggregates trigger activity for one country across families.
type CountryTriggerSummary struct {
	Country           string                        `json:"country"`
	Enabled           bool                          `json:"enabled"`
	Families          map[AlertFamily]TriggerResult `json:"families"`
	TotalExecutions   int64                         `json:"total_executions"`
	LastExecution     *time.Time                    `json:"last_execution,omitempty"`
	EnabledNoActivity bool                          `json:"enabled_no_activity"`
	Status            FreshnessStatus               `json:"status"`
}

// Warning records a table-level or family-level failure that did not abort the run.
// Family is set on trigger-pass warnings and names the alert family that failed.
type Warning struct {
	Pass    Pass        `json:"pass"`
	Object  string      `json:"object"`
	Family  AlertFamily `json:"family,omitempty"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// SnapshotSummary holds the headline counts of a snapshot.
type SnapshotSummary struct {
	SchemasInspected  int                     `json:"schemas_inspected"`
	TablesInventoried int                     `json:"tables_inventoried"`
	ViewsInventoried  int                     `json:"views_inventoried"`
	MonitoredTables   int                     `json:"monitored_tables"`
	StatusCounts      map[FreshnessStatus]int `json:"status_counts"`
	Countries         int                     `json:"countries"`
	EnabledNoActivity int                     `json:"enabled_no_activity"`
	TriggersFired     int64                   `json:"triggers_fired"`
	Warnings          int                     `json:"warnings"`
}

// HealthSnapshot is the single output of an assessment run.
// It holds plain data only and is never mutated once built.
type HealthSnapshot struct {
	ID          string                  `json:"id"`
	Environment Environment             `json:"environment"`
	Scope       Scope                   `json:"scope"`
	GeneratedAt time.Time               `json:"generated_at"`
	DurationMs  int64                   `json:"duration_ms"`
	Schemas     []SchemaSnapshot        `json:"schemas"`
	Tables      []TableStatus           `json:"tables"`
	Countries   []CountryTriggerSummary `json:"countries"`
	Warnings    []Warning               `json:"warnings"`
	Summary     SnapshotSummary         `json:"summary"`
}

// Band describes the day range of one freshness status.
type Band struct {
	Status  FreshnessStatus `json:"status"`
	MinDays *int            `json:"min_days,omitempty"`
	MaxDays *int            `json:"max_days,omitempty"`
	Emoji   string          `json:"emoji"`
	Meaning string          `json:"meaning"`
}
