// Package parquet provides data structures and functions for exporting warehouse
// health snapshots and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rbpanama/idbhealth/schema"
)

// Run represents one recorded assessment run.
// This struct maps to the idbhealth_runs database table.
type Run struct {
	// RunID is the unique identifier assigned by the history store
	RunID int64 `parquet:"run_id,snappy"`

	// SnapshotID is the UUID of the snapshot that was recorded
	SnapshotID string `parquet:"snapshot_id,snappy"`

	Environment string `parquet:"environment,snappy"`
	Scope       string `parquet:"scope,snappy"`

	// GeneratedAt is the capture time of the snapshot (stored as TIMESTAMP with nanosecond precision)
	GeneratedAt time.Time `parquet:"generated_at,snappy"`

	DurationMs        int64 `parquet:"duration_ms,snappy"`
	MonitoredTables   int32 `parquet:"monitored_tables,snappy"`
	CurrentCount      int32 `parquet:"current_count,snappy"`
	RecentCount       int32 `parquet:"recent_count,snappy"`
	OutdatedCount     int32 `parquet:"outdated_count,snappy"`
	StaleCount        int32 `parquet:"stale_count,snappy"`
	CriticalCount     int32 `parquet:"critical_count,snappy"`
	UnknownCount      int32 `parquet:"unknown_count,snappy"`
	Countries         int32 `parquet:"countries,snappy"`
	EnabledNoActivity int32 `parquet:"enabled_no_activity,snappy"`
	WarningCount      int32 `parquet:"warning_count,snappy"`
}

// TableStatus represents the freshness verdict of one table in one run.
// This struct maps to the idbhealth_table_status database table.
type TableStatus struct {
	// RunID references the parent run
	RunID int64 `parquet:"run_id,snappy"`

	SchemaName string `parquet:"schema_name,snappy"`
	TableName  string `parquet:"table_name,snappy"`
	Status     string `parquet:"status,snappy"`

	// AgeDays is nil when the table has no usable timestamp
	AgeDays *int32 `parquet:"age_days,optional,snappy"`

	RowCount  int64 `parquet:"row_count,snappy"`
	Estimated bool  `parquet:"estimated,snappy"`

	LastUpdated *time.Time `parquet:"last_updated,optional,snappy"`
}

// SnapshotTable is one monitored table of a snapshot, flattened for file output.
type SnapshotTable struct {
	SnapshotID      string     `parquet:"snapshot_id,snappy"`
	Environment     string     `parquet:"environment,snappy"`
	GeneratedAt     time.Time  `parquet:"generated_at,snappy"`
	SchemaName      string     `parquet:"schema_name,snappy"`
	TableName       string     `parquet:"table_name,snappy"`
	Category        string     `parquet:"category,snappy"`
	TimestampColumn string     `parquet:"timestamp_column,snappy"`
	Present         bool       `parquet:"present,snappy"`
	RowCount        int64      `parquet:"row_count,snappy"`
	Estimated       bool       `parquet:"estimated,snappy"`
	LastUpdated     *time.Time `parquet:"last_updated,optional,snappy"`
	AgeDays         *int32     `parquet:"age_days,optional,snappy"`
	Status          string     `parquet:"status,snappy"`
}

// SnapshotTrigger is one country and family pair of a snapshot, flattened for file output.
type SnapshotTrigger struct {
	SnapshotID    string     `parquet:"snapshot_id,snappy"`
	Country       string     `parquet:"country,snappy"`
	Enabled       bool       `parquet:"enabled,snappy"`
	Family        string     `parquet:"family,snappy"`
	Executions    int64      `parquet:"executions,snappy"`
	LastExecution *time.Time `parquet:"last_execution,optional,snappy"`
	Fired         *int64     `parquet:"fired,optional,snappy"`
	CountryStatus string     `parquet:"country_status,snappy"`
}

// writeRows writes a slice of rows to a Parquet file.
// The schema is derived from the struct tags of T.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes run history rows to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteTableStatusesParquet writes per-run table statuses to a Parquet file.
func WriteTableStatusesParquet(data []TableStatus, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteSnapshotParquet writes the tables and triggers of a snapshot to two files:
// <base>.tables.parquet and <base>.triggers.parquet. It returns the paths written.
func WriteSnapshotParquet(snapshot schema.HealthSnapshot, base string) ([]string, error) {
	tablesPath := base + ".tables.parquet"
	if err := writeRows(ConvertSnapshotTables(snapshot), tablesPath); err != nil {
		return nil, fmt.Errorf("failed to write table statuses: %w", err)
	}
	triggersPath := base + ".triggers.parquet"
	if err := writeRows(ConvertSnapshotTriggers(snapshot), triggersPath); err != nil {
		return nil, fmt.Errorf("failed to write trigger statuses: %w", err)
	}
	return []string{tablesPath, triggersPath}, nil
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:             record.RunID,
			SnapshotID:        record.SnapshotID,
			Environment:       record.Environment,
			Scope:             record.Scope,
			GeneratedAt:       record.GeneratedAt,
			DurationMs:        record.DurationMs,
			MonitoredTables:   record.MonitoredTables,
			CurrentCount:      record.CurrentCount,
			RecentCount:       record.RecentCount,
			OutdatedCount:     record.OutdatedCount,
			StaleCount:        record.StaleCount,
			CriticalCount:     record.CriticalCount,
			UnknownCount:      record.UnknownCount,
			Countries:         record.Countries,
			EnabledNoActivity: record.EnabledNoActivity,
			WarningCount:      record.WarningCount,
		}
	}
	return result
}

// ConvertTableStatusRecords converts schema.TableStatusRecord to TableStatus for Parquet export.
func ConvertTableStatusRecords(records []schema.TableStatusRecord) []TableStatus {
	result := make([]TableStatus, len(records))
	for i, record := range records {
		result[i] = TableStatus{
			RunID:       record.RunID,
			SchemaName:  record.SchemaName,
			TableName:   record.TableName,
			Status:      record.Status,
			AgeDays:     record.AgeDays,
			RowCount:    record.RowCount,
			Estimated:   record.Estimated,
			LastUpdated: record.LastUpdated,
		}
	}
	return result
}

// ConvertSnapshotTables flattens the table statuses of a snapshot.
func ConvertSnapshotTables(snapshot schema.HealthSnapshot) []SnapshotTable {
	result := make([]SnapshotTable, len(snapshot.Tables))
	for i, t := range snapshot.Tables {
		var age *int32
		if t.AgeDays != nil {
			a := int32(*t.AgeDays)
			age = &a
		}
		result[i] = SnapshotTable{
			SnapshotID:      snapshot.ID,
			Environment:     string(snapshot.Environment),
			GeneratedAt:     snapshot.GeneratedAt,
			SchemaName:      t.Schema,
			TableName:       t.Table,
			Category:        t.Category,
			TimestampColumn: t.TimestampColumn,
			Present:         t.Present,
			RowCount:        t.RowCount,
			Estimated:       t.Estimated,
			LastUpdated:     t.LastUpdated,
			AgeDays:         age,
			Status:          string(t.Status),
		}
	}
	return result
}

// ConvertSnapshotTriggers flattens the country summaries of a snapshot into one row per
// country and family. Countries without any family still get a single row with an empty family.
func ConvertSnapshotTriggers(snapshot schema.HealthSnapshot) []SnapshotTrigger {
	var result []SnapshotTrigger
	for _, c := range snapshot.Countries {
		if len(c.Families) == 0 {
			result = append(result, SnapshotTrigger{
				SnapshotID:    snapshot.ID,
				Country:       c.Country,
				Enabled:       c.Enabled,
				CountryStatus: string(c.Status),
			})
			continue
		}
		for _, family := range schema.AllFamilies {
			r, ok := c.Families[family]
			if !ok {
				continue
			}
			result = append(result, SnapshotTrigger{
				SnapshotID:    snapshot.ID,
				Country:       c.Country,
				Enabled:       c.Enabled,
				Family:        string(family),
				Executions:    r.Executions,
				LastExecution: r.LastExecution,
				Fired:         r.Fired,
				CountryStatus: string(c.Status),
			})
		}
	}
	return result
}
