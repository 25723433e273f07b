package schema

import "time"

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the idbhealth_runs table.
type RunRecord struct {
	RunID             int64
	SnapshotID        string
	Environment       string
	Scope             string
	GeneratedAt       time.Time
	DurationMs        int64
	MonitoredTables   int32
	CurrentCount      int32
	RecentCount       int32
	OutdatedCount     int32
	StaleCount        int32
	CriticalCount     int32
	UnknownCount      int32
	Countries         int32
	EnabledNoActivity int32
	WarningCount      int32
}

// TableStatusRecord represents a row from the idbhealth_table_status table.
type TableStatusRecord struct {
	RunID       int64
	SchemaName  string
	TableName   string
	Status      string
	AgeDays     *int32
	RowCount    int64
	Estimated   bool
	LastUpdated *time.Time
}
