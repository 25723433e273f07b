package cmd

import (
	"fmt"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/history"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need the history store without warehouse settings.
func historySetup() error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// Initialize the store with the loaded config
	if err := history.InitHistory(backend, connStr); err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// It does NOT initialize the store or create tables, allowing migrations to run
// on a fresh database.
func historyMigrateSetup() error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyMigrateSetupWrapper wraps historyMigrateSetup to provide PreRunE for migrate command.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return historyMigrateSetup()
}

// historyCmd focused on run history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup. No warehouse settings are needed to manage the store.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the run history of past assessments",
	Long: `Manage the optional run history.

When a history backend is configured, every assessment stores:
- Run metadata (environment, scope, duration, counts per band)
- The status of every monitored table

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export runs to Parquet for analytics
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Check the history store
  idbhealth history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  idbhealth history export --history-backend sqlite --output-file idb-history.parquet`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded assessment runs",
	Long: `Delete all stored runs and table statuses.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  idbhealth history export --output-file backup.parquet
  idbhealth history clear`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the SQLite file before removing it
		history.CloseHistory()
		if err := history.ClearHistory(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows run history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show information about the run history store.

Displays:
- Backend type and connection status
- Total number of runs stored
- Last and oldest run timestamps
- Database table sizes

Examples:
  idbhealth history status`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := history.Manager.GetHistoryStore()
		if store == nil {
			contract.LogFatal("Failed to get run history status", fmt.Errorf("run history is disabled (history-backend is %s)", cfg.HistoryBackend))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run history status", err)
		}
		history.PrintHistoryStatus(status)
	},
}

// historyExportCmd exports the run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history to Parquet for BI tools",
	Long: `Export all stored runs to Parquet.

Exports two datasets:
- <output>.runs.parquet - one row per assessment run
- <output>.table_status.parquet - one row per monitored table per run

Requires: --output-file parameter

Examples:
  idbhealth history export --output-file idb-history.parquet
  duckdb -c "SELECT * FROM read_parquet('idb-history.runs.parquet') LIMIT 10"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := history.ExecuteHistoryExport(cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  idbhealth history migrate --history-backend postgresql --history-db-connect "host=... dbname=..."

  # Rollback to initial state
  idbhealth history migrate --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := history.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
