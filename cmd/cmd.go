// Package cmd defines the command-line interface for idbhealth.
package cmd

import (
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(triggersCmd)
	rootCmd.AddCommand(bandsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("env", string(schema.DevEnv), "Warehouse environment: dev or prod")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet or xlsx")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to ('auto' for a timestamped name)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent table probes")
	rootCmd.PersistentFlags().Duration("query-timeout", contract.DefaultQueryTimeout, "Timeout of each warehouse query")
	rootCmd.PersistentFlags().Duration("count-budget", contract.DefaultCountBudget, "Time budget of an exact row count before falling back to the estimate")
	rootCmd.PersistentFlags().Int64("exact-count-threshold", contract.DefaultExactCountThreshold, "Estimated row count below which an exact COUNT(*) is issued")
	rootCmd.PersistentFlags().StringSlice("schemas", nil, "Comma-separated list of target schemas (default: the IDB schemas)")
	rootCmd.PersistentFlags().StringSlice("enabled-countries", nil, "Comma-separated ISO3 codes of countries with triggers enabled")
	rootCmd.PersistentFlags().String("mapping-file", "", "YAML file mapping monitored tables, views and alert families")
	rootCmd.PersistentFlags().Bool("strict-mapping", false, "Fail when a monitored table is missing from the warehouse")
	rootCmd.PersistentFlags().Int("retries", 0, "Retries on connectivity errors, with exponential backoff")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("addr", contract.DefaultAddr, "Address the HTTP API listens on")
	serveCmd.Flags().Duration("refresh", contract.DefaultRefreshInterval, "Interval between background assessments")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
