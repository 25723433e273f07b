package cmd

import (
	"github.com/rbpanama/idbhealth/core"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/spf13/cobra"
)

// assessCmd runs every pass against one environment.
var assessCmd = &cobra.Command{
	Use:   "assess [dev|prod]",
	Short: "Assess table freshness and trigger health of the warehouse.",
	Long: `Run a full health assessment of the Integrated Database.

Inventories the target schemas, classifies each monitored table into a
freshness band and summarizes alert trigger activity per country:
- Find tables whose data pipelines stopped updating
- Spot enabled countries whose triggers produced nothing
- Verify that the monitored views still resolve

Examples:
  # Assess the development warehouse
  idbhealth assess dev

  # Assess production and export a workbook for the weekly review
  idbhealth assess prod --output xlsx --output-file auto

  # Retry twice when the VPN drops
  idbhealth assess prod --retries 2`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAssessment(rootCtx, cfg, historyManager); err != nil {
			contract.LogFatal("Cannot run assessment", err)
		}
	},
}

// tablesCmd runs the inventory and freshness passes only.
var tablesCmd = &cobra.Command{
	Use:   "tables [dev|prod]",
	Short: "Show the freshness band of every monitored table.",
	Long: `Inventory the target schemas and classify the monitored tables.

The trigger pass is skipped.

Examples:
  # Show stale tables in text form
  idbhealth tables prod

  # Export to CSV
  idbhealth tables prod --output csv --output-file tables.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTables(rootCtx, cfg, historyManager); err != nil {
			contract.LogFatal("Cannot run table assessment", err)
		}
	},
}

// triggersCmd runs the trigger pass only.
var triggersCmd = &cobra.Command{
	Use:   "triggers [dev|prod]",
	Short: "Summarize alert trigger activity per country.",
	Long: `Aggregate every alert family table by country.

Enabled countries without any activity are flagged.

Examples:
  # Check trigger health with the enabled countries from the config file
  idbhealth triggers prod

  # Override the enabled countries
  idbhealth triggers prod --enabled-countries BLZ,ECU,GTM`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTriggers(rootCtx, cfg, historyManager); err != nil {
			contract.LogFatal("Cannot run trigger assessment", err)
		}
	},
}

// bandsCmd prints the freshness band definitions.
var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "Print the freshness band definitions.",
	Long: `Display the age ranges of the freshness bands.

Examples:
  idbhealth bands
  idbhealth bands --output json`,
	Args:    cobra.NoArgs,
	PreRunE: outputSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteBands(rootCtx, cfg, historyManager); err != nil {
			contract.LogFatal("Cannot print bands", err)
		}
	},
}
