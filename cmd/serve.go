package cmd

import (
	"github.com/rbpanama/idbhealth/core"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/spf13/cobra"
)

// serveCmd serves the latest snapshot to the dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve [dev|prod]",
	Short: "Serve the latest health snapshot as a JSON API",
	Long: `Assess the warehouse periodically and serve the latest snapshot over HTTP.

Endpoints:
  GET  /healthz             - process and refresh status
  GET  /api/v1/snapshot     - full snapshot
  GET  /api/v1/tables       - table statuses (?status=Stale,Critical&schema=idb)
  GET  /api/v1/triggers     - trigger summaries (?country=GTM, ?no_activity=true)
  POST /api/v1/refresh      - run an assessment now (rate limited)

Examples:
  idbhealth serve prod --addr :8080 --refresh 15m`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteServe(core.WithSuppressHeader(rootCtx), cfg, historyManager); err != nil {
			contract.LogFatal("Cannot serve health API", err)
		}
	},
}
