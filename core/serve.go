package core

import (
	"context"

	"github.com/rbpanama/idbhealth/internal/api"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/warehouse"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/rs/zerolog"
)

// ExecuteServe serves the latest snapshot over HTTP until ctx is cancelled.
// It serves as the main entry point for the 'serve' mode.
func ExecuteServe(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) error {
	logger := zerolog.Ctx(ctx).With().Str("component", "api").Logger()
	server := api.NewServer(api.ServerConfig{
		Assess:          NewAssessor(logger, cfg, warehouse.NewProvider(cfg), mgr),
		Logger:          logger,
		RefreshInterval: cfg.RefreshInterval,
	})
	return server.ListenAndServe(ctx, cfg.Addr)
}

// NewAssessor returns an api.Assessor running full assessments of the configured
// environment. Each snapshot is recorded in the run history.
func NewAssessor(logger zerolog.Logger, cfg *contract.Config, provider contract.ConnectionProvider, mgr contract.HistoryManager) api.Assessor {
	return func(ctx context.Context) (schema.HealthSnapshot, error) {
		// Request contexts do not carry the command logger
		ctx = logger.WithContext(ctx)
		return GetHealthSnapshot(ctx, cfg, provider, mgr, schema.FullScope)
	}
}
