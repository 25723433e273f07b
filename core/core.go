// Package core has the assessment logic: inventory, freshness, trigger health and snapshot building.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rbpanama/idbhealth/core/freshness"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/outwriter"
	"github.com/rbpanama/idbhealth/internal/warehouse"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/rs/zerolog"
)

// Backoff bounds between connection attempts.
var (
	retryInitialInterval = time.Second
	retryMaxInterval     = 30 * time.Second
)

// ExecutorFunc defines the function signature for executing different assessment modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) error

// ExecuteAssessment runs every pass, prints the snapshot and records it in the run history.
// It serves as the main entry point for the 'assess' mode.
func ExecuteAssessment(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) error {
	return executeScope(ctx, cfg, warehouse.NewProvider(cfg), mgr, schema.FullScope)
}

// ExecuteTables runs inventory and freshness only.
// It serves as the main entry point for the 'tables' mode.
func ExecuteTables(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) error {
	return executeScope(ctx, cfg, warehouse.NewProvider(cfg), mgr, schema.TablesScope)
}

// ExecuteTriggers runs the trigger pass only.
// It serves as the main entry point for the 'triggers' mode.
func ExecuteTriggers(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) error {
	return executeScope(ctx, cfg, warehouse.NewProvider(cfg), mgr, schema.TriggersScope)
}

// ExecuteBands displays the freshness band definitions.
// This is a static display that does not touch the warehouse.
func ExecuteBands(_ context.Context, cfg *contract.Config, _ contract.HistoryManager) error {
	return outwriter.PrintBands(freshness.Bands(), cfg)
}

func executeScope(ctx context.Context, cfg *contract.Config, provider contract.ConnectionProvider, mgr contract.HistoryManager, scope schema.Scope) error {
	if !shouldSuppressHeader(ctx) {
		outwriter.LogAssessmentHeader(cfg, scope)
	}

	snapshot, err := GetHealthSnapshot(ctx, cfg, provider, mgr, scope)
	if err != nil {
		return err
	}

	return outwriter.PrintSnapshot(snapshot, cfg, time.Duration(snapshot.DurationMs)*time.Millisecond)
}

// GetHealthSnapshot runs an assessment with retries and records it in the run history.
// Callers render the snapshot themselves.
func GetHealthSnapshot(ctx context.Context, cfg *contract.Config, provider contract.ConnectionProvider, mgr contract.HistoryManager, scope schema.Scope) (schema.HealthSnapshot, error) {
	snapshot, err := AssessWithRetry(ctx, cfg, provider, scope)
	if err != nil {
		return schema.HealthSnapshot{}, err
	}
	recordSnapshot(ctx, mgr, snapshot)
	return snapshot, nil
}

// recordSnapshot stores a finished snapshot. History failures never fail the run.
func recordSnapshot(ctx context.Context, mgr contract.HistoryManager, snapshot schema.HealthSnapshot) {
	if mgr == nil {
		return
	}
	store := mgr.GetHistoryStore()
	if store == nil {
		return
	}
	runID, err := store.RecordSnapshot(snapshot)
	if err != nil {
		contract.LogWarn("Run history recording failed", err)
		return
	}
	zerolog.Ctx(ctx).Debug().Int64("run_id", runID).Str("snapshot", snapshot.ID).Msg("snapshot recorded")
}

// AssessWithRetry calls Assess and retries connectivity failures with
// exponential backoff, up to cfg.Retries extra attempts. Other errors are returned
// as-is on the first attempt.
func AssessWithRetry(ctx context.Context, cfg *contract.Config, provider contract.ConnectionProvider, scope schema.Scope) (schema.HealthSnapshot, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.MaxElapsedTime = 0 // Unlimited, we control retries via WithMaxRetries

	backoffWithRetries := backoff.WithMaxRetries(bo, uint64(max(cfg.Retries, 0)))
	backoffWithContext := backoff.WithContext(backoffWithRetries, ctx)

	var snapshot schema.HealthSnapshot
	operation := func() error {
		s, err := Assess(ctx, cfg, provider, scope)
		if err != nil {
			if ctx.Err() != nil || !contract.IsConnectivity(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		snapshot = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		zerolog.Ctx(ctx).Warn().Err(err).Dur("retry_in", wait).Msg("warehouse unreachable, retrying")
	}

	if err := backoff.RetryNotify(operation, backoffWithContext, notify); err != nil {
		return schema.HealthSnapshot{}, err
	}
	return snapshot, nil
}

// Assess opens a catalog for the configured environment and runs one assessment.
func Assess(ctx context.Context, cfg *contract.Config, provider contract.ConnectionProvider, scope schema.Scope) (schema.HealthSnapshot, error) {
	catalog, err := provider.Connect(ctx, cfg.Environment)
	if err != nil {
		return schema.HealthSnapshot{}, err
	}
	defer func() {
		if err := catalog.Close(); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("closing warehouse handle")
		}
	}()
	return RunAssessment(ctx, cfg, catalog, scope)
}

// RunAssessment runs the passes selected by scope against an open catalog.
// The inventory and trigger passes run concurrently; the snapshot is built only
// after both have finished. If ctx is cancelled no snapshot is returned.
func RunAssessment(ctx context.Context, cfg *contract.Config, catalog contract.Catalog, scope schema.Scope) (schema.HealthSnapshot, error) {
	start := time.Now()
	now := nowFrom(ctx)
	logger := zerolog.Ctx(ctx).With().Str("env", string(cfg.Environment)).Str("scope", string(scope)).Logger()
	ctx = logger.WithContext(ctx)

	var (
		wg                       sync.WaitGroup
		schemas                  []schema.SchemaSnapshot
		countries                []schema.CountryTriggerSummary
		invWarnings, trgWarnings []schema.Warning
		invErr, trgErr           error
	)

	if scope != schema.TriggersScope {
		wg.Go(func() {
			schemas, invWarnings, invErr = Inventory(ctx, catalog, cfg, now)
		})
	}
	if scope != schema.TablesScope {
		wg.Go(func() {
			countries, trgWarnings, trgErr = AggregateTriggers(ctx, catalog, cfg, now)
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return schema.HealthSnapshot{}, err
	}
	if invErr != nil {
		return schema.HealthSnapshot{}, invErr
	}
	if trgErr != nil {
		return schema.HealthSnapshot{}, fmt.Errorf("trigger pass: %w", trgErr)
	}

	var tables []schema.TableStatus
	var tblWarnings []schema.Warning
	if scope != schema.TriggersScope {
		var err error
		tables, tblWarnings, err = AssessTables(cfg, schemas, now)
		if err != nil {
			return schema.HealthSnapshot{}, err
		}
	}

	snapshot := NewSnapshotBuilder(cfg.Environment, scope, now).
		WithSchemas(schemas).
		WithTables(tables).
		WithCountries(countries).
		AddWarnings(invWarnings...).
		AddWarnings(tblWarnings...).
		AddWarnings(trgWarnings...).
		WithDuration(time.Since(start)).
		Build()

	logger.Info().
		Str("snapshot", snapshot.ID).
		Int("tables", snapshot.Summary.MonitoredTables).
		Int("countries", snapshot.Summary.Countries).
		Int("warnings", snapshot.Summary.Warnings).
		Int64("duration_ms", snapshot.DurationMs).
		Msg("assessment complete")
	return snapshot, nil
}
