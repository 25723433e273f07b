package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rbpanama/idbhealth/core/freshness"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/rs/zerolog"
)

// inventoryJob is one table or monitored view to probe. Results are written back
// by position so the output order does not depend on worker scheduling.
type inventoryJob struct {
	schemaIdx  int
	objectIdx  int
	schemaName string
	object     schema.CatalogObject
	column     string // timestamp column, monitored tables only
	monitored  bool
}

func (j inventoryJob) qualifiedName() string { return j.schemaName + "." + j.object.Name }

// inventoryResult is what a worker learned about one job.
type inventoryResult struct {
	rowCount      int64
	estimated     bool
	lastUpdated   *time.Time
	verified      bool
	columnMissing bool
	warnings      []schema.Warning
}

// Inventory lists the base tables and views of every target schema and probes
// row counts and last-updated timestamps. Failures scoped to one schema or one
// table become warnings. Only a connectivity failure before any schema could be
// listed, or cancellation of ctx, is returned as an error.
func Inventory(ctx context.Context, catalog contract.Catalog, cfg *contract.Config, now time.Time) ([]schema.SchemaSnapshot, []schema.Warning, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()
	var warnings []schema.Warning

	// --- 1. Resolve which target schemas exist ---
	existing, err := catalog.ListSchemas(ctx)
	known := make(map[string]struct{}, len(existing))
	switch {
	case err != nil && (contract.IsConnectivity(err) || ctx.Err() != nil):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("inventory: %w", err)
	case err != nil:
		// Schema listing can be denied while the schemas themselves are readable.
		warnings = append(warnings, contract.WarningFromError(schema.InventoryPass, "information_schema.SCHEMATA", err))
		known = nil
	default:
		for _, name := range existing {
			known[name] = struct{}{}
		}
	}

	// --- 2. List objects per schema ---
	monitored := cfg.MonitoredTableSet()
	monitoredViews := make(map[string]struct{}, len(cfg.Views))
	for _, v := range cfg.Views {
		monitoredViews[v.QualifiedName()] = struct{}{}
	}

	snapshots := make([]schema.SchemaSnapshot, 0, len(cfg.Schemas))
	var jobs []inventoryJob
	for _, name := range cfg.Schemas {
		if known != nil {
			if _, ok := known[name]; !ok {
				warnings = append(warnings, schema.Warning{
					Pass:    schema.InventoryPass,
					Object:  name,
					Kind:    schema.IntrospectionWarning,
					Message: fmt.Sprintf("schema %s does not exist", name),
				})
				continue
			}
		}

		objects, err := catalog.ListObjects(ctx, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			logger.Warn().Err(err).Str("schema", name).Msg("schema listing failed")
			warnings = append(warnings, contract.WarningFromError(schema.InventoryPass, name, err))
			continue
		}

		snap := schema.SchemaSnapshot{Name: name, CapturedAt: now}
		sort.SliceStable(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
		schemaIdx := len(snapshots)
		for _, obj := range objects {
			qualified := name + "." + obj.Name
			switch obj.Kind {
			case schema.BaseTableKind:
				mt, isMonitored := monitored[qualified]
				snap.Tables = append(snap.Tables, schema.TableDescriptor{
					Schema:    name,
					Name:      obj.Name,
					Category:  mt.Category,
					Monitored: isMonitored,
				})
				jobs = append(jobs, inventoryJob{
					schemaIdx:  schemaIdx,
					objectIdx:  len(snap.Tables) - 1,
					schemaName: name,
					object:     obj,
					column:     mt.Column,
					monitored:  isMonitored,
				})
			case schema.ViewKind:
				_, isMonitored := monitoredViews[qualified]
				snap.Views = append(snap.Views, schema.ViewDescriptor{Schema: name, Name: obj.Name, Monitored: isMonitored})
				if isMonitored {
					jobs = append(jobs, inventoryJob{
						schemaIdx:  schemaIdx,
						objectIdx:  len(snap.Views) - 1,
						schemaName: name,
						object:     obj,
						monitored:  true,
					})
				}
			}
		}
		if snap.Tables == nil {
			snap.Tables = []schema.TableDescriptor{}
		}
		if snap.Views == nil {
			snap.Views = []schema.ViewDescriptor{}
		}
		snapshots = append(snapshots, snap)
	}

	// --- 3. Probe tables and monitored views in a worker pool ---
	results := probeObjects(ctx, catalog, cfg, jobs)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for i, job := range jobs {
		res := results[i]
		snap := &snapshots[job.schemaIdx]
		if job.object.Kind == schema.ViewKind {
			v := &snap.Views[job.objectIdx]
			v.Verified = res.verified
			if res.verified {
				n := res.rowCount
				v.RowCount = &n
			}
		} else {
			t := &snap.Tables[job.objectIdx]
			t.RowCount = res.rowCount
			t.Estimated = res.estimated
			t.LastUpdated = res.lastUpdated
			if t.Monitored {
				t.TimestampColumn = job.column
				t.ColumnMissing = res.columnMissing
				t.Status = tableStatus(res, now)
			}
		}
		warnings = append(warnings, res.warnings...)
	}

	// --- 4. Monitored views that were not found ---
	listed := listedSchemas(snapshots)
	for _, v := range cfg.Views {
		if _, ok := listed[v.Schema]; !ok {
			continue
		}
		if !hasView(snapshots, v) {
			warnings = append(warnings, schema.Warning{
				Pass:    schema.InventoryPass,
				Object:  v.QualifiedName(),
				Kind:    schema.IntrospectionWarning,
				Message: fmt.Sprintf("view %s does not exist", v.QualifiedName()),
			})
		}
	}

	logger.Debug().
		Int("schemas", len(snapshots)).
		Int("objects", len(jobs)).
		Int("warnings", len(warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("inventory pass complete")
	return snapshots, warnings, nil
}

// probeObjects runs the per-object probes on cfg.Workers goroutines.
func probeObjects(ctx context.Context, catalog contract.Catalog, cfg *contract.Config, jobs []inventoryJob) []inventoryResult {
	results := make([]inventoryResult, len(jobs))
	jobCh := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for range max(cfg.Workers, 1) {
		wg.Go(func() {
			for idx := range jobCh {
				if ctx.Err() != nil {
					continue
				}
				results[idx] = probeObject(ctx, catalog, cfg, jobs[idx])
			}
		})
	}

	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	return results
}

func probeObject(ctx context.Context, catalog contract.Catalog, cfg *contract.Config, job inventoryJob) inventoryResult {
	qualified := job.qualifiedName()
	pass := schema.InventoryPass
	var res inventoryResult

	if job.object.Kind == schema.ViewKind {
		n, err := catalog.CountRows(ctx, job.schemaName, job.object.Name)
		if err != nil {
			res.warnings = append(res.warnings, contract.WarningFromError(pass, qualified, err))
			return res
		}
		res.rowCount = n
		res.verified = true
		return res
	}

	count, estimated, err := countRows(ctx, catalog, cfg, job.schemaName, job.object)
	res.rowCount = count
	res.estimated = estimated
	if err != nil {
		res.warnings = append(res.warnings, contract.WarningFromError(pass, qualified, err))
	}

	if !job.monitored {
		return res
	}
	if !res.estimated && res.rowCount == 0 {
		// Empty table: MAX would be NULL anyway.
		return res
	}
	ts, err := catalog.MaxTimestamp(ctx, job.schemaName, job.object.Name, job.column)
	if err != nil {
		res.warnings = append(res.warnings, contract.WarningFromError(schema.FreshnessPass, qualified+"."+job.column, err))
		res.columnMissing = contract.IsUnknownColumn(err)
		return res
	}
	res.lastUpdated = ts
	return res
}

// countRows returns an exact count for small tables and the catalog estimate for
// large ones. An exact count that exceeds the count budget falls back to the
// estimate without a warning.
func countRows(ctx context.Context, catalog contract.Catalog, cfg *contract.Config, schemaName string, obj schema.CatalogObject) (int64, bool, error) {
	if obj.EstimatedRows >= cfg.ExactCountThreshold {
		return obj.EstimatedRows, true, nil
	}

	budget := cfg.CountBudget
	if budget <= 0 {
		budget = contract.DefaultCountBudget
	}
	countCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	n, err := catalog.CountRows(countCtx, schemaName, obj.Name)
	if err == nil {
		return n, false, nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(ctx).Debug().Str("table", schemaName+"."+obj.Name).Dur("budget", budget).Msg("exact count over budget, using estimate")
		return obj.EstimatedRows, true, nil
	}
	return obj.EstimatedRows, true, err
}

// tableStatus classifies a monitored table. An empty table is Unknown even if
// a stray timestamp was returned.
func tableStatus(res inventoryResult, now time.Time) schema.FreshnessStatus {
	if !res.estimated && res.rowCount == 0 {
		return schema.UnknownStatus
	}
	return freshness.Classify(res.lastUpdated, now)
}

func listedSchemas(snapshots []schema.SchemaSnapshot) map[string]struct{} {
	out := make(map[string]struct{}, len(snapshots))
	for _, s := range snapshots {
		out[s.Name] = struct{}{}
	}
	return out
}

func hasView(snapshots []schema.SchemaSnapshot, v contract.MonitoredView) bool {
	for _, s := range snapshots {
		if s.Name != v.Schema {
			continue
		}
		for _, view := range s.Views {
			if view.Name == v.View {
				return true
			}
		}
	}
	return false
}
