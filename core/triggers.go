package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rbpanama/idbhealth/core/freshness"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/rs/zerolog"
)

// familyOutcome holds the grouped rows of one family table, or the reason it failed.
type familyOutcome struct {
	family  contract.AlertFamilyTable
	results []schema.TriggerResult
	err     error
}

// AggregateTriggers runs one grouped query per alert family and folds the rows
// into per-country summaries sorted by country code. Every enabled country is
// present even without rows. A failing family yields one warning and is left
// out of the summaries; the other families still report.
// Only cancellation of ctx is returned as an error.
func AggregateTriggers(ctx context.Context, catalog contract.Catalog, cfg *contract.Config, now time.Time) ([]schema.CountryTriggerSummary, []schema.Warning, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	outcomes := make([]familyOutcome, len(cfg.Families))
	var wg sync.WaitGroup
	for i, family := range cfg.Families {
		wg.Go(func() {
			results, err := catalog.AggregateFamily(ctx, family)
			outcomes[i] = familyOutcome{family: family, results: results, err: err}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var warnings []schema.Warning
	var succeeded []contract.AlertFamilyTable
	for _, o := range outcomes {
		if o.err != nil {
			logger.Warn().Err(o.err).Str("family", string(o.family.Family)).Msg("alert family aggregation failed")
			w := contract.WarningFromError(schema.TriggersPass, o.family.QualifiedName(), o.err)
			w.Family = o.family.Family
			warnings = append(warnings, w)
			continue
		}
		succeeded = append(succeeded, o.family)
	}

	summaries := foldTriggerResults(cfg.EnabledCountries, succeeded, outcomes, now)

	logger.Debug().
		Int("families", len(cfg.Families)).
		Int("countries", len(summaries)).
		Int("warnings", len(warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("trigger pass complete")
	return summaries, warnings, nil
}

// foldTriggerResults builds the country summaries. Each summary carries an entry
// for every family that answered, with zero counts where the country had no rows.
func foldTriggerResults(enabled []string, succeeded []contract.AlertFamilyTable, outcomes []familyOutcome, now time.Time) []schema.CountryTriggerSummary {
	byCountry := make(map[string]*schema.CountryTriggerSummary)
	get := func(code string) *schema.CountryTriggerSummary {
		s, ok := byCountry[code]
		if !ok {
			s = &schema.CountryTriggerSummary{Country: code, Families: make(map[schema.AlertFamily]schema.TriggerResult)}
			byCountry[code] = s
		}
		return s
	}

	for _, code := range enabled {
		get(schema.NormalizeCountry(code)).Enabled = true
	}

	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		for _, r := range o.results {
			code := schema.NormalizeCountry(r.Country)
			if code == "" {
				continue
			}
			r.Country = code
			r.Family = o.family.Family
			s := get(code)
			if prev, ok := s.Families[r.Family]; ok {
				// Codes that differ only in case or whitespace collapse into one row.
				r = mergeResults(prev, r)
			}
			s.Families[r.Family] = r
		}
	}

	out := make([]schema.CountryTriggerSummary, 0, len(byCountry))
	for _, s := range byCountry {
		for _, fam := range succeeded {
			if _, ok := s.Families[fam.Family]; ok {
				continue
			}
			zero := schema.TriggerResult{Family: fam.Family, Country: s.Country}
			if fam.OutcomeColumn != "" {
				zero.Fired = new(int64)
			}
			s.Families[fam.Family] = zero
		}
		for _, r := range s.Families {
			s.TotalExecutions += r.Executions
			s.LastExecution = latest(s.LastExecution, r.LastExecution)
		}
		s.EnabledNoActivity = s.Enabled && s.TotalExecutions == 0
		s.Status = freshness.Classify(s.LastExecution, now)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

func mergeResults(a, b schema.TriggerResult) schema.TriggerResult {
	a.Executions += b.Executions
	a.LastExecution = latest(a.LastExecution, b.LastExecution)
	if b.Fired != nil {
		fired := *b.Fired
		if a.Fired != nil {
			fired += *a.Fired
		}
		a.Fired = &fired
	}
	return a
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
