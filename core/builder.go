package core

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rbpanama/idbhealth/schema"
)

// SnapshotBuilder assembles a HealthSnapshot from the outputs of the passes.
type SnapshotBuilder struct {
	snapshot schema.HealthSnapshot
}

// NewSnapshotBuilder is the starting point for building a snapshot.
func NewSnapshotBuilder(env schema.Environment, scope schema.Scope, generatedAt time.Time) *SnapshotBuilder {
	return &SnapshotBuilder{
		snapshot: schema.HealthSnapshot{
			Environment: env,
			Scope:       scope,
			GeneratedAt: generatedAt.UTC(),
		},
	}
}

// WithID overrides the generated snapshot ID.
func (b *SnapshotBuilder) WithID(id string) *SnapshotBuilder {
	b.snapshot.ID = id
	return b
}

// WithSchemas sets the inventory of the target schemas.
func (b *SnapshotBuilder) WithSchemas(schemas []schema.SchemaSnapshot) *SnapshotBuilder {
	b.snapshot.Schemas = schemas
	return b
}

// WithTables sets the freshness verdicts of the monitored tables.
func (b *SnapshotBuilder) WithTables(tables []schema.TableStatus) *SnapshotBuilder {
	b.snapshot.Tables = tables
	return b
}

// WithCountries sets the per-country trigger summaries.
func (b *SnapshotBuilder) WithCountries(countries []schema.CountryTriggerSummary) *SnapshotBuilder {
	b.snapshot.Countries = countries
	return b
}

// AddWarnings appends warnings in pass order.
func (b *SnapshotBuilder) AddWarnings(warnings ...schema.Warning) *SnapshotBuilder {
	b.snapshot.Warnings = append(b.snapshot.Warnings, warnings...)
	return b
}

// WithDuration records how long the assessment took.
func (b *SnapshotBuilder) WithDuration(d time.Duration) *SnapshotBuilder {
	b.snapshot.DurationMs = d.Milliseconds()
	return b
}

// Build computes the summary and returns the snapshot. The returned value
// shares no slices with the builder inputs.
func (b *SnapshotBuilder) Build() schema.HealthSnapshot {
	s := b.snapshot
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	s.Schemas = cloneSchemas(s.Schemas)
	s.Tables = slices.Clone(s.Tables)
	s.Countries = cloneCountries(s.Countries)
	s.Warnings = slices.Clone(s.Warnings)
	if s.Schemas == nil {
		s.Schemas = []schema.SchemaSnapshot{}
	}
	if s.Tables == nil {
		s.Tables = []schema.TableStatus{}
	}
	if s.Countries == nil {
		s.Countries = []schema.CountryTriggerSummary{}
	}
	if s.Warnings == nil {
		s.Warnings = []schema.Warning{}
	}

	s.Summary = summarize(s)
	return s
}

// summarize computes the headline counts of a snapshot.
func summarize(s schema.HealthSnapshot) schema.SnapshotSummary {
	sum := schema.SnapshotSummary{
		SchemasInspected: len(s.Schemas),
		MonitoredTables:  len(s.Tables),
		StatusCounts:     make(map[schema.FreshnessStatus]int, len(schema.AllStatuses)),
		Countries:        len(s.Countries),
		Warnings:         len(s.Warnings),
	}
	for _, st := range schema.AllStatuses {
		sum.StatusCounts[st] = 0
	}
	for _, sc := range s.Schemas {
		sum.TablesInventoried += len(sc.Tables)
		sum.ViewsInventoried += len(sc.Views)
	}
	for _, t := range s.Tables {
		sum.StatusCounts[t.Status]++
	}
	for _, c := range s.Countries {
		if c.EnabledNoActivity {
			sum.EnabledNoActivity++
		}
		for _, r := range c.Families {
			if r.Fired != nil {
				sum.TriggersFired += *r.Fired
			}
		}
	}
	return sum
}

func cloneSchemas(in []schema.SchemaSnapshot) []schema.SchemaSnapshot {
	if in == nil {
		return nil
	}
	out := make([]schema.SchemaSnapshot, len(in))
	for i, s := range in {
		s.Tables = slices.Clone(s.Tables)
		s.Views = slices.Clone(s.Views)
		out[i] = s
	}
	return out
}

func cloneCountries(in []schema.CountryTriggerSummary) []schema.CountryTriggerSummary {
	if in == nil {
		return nil
	}
	out := make([]schema.CountryTriggerSummary, len(in))
	for i, c := range in {
		c.Families = maps.Clone(c.Families)
		out[i] = c
	}
	return out
}
