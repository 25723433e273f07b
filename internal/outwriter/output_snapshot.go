package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// writeSnapshotText writes the human-readable report: tables, views, triggers, warnings, summary.
func writeSnapshotText(w io.Writer, snapshot schema.HealthSnapshot, cfg *contract.Config, duration time.Duration) error {
	if snapshot.Scope != schema.TriggersScope {
		if err := writeTablesTable(w, snapshot.Tables); err != nil {
			return err
		}
		if views := monitoredViews(snapshot); len(views) > 0 {
			if err := writeViewsTable(w, views); err != nil {
				return err
			}
		}
	}
	if snapshot.Scope != schema.TablesScope {
		if err := writeTriggersTable(w, snapshot.Countries); err != nil {
			return err
		}
	}
	if err := writeWarningsText(w, snapshot.Warnings); err != nil {
		return err
	}
	return writeSummaryText(w, snapshot, cfg, duration)
}

// writeTablesTable renders one row per monitored table.
func writeTablesTable(w io.Writer, tables []schema.TableStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Schema", "Table", "Category", "Rows", "Last Updated", "Age (d)", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{
			tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignLeft,
		}
	})

	nameWidth := getMaxNameWidth()
	data := make([][]string, 0, len(tables))
	for _, t := range tables {
		rows := formatRows(t.RowCount, t.Estimated)
		if !t.Present {
			rows = "missing"
		}
		data = append(data, []string{
			t.Schema,
			contract.TruncateText(t.Table, nameWidth),
			t.Category,
			rows,
			formatDate(t.LastUpdated),
			formatAge(t.AgeDays, "-"),
			contract.StatusEmoji(t.Status) + " " + contract.GetColorLabel(t.Status),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// monitoredViews collects the monitored views across all schemas.
func monitoredViews(snapshot schema.HealthSnapshot) []schema.ViewDescriptor {
	var out []schema.ViewDescriptor
	for _, s := range snapshot.Schemas {
		for _, v := range s.Views {
			if v.Monitored {
				out = append(out, v)
			}
		}
	}
	return out
}

// writeViewsTable renders the verification result of monitored views.
func writeViewsTable(w io.Writer, views []schema.ViewDescriptor) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Schema", "View", "Verified", "Rows"})

	data := make([][]string, 0, len(views))
	for _, v := range views {
		verified, rows := "no", "-"
		if v.Verified {
			verified = "yes"
		}
		if v.RowCount != nil {
			rows = strconv.FormatInt(*v.RowCount, 10)
		}
		data = append(data, []string{v.Schema, v.Name, verified, rows})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// reportedFamilies returns the families present in any country, in reporting order.
func reportedFamilies(countries []schema.CountryTriggerSummary) []schema.AlertFamily {
	seen := make(map[schema.AlertFamily]struct{})
	for _, c := range countries {
		for f := range c.Families {
			seen[f] = struct{}{}
		}
	}
	var out []schema.AlertFamily
	for _, f := range schema.AllFamilies {
		if _, ok := seen[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// writeTriggersTable renders one row per country with the executions of each family.
func writeTriggersTable(w io.Writer, countries []schema.CountryTriggerSummary) error {
	families := reportedFamilies(countries)

	headers := []string{"Country", "Enabled"}
	for _, f := range families {
		headers = append(headers, string(f))
	}
	headers = append(headers, "Total", "Fired", "Last Execution", "Status")

	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(countries))
	for _, c := range countries {
		enabled := "no"
		if c.Enabled {
			enabled = "yes"
		}
		row := []string{c.Country, enabled}
		for _, f := range families {
			if r, ok := c.Families[f]; ok {
				row = append(row, strconv.FormatInt(r.Executions, 10))
			} else {
				row = append(row, "-")
			}
		}
		status := contract.StatusEmoji(c.Status) + " " + contract.GetColorLabel(c.Status)
		if c.EnabledNoActivity {
			status += " (no activity)"
		}
		row = append(row,
			strconv.FormatInt(c.TotalExecutions, 10),
			formatFired(c.Families[schema.TriggerResultFamily].Fired, "-"),
			formatDate(c.LastExecution),
			status,
		)
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeWarningsText lists the warnings of the run, if any.
func writeWarningsText(w io.Writer, warnings []schema.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "⚠️  %d warning(s):\n", len(warnings)); err != nil {
		return err
	}
	for _, wr := range warnings {
		object := wr.Object
		if wr.Family != "" {
			object = fmt.Sprintf("%s %s", wr.Family, wr.Object)
		}
		if _, err := fmt.Fprintf(w, "  [%s] %s (%s): %s\n", wr.Pass, object, wr.Kind, wr.Message); err != nil {
			return err
		}
	}
	return nil
}

// writeSummaryText writes the headline counts and run details.
func writeSummaryText(w io.Writer, snapshot schema.HealthSnapshot, cfg *contract.Config, duration time.Duration) error {
	sum := snapshot.Summary
	if snapshot.Scope != schema.TriggersScope {
		parts := make([]string, 0, len(schema.AllStatuses))
		for _, st := range schema.AllStatuses {
			parts = append(parts, fmt.Sprintf("%s %d %s", contract.StatusEmoji(st), sum.StatusCounts[st], st))
		}
		if _, err := fmt.Fprintf(w, "Freshness of %d monitored tables: %s\n", sum.MonitoredTables, strings.Join(parts, " | ")); err != nil {
			return err
		}
	}
	if snapshot.Scope != schema.TablesScope {
		if _, err := fmt.Fprintf(w, "Triggers: %d countries, %d enabled with no activity, %d fired\n",
			sum.Countries, sum.EnabledNoActivity, sum.TriggersFired); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Assessment %s completed in %v with %d workers. History backend: %s\n",
		snapshot.ID, duration, cfg.Workers, cfg.HistoryBackend); err != nil {
		return err
	}
	return nil
}

// snapshotCSVHeader is shared by table and trigger rows; the section column tells them apart.
var snapshotCSVHeader = []string{
	"section", "schema", "name", "group", "status", "age_days", "count", "estimated", "last_seen", "fired", "no_activity",
}

// writeSnapshotCSV writes table rows then trigger rows, one row per country and family.
func writeSnapshotCSV(w io.Writer, snapshot schema.HealthSnapshot) error {
	return writeCSVWithHeader(w, snapshotCSVHeader, func(cw *csv.Writer) error {
		for _, t := range snapshot.Tables {
			rec := []string{
				"table",
				t.Schema,
				t.Table,
				t.Category,
				string(t.Status),
				formatAge(t.AgeDays, ""),
				strconv.FormatInt(t.RowCount, 10),
				strconv.FormatBool(t.Estimated),
				formatTime(t.LastUpdated, ""),
				"",
				"",
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		for _, c := range snapshot.Countries {
			families := reportedFamilies([]schema.CountryTriggerSummary{c})
			if len(families) == 0 {
				if err := cw.Write(triggerCSVRecord(c, schema.TriggerResult{Country: c.Country})); err != nil {
					return err
				}
				continue
			}
			for _, f := range families {
				if err := cw.Write(triggerCSVRecord(c, c.Families[f])); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func triggerCSVRecord(c schema.CountryTriggerSummary, r schema.TriggerResult) []string {
	return []string{
		"trigger",
		"",
		c.Country,
		string(r.Family),
		string(c.Status),
		"",
		strconv.FormatInt(r.Executions, 10),
		"",
		formatTime(r.LastExecution, ""),
		formatFired(r.Fired, ""),
		strconv.FormatBool(c.EnabledNoActivity),
	}
}
