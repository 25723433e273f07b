package outwriter

import (
	"fmt"
	"strings"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	tableSheet    = "Table Status"
	triggerSheet  = "Trigger Status"
	viewSheet     = "Views Status"
	warningSheet  = "Warnings"
	metadataSheet = "Metadata"
)

// writeSnapshotXLSX writes the snapshot as a workbook with one sheet per section.
func writeSnapshotXLSX(snapshot schema.HealthSnapshot, cfg *contract.Config, outputFile string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", tableSheet); err != nil {
		return err
	}
	for _, name := range []string{triggerSheet, viewSheet, warningSheet, metadataSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return err
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{tableSheet, []any{"Schema", "Table", "Category", "Timestamp Column", "Present", "Rows", "Estimated", "Last Updated", "Age (days)", "Status"}, tableRows(snapshot)},
		{triggerSheet, []any{"Country", "Enabled", "Family", "Executions", "Last Execution", "Fired", "No Activity", "Status"}, triggerRows(snapshot)},
		{viewSheet, []any{"Schema", "View", "Verified", "Rows"}, viewRows(snapshot)},
		{warningSheet, []any{"Pass", "Object", "Family", "Kind", "Message"}, warningRows(snapshot)},
		{metadataSheet, []any{"Key", "Value"}, metadataRows(snapshot, cfg)},
	}

	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", s.name, err)
		}
	}

	return f.SaveAs(outputFile)
}

// writeSheet writes a bold header followed by the rows, starting at A1.
func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol := strings.TrimRight(last, "0123456789")
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func tableRows(snapshot schema.HealthSnapshot) [][]any {
	rows := make([][]any, 0, len(snapshot.Tables))
	for _, t := range snapshot.Tables {
		var age any = ""
		if t.AgeDays != nil {
			age = *t.AgeDays
		}
		rows = append(rows, []any{
			t.Schema, t.Table, t.Category, t.TimestampColumn, t.Present, t.RowCount, t.Estimated,
			formatTime(t.LastUpdated, ""), age, contract.GetPlainLabel(t.Status),
		})
	}
	return rows
}

func triggerRows(snapshot schema.HealthSnapshot) [][]any {
	var rows [][]any
	for _, c := range snapshot.Countries {
		families := reportedFamilies([]schema.CountryTriggerSummary{c})
		if len(families) == 0 {
			rows = append(rows, []any{
				c.Country, c.Enabled, "", 0, "", "", c.EnabledNoActivity, contract.GetPlainLabel(c.Status),
			})
			continue
		}
		for _, f := range families {
			r := c.Families[f]
			rows = append(rows, []any{
				c.Country, c.Enabled, string(f), r.Executions, formatTime(r.LastExecution, ""),
				formatFired(r.Fired, ""), c.EnabledNoActivity, contract.GetPlainLabel(c.Status),
			})
		}
	}
	return rows
}

func viewRows(snapshot schema.HealthSnapshot) [][]any {
	var rows [][]any
	for _, s := range snapshot.Schemas {
		for _, v := range s.Views {
			var count any = ""
			if v.RowCount != nil {
				count = *v.RowCount
			}
			rows = append(rows, []any{v.Schema, v.Name, v.Verified, count})
		}
	}
	return rows
}

func warningRows(snapshot schema.HealthSnapshot) [][]any {
	rows := make([][]any, 0, len(snapshot.Warnings))
	for _, w := range snapshot.Warnings {
		rows = append(rows, []any{string(w.Pass), w.Object, string(w.Family), string(w.Kind), w.Message})
	}
	return rows
}

func metadataRows(snapshot schema.HealthSnapshot, cfg *contract.Config) [][]any {
	sum := snapshot.Summary
	rows := [][]any{
		{"Snapshot ID", snapshot.ID},
		{"Environment", string(snapshot.Environment)},
		{"Scope", string(snapshot.Scope)},
		{"Generated At", snapshot.GeneratedAt.UTC().Format(contract.DateTimeFormat)},
		{"Duration (ms)", snapshot.DurationMs},
		{"Schemas", strings.Join(cfg.Schemas, ", ")},
		{"Monitored Tables", sum.MonitoredTables},
	}
	for _, st := range schema.AllStatuses {
		rows = append(rows, []any{string(st), sum.StatusCounts[st]})
	}
	return append(rows,
		[]any{"Countries", sum.Countries},
		[]any{"Enabled With No Activity", sum.EnabledNoActivity},
		[]any{"Triggers Fired", sum.TriggersFired},
		[]any{"Warnings", sum.Warnings},
	)
}
