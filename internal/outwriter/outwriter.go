// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/parquet"
	"github.com/rbpanama/idbhealth/schema"
	"golang.org/x/term"
)

// LogAssessmentHeader prints a concise, 2-line header before an assessment.
// It goes to stderr so that JSON and CSV on stdout stay parseable.
func LogAssessmentHeader(cfg *contract.Config, scope schema.Scope) {
	// Line 1: The environment and what is being assessed
	fmt.Fprintf(os.Stderr, "🔎 Warehouse: %s@%s (Scope: %s)\n", cfg.Environment, cfg.Warehouse.Host, scope)

	// Line 2: What is covered
	fmt.Fprintf(os.Stderr, "📋 Schemas: %s | %d tables, %d families, %d countries\n",
		strings.Join(cfg.Schemas, ", "), len(cfg.Tables), len(cfg.Families), len(cfg.EnabledCountries))
}

// PrintSnapshot renders a snapshot, dispatching based on the output format configured.
// An output file of "auto" becomes idb_health_<env>_<timestamp>.<ext>.
func PrintSnapshot(snapshot schema.HealthSnapshot, cfg *contract.Config, duration time.Duration) error {
	outputFile := contract.ResolveOutputFile(cfg.OutputFile, snapshot.Environment, cfg.Output, snapshot.GeneratedAt)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(outputFile, func(w io.Writer) error {
			return writeJSON(w, snapshot)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(outputFile, func(w io.Writer) error {
			return writeSnapshotCSV(w, snapshot)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.XLSXOut:
		if err := writeSnapshotXLSX(snapshot, cfg, outputFile); err != nil {
			return fmt.Errorf("error writing XLSX output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote XLSX to %s\n", outputFile)
	case schema.ParquetOut:
		paths, err := parquet.WriteSnapshotParquet(snapshot, strings.TrimSuffix(outputFile, ".parquet"))
		if err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		for _, p := range paths {
			fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", p)
		}
	default:
		// Default to human-readable tables
		return writeWithFile(outputFile, func(w io.Writer) error {
			return writeSnapshotText(w, snapshot, cfg, duration)
		}, "Wrote text")
	}
	return nil
}

// getMaxNameWidth calculates the maximum width for table names in text output
// based on the terminal width.
func getMaxNameWidth() int {
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		termWidth = 80
	}

	// Schema + Category + Rows + Last Updated + Age + Status with borders/padding
	available := termWidth - 95
	if available < 20 {
		return 20
	}
	if available > 60 {
		return 60
	}
	return available
}
