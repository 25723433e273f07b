package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rbpanama/idbhealth/internal/contract"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// formatTime renders an optional timestamp, or the placeholder when absent.
func formatTime(ts *time.Time, placeholder string) string {
	if ts == nil {
		return placeholder
	}
	return ts.UTC().Format(contract.DateTimeFormat)
}

// formatDate renders an optional timestamp as a calendar date for tables.
func formatDate(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.UTC().Format("2006-01-02")
}

// formatAge renders an optional age in days.
func formatAge(days *int, placeholder string) string {
	if days == nil {
		return placeholder
	}
	return strconv.Itoa(*days)
}

// formatRows renders a row count, marking estimates with a tilde.
func formatRows(count int64, estimated bool) string {
	if estimated {
		return "~" + strconv.FormatInt(count, 10)
	}
	return strconv.FormatInt(count, 10)
}

// formatFired renders an optional fired count.
func formatFired(fired *int64, placeholder string) string {
	if fired == nil {
		return placeholder
	}
	return strconv.FormatInt(*fired, 10)
}
