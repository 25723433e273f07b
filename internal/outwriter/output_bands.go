package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// PrintBands displays the freshness band definitions.
// This is a static display that does not require a warehouse connection.
func PrintBands(bands []schema.Band, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, bands)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBandsCSV(w, bands)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBandsText(w, bands)
		}, "Wrote text")
	}
}

// bandRange renders the day range of a band, e.g. "8-30 days" or "366+ days".
func bandRange(b schema.Band) string {
	switch {
	case b.MinDays == nil && b.MaxDays == nil:
		return "n/a"
	case b.MaxDays == nil:
		return fmt.Sprintf("%d+ days", *b.MinDays)
	case b.MinDays == nil:
		return fmt.Sprintf("<= %d days", *b.MaxDays)
	default:
		return fmt.Sprintf("%d-%d days", *b.MinDays, *b.MaxDays)
	}
}

func writeBandsText(w io.Writer, bands []schema.Band) error {
	if _, err := fmt.Fprintf(w, "📅 Freshness Bands\n=================\n\n"); err != nil {
		return err
	}
	for _, b := range bands {
		if _, err := fmt.Fprintf(w, "%s %-9s %-12s %s\n", b.Emoji, contract.GetColorLabel(b.Status), bandRange(b), b.Meaning); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nAge is counted in whole UTC calendar days; future timestamps count as age 0.\n")
	return err
}

func writeBandsCSV(w io.Writer, bands []schema.Band) error {
	optional := func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	}
	return writeCSVWithHeader(w, []string{"status", "min_days", "max_days", "meaning"}, func(cw *csv.Writer) error {
		for _, b := range bands {
			if err := cw.Write([]string{string(b.Status), optional(b.MinDays), optional(b.MaxDays), b.Meaning}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}
