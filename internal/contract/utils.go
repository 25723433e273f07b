package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rbpanama/idbhealth/schema"
)

// Color variables for console output, one per freshness band.
var (
	CurrentColor  = color.New(color.FgGreen)            // data is flowing
	RecentColor   = color.New(color.FgYellow)           // within a month
	OutdatedColor = color.New(color.FgHiYellow, color.Bold)
	StaleColor    = color.New(color.FgRed)
	CriticalColor = color.New(color.FgRed, color.Bold) // over a year without data
	UnknownColor  = color.New(color.FgWhite, color.Faint)
)

// StatusEmoji returns the marker shown next to a status in reports.
func StatusEmoji(status schema.FreshnessStatus) string {
	switch status {
	case schema.CurrentStatus:
		return "🟢"
	case schema.RecentStatus:
		return "🟡"
	case schema.OutdatedStatus:
		return "🟠"
	case schema.StaleStatus:
		return "🔴"
	case schema.CriticalStatus:
		return "⛔"
	default:
		return "⚪"
	}
}

// GetPlainLabel returns the emoji-prefixed label of a status. This is the text
// used for CSV and spreadsheet output.
func GetPlainLabel(status schema.FreshnessStatus) string {
	return StatusEmoji(status) + " " + string(status)
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(status schema.FreshnessStatus) string {
	text := string(status)
	switch status {
	case schema.CurrentStatus:
		return CurrentColor.Sprint(text)
	case schema.RecentStatus:
		return RecentColor.Sprint(text)
	case schema.OutdatedStatus:
		return OutdatedColor.Sprint(text)
	case schema.StaleStatus:
		return StaleColor.Sprint(text)
	case schema.CriticalStatus:
		return CriticalColor.Sprint(text)
	default:
		return UnknownColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is set.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ResolveOutputFile expands the "auto" output file name into
// idb_health_<env>_<YYYYMMDD_HHMMSS>.<ext>.
func ResolveOutputFile(outputFile string, env schema.Environment, mode schema.OutputMode, at time.Time) string {
	if !strings.EqualFold(outputFile, "auto") {
		return outputFile
	}
	ext := string(mode)
	if mode == schema.TextOut {
		ext = "txt"
	}
	return fmt.Sprintf("idb_health_%s_%s.%s", env, at.Format("20060102_150405"), ext)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".idbhealth_history.db"
	}
	return filepath.Join(homeDir, ".idbhealth_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for "..." and at least one character.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
