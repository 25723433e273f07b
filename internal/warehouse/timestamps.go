package warehouse

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order against MAX() results returned as text.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseTimestamp converts a MAX() value of a date, datetime, timestamp or year column.
// Year-only values resolve to January 1 of that year. Zero dates yield nil.
func ParseTimestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "0000-00-00") || raw == "0000" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp value %q", raw)
}
