package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// NormalizeCountry trims and upper-cases a country code.
// Codes are opaque keys; no validation against a country list is done.
func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// TablesWithStatus returns the table statuses matching any of the given statuses, in order.
func (s HealthSnapshot) TablesWithStatus(statuses ...FreshnessStatus) []TableStatus {
	want := make(map[FreshnessStatus]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var out []TableStatus
	for _, t := range s.Tables {
		if _, ok := want[t.Status]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ParseStatuses parses a comma-separated list of freshness statuses, case-insensitively.
func ParseStatuses(raw string) ([]FreshnessStatus, error) {
	var out []FreshnessStatus
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		matched := false
		for _, st := range AllStatuses {
			if strings.EqualFold(part, string(st)) {
				out = append(out, st)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unknown status %q", part)
		}
	}
	return out, nil
}

// FilterTables keeps the tables matching any of statuses (all when empty)
// and, when schemaName is set, belonging to that schema. It never returns nil.
func FilterTables(tables []TableStatus, statuses []FreshnessStatus, schemaName string) []TableStatus {
	out := make([]TableStatus, 0, len(tables))
	for _, t := range tables {
		if len(statuses) > 0 && !slices.Contains(statuses, t.Status) {
			continue
		}
		if schemaName != "" && t.Schema != schemaName {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterCountries keeps the summaries whose enabled-no-activity flag equals
// *noActivity, or all of them when noActivity is nil. It never returns nil.
func FilterCountries(countries []CountryTriggerSummary, noActivity *bool) []CountryTriggerSummary {
	out := make([]CountryTriggerSummary, 0, len(countries))
	for _, c := range countries {
		if noActivity != nil && c.EnabledNoActivity != *noActivity {
			continue
		}
		out = append(out, c)
	}
	return out
}

// InactiveCountries returns the codes of enabled countries with no trigger activity.
func (s HealthSnapshot) InactiveCountries() []string {
	var out []string
	for _, c := range s.Countries {
		if c.EnabledNoActivity {
			out = append(out, c.Country)
		}
	}
	return out
}

// WarningsFor returns the warnings recorded by one pass.
func (s HealthSnapshot) WarningsFor(pass Pass) []Warning {
	var out []Warning
	for _, w := range s.Warnings {
		if w.Pass == pass {
			out = append(out, w)
		}
	}
	return out
}

// FailedFamilies returns the alert families whose aggregation failed, in family order.
func (s HealthSnapshot) FailedFamilies() []AlertFamily {
	out := []AlertFamily{}
	for _, w := range s.WarningsFor(TriggersPass) {
		if w.Family != "" && !slices.Contains(out, w.Family) {
			out = append(out, w.Family)
		}
	}
	slices.SortFunc(out, func(a, b AlertFamily) int { return FamilyRank(a) - FamilyRank(b) })
	return out
}

// Country returns the summary for a country code, if present.
func (s HealthSnapshot) Country(code string) (CountryTriggerSummary, bool) {
	code = NormalizeCountry(code)
	for _, c := range s.Countries {
		if c.Country == code {
			return c, true
		}
	}
	return CountryTriggerSummary{}, false
}

// Table returns the status for a monitored table, if present.
func (s HealthSnapshot) Table(schemaName, table string) (TableStatus, bool) {
	for _, t := range s.Tables {
		if t.Schema == schemaName && t.Table == table {
			return t, true
		}
	}
	return TableStatus{}, false
}

// FormatTime renders an optional timestamp as a date, or "N/A".
func FormatTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(time.DateOnly)
}

// FormatAge renders an optional age in days, or "N/A".
func FormatAge(days *int) string {
	if days == nil {
		return "N/A"
	}
	return strconv.Itoa(*days) + "d"
}

