// Package freshness maps the age of a table's newest record onto freshness bands.
// Everything here is pure: no I/O and no clock reads.
package freshness

import (
	"time"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// Upper bounds (inclusive, in days) of each dated band. Anything older is Critical.
const (
	CurrentMaxDays  = 7
	RecentMaxDays   = 30
	OutdatedMaxDays = 90
	StaleMaxDays    = 365
)

const day = 24 * time.Hour

// AgeDays returns the number of whole calendar days between the UTC dates of ts and now.
// The result is negative when ts lies in the future.
func AgeDays(ts, now time.Time) int {
	tsDate := truncateToDate(ts)
	nowDate := truncateToDate(now)
	return int(nowDate.Sub(tsDate) / day)
}

// ClassifyAge maps an age in days onto a band. Negative ages count as Current.
func ClassifyAge(days int) schema.FreshnessStatus {
	switch {
	case days <= CurrentMaxDays:
		return schema.CurrentStatus
	case days <= RecentMaxDays:
		return schema.RecentStatus
	case days <= OutdatedMaxDays:
		return schema.OutdatedStatus
	case days <= StaleMaxDays:
		return schema.StaleStatus
	default:
		return schema.CriticalStatus
	}
}

// Classify maps an optional last-updated timestamp onto a band.
// A nil timestamp is Unknown.
func Classify(ts *time.Time, now time.Time) schema.FreshnessStatus {
	if ts == nil {
		return schema.UnknownStatus
	}
	return ClassifyAge(AgeDays(*ts, now))
}

// Age returns the clamped age in days of an optional timestamp, or nil.
func Age(ts *time.Time, now time.Time) *int {
	if ts == nil {
		return nil
	}
	days := max(AgeDays(*ts, now), 0)
	return &days
}

// Bands describes every status with its day range, for help output.
func Bands() []schema.Band {
	return []schema.Band{
		band(schema.CurrentStatus, intPtr(0), intPtr(CurrentMaxDays), "updated within the last week"),
		band(schema.RecentStatus, intPtr(CurrentMaxDays+1), intPtr(RecentMaxDays), "updated within the last month"),
		band(schema.OutdatedStatus, intPtr(RecentMaxDays+1), intPtr(OutdatedMaxDays), "no data for over a month"),
		band(schema.StaleStatus, intPtr(OutdatedMaxDays+1), intPtr(StaleMaxDays), "no data for over a quarter"),
		band(schema.CriticalStatus, intPtr(StaleMaxDays+1), nil, "no data for over a year"),
		band(schema.UnknownStatus, nil, nil, "no timestamp column, empty or missing table"),
	}
}

func band(status schema.FreshnessStatus, lo, hi *int, meaning string) schema.Band {
	return schema.Band{Status: status, MinDays: lo, MaxDays: hi, Emoji: contract.StatusEmoji(status), Meaning: meaning}
}

func intPtr(v int) *int { return &v }

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
