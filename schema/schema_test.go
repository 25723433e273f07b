package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshnessStatusRank(t *testing.T) {
	assert.Equal(t, 0, CurrentStatus.Rank())
	assert.Equal(t, 4, CriticalStatus.Rank())
	assert.Equal(t, 5, UnknownStatus.Rank())
	assert.Equal(t, len(AllStatuses), FreshnessStatus("bogus").Rank())
}

func TestFamilyRank(t *testing.T) {
	assert.Equal(t, 0, FamilyRank(ClimateFamily))
	assert.Equal(t, 5, FamilyRank(TriggerResultFamily))
	assert.Equal(t, len(AllFamilies), FamilyRank("bogus"))
}

func TestNormalizeCountry(t *testing.T) {
	assert.Equal(t, "GTM", NormalizeCountry(" gtm "))
	assert.Equal(t, "", NormalizeCountry("  "))
}

func TestSnapshotHelpers(t *testing.T) {
	snap := HealthSnapshot{
		Tables: []TableStatus{
			{Schema: "idb", Table: "RBP_fcs", Status: CurrentStatus},
			{Schema: "idb", Table: "RBP_population", Status: CriticalStatus},
			{Schema: "idb", Table: "RBP_pou", Status: UnknownStatus},
		},
		Countries: []CountryTriggerSummary{
			{Country: "BLZ", Enabled: true, EnabledNoActivity: true},
			{Country: "GTM", Enabled: true, TotalExecutions: 12},
		},
		Warnings: []Warning{
			{Pass: TriggersPass, Object: "idb.haz_events", Family: HazardFamily, Kind: IntrospectionWarning},
			{Pass: TriggersPass, Object: "idb.clim_alerts", Family: ClimateFamily, Kind: ConnectivityWarning},
			{Pass: InventoryPass, Object: "rbp", Kind: ConnectivityWarning},
		},
	}

	bad := snap.TablesWithStatus(CriticalStatus, UnknownStatus)
	require.Len(t, bad, 2)
	assert.Equal(t, "RBP_population", bad[0].Table)

	assert.Equal(t, []string{"BLZ"}, snap.InactiveCountries())
	assert.Len(t, snap.WarningsFor(TriggersPass), 2)
	assert.Equal(t, []AlertFamily{ClimateFamily, HazardFamily}, snap.FailedFamilies())
	assert.Empty(t, HealthSnapshot{}.FailedFamilies())

	gtm, ok := snap.Country("gtm")
	require.True(t, ok)
	assert.Equal(t, int64(12), gtm.TotalExecutions)

	_, ok = snap.Table("idb", "missing")
	assert.False(t, ok)
}

func TestFormatHelpers(t *testing.T) {
	ts := time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)
	age := 12
	assert.Equal(t, "2025-03-09", FormatTime(&ts))
	assert.Equal(t, "N/A", FormatTime(nil))
	assert.Equal(t, "12d", FormatAge(&age))
	assert.Equal(t, "N/A", FormatAge(nil))
}

func TestHealthSnapshotJSONIsPlainData(t *testing.T) {
	ts := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	snap := HealthSnapshot{
		ID:          "abc",
		Environment: DevEnv,
		GeneratedAt: ts,
		Countries: []CountryTriggerSummary{{
			Country: "ECU",
			Enabled: true,
			Families: map[AlertFamily]TriggerResult{
				FoodSecurityFamily: {Family: FoodSecurityFamily, Country: "ECU"},
			},
			EnabledNoActivity: true,
			Status:            UnknownStatus,
		}},
		Summary: SnapshotSummary{StatusCounts: map[FreshnessStatus]int{CurrentStatus: 1}},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "dev", generic["environment"])
	countries := generic["countries"].([]any)
	ecu := countries[0].(map[string]any)
	assert.Equal(t, true, ecu["enabled_no_activity"])
	assert.Contains(t, ecu["families"].(map[string]any), "food_security")
}

func TestParseStatuses(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []FreshnessStatus
		wantErr bool
	}{
		{name: "single", raw: "Stale", want: []FreshnessStatus{StaleStatus}},
		{name: "case and spaces", raw: " critical , UNKNOWN", want: []FreshnessStatus{CriticalStatus, UnknownStatus}},
		{name: "empty parts", raw: "current,,", want: []FreshnessStatus{CurrentStatus}},
		{name: "empty", raw: "", want: nil},
		{name: "unknown", raw: "current,fresh", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatuses(tt.raw)
			if tt.wantErr {
				assert.ErrorContains(t, err, `"fresh"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterHelpers(t *testing.T) {
	tables := []TableStatus{
		{Schema: "idb", Table: "RBP_fcs", Status: CurrentStatus},
		{Schema: "idb", Table: "RBP_population", Status: CriticalStatus},
		{Schema: "rbp", Table: "RBP_pou", Status: CriticalStatus},
	}
	assert.Len(t, FilterTables(tables, nil, ""), 3)
	assert.Len(t, FilterTables(tables, []FreshnessStatus{CriticalStatus}, ""), 2)
	got := FilterTables(tables, []FreshnessStatus{CriticalStatus}, "rbp")
	require.Len(t, got, 1)
	assert.Equal(t, "RBP_pou", got[0].Table)
	assert.NotNil(t, FilterTables(nil, nil, ""))

	countries := []CountryTriggerSummary{
		{Country: "BLZ", EnabledNoActivity: true},
		{Country: "GTM"},
	}
	yes, no := true, false
	assert.Len(t, FilterCountries(countries, nil), 2)
	assert.Equal(t, "BLZ", FilterCountries(countries, &yes)[0].Country)
	assert.Equal(t, "GTM", FilterCountries(countries, &no)[0].Country)
}
