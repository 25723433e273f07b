package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/warehouse"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func int64Ptr(v int64) *int64 { return &v }

func testContext() context.Context {
	return WithClock(context.Background(), func() time.Time { return testNow })
}

func testConfig() *contract.Config {
	return &contract.Config{
		Environment: schema.DevEnv,
		Schemas:     []string{"idb"},
		Tables: []contract.MonitoredTable{
			{Schema: "idb", Table: "RBP_fcs", Column: "date", Category: "Food Security (RTM)"},
			{Schema: "idb", Table: "RBP_food_inflation", Column: "date", Category: "Economic"},
			{Schema: "idb", Table: "RBP_population", Column: "year", Category: "Population"},
		},
		Views: []contract.MonitoredView{{Schema: "idb", View: "RBP_combined_prevalence_fs"}},
		Families: []contract.AlertFamilyTable{
			{Family: schema.FoodSecurityFamily, Schema: "idb", Table: "RBP_food_security_alert", CountryColumn: "iso3", TimestampColumn: "date"},
			{Family: schema.TriggerResultFamily, Schema: "idb", Table: "RBP_trigger_result", CountryColumn: "iso3", TimestampColumn: "date", OutcomeColumn: "trigger_outcome"},
		},
		EnabledCountries:    []string{"BLZ", "ECU", "GTM"},
		QueryTimeout:        time.Minute,
		CountBudget:         time.Second,
		ExactCountThreshold: 100000,
		Workers:             2,
	}
}

func family(f schema.AlertFamily) any {
	return mock.MatchedBy(func(t contract.AlertFamilyTable) bool { return t.Family == f })
}

// inventoryMocks wires the catalog responses of a healthy idb schema.
func inventoryMocks(cat *warehouse.MockCatalog) {
	cat.On("ListSchemas", mock.Anything).Return([]string{"idb", "information_schema"}, nil)
	cat.On("ListObjects", mock.Anything, "idb").Return([]schema.CatalogObject{
		{Name: "RBP_population", Kind: schema.BaseTableKind, EstimatedRows: 50},
		{Name: "RBP_fcs", Kind: schema.BaseTableKind, EstimatedRows: 100},
		{Name: "RBP_food_inflation", Kind: schema.BaseTableKind, EstimatedRows: 500000},
		{Name: "scratch", Kind: schema.BaseTableKind, EstimatedRows: 10},
		{Name: "RBP_combined_prevalence_fs", Kind: schema.ViewKind},
		{Name: "RBP_other_view", Kind: schema.ViewKind},
	}, nil)
	cat.On("CountRows", mock.Anything, "idb", "RBP_fcs").Return(int64(120), nil)
	cat.On("CountRows", mock.Anything, "idb", "RBP_population").Return(int64(45), nil)
	cat.On("CountRows", mock.Anything, "idb", "scratch").Return(int64(10), nil)
	cat.On("CountRows", mock.Anything, "idb", "RBP_combined_prevalence_fs").Return(int64(7), nil)
	cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_fcs", "date").Return(daysAgo(5), nil)
	cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_food_inflation", "date").Return(daysAgo(20), nil)
	cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_population", "year").Return(daysAgo(400), nil)
}

// triggerMocks wires the BLZ/ECU/GTM scenario: only GTM has food security rows,
// and HND shows up in trigger results without being enabled.
func triggerMocks(cat *warehouse.MockCatalog) {
	cat.On("AggregateFamily", mock.Anything, family(schema.FoodSecurityFamily)).Return([]schema.TriggerResult{
		{Family: schema.FoodSecurityFamily, Country: "GTM", Executions: 12, LastExecution: daysAgo(3)},
	}, nil)
	cat.On("AggregateFamily", mock.Anything, family(schema.TriggerResultFamily)).Return([]schema.TriggerResult{
		{Family: schema.TriggerResultFamily, Country: "hnd", Executions: 4, LastExecution: daysAgo(40), Fired: int64Ptr(1)},
	}, nil)
}

func TestRunAssessmentScenario(t *testing.T) {
	cat := &warehouse.MockCatalog{}
	inventoryMocks(cat)
	triggerMocks(cat)

	snapshot, err := RunAssessment(testContext(), testConfig(), cat, schema.FullScope)
	require.NoError(t, err)
	cat.AssertExpectations(t)

	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, schema.DevEnv, snapshot.Environment)
	assert.Equal(t, schema.FullScope, snapshot.Scope)
	assert.Equal(t, testNow, snapshot.GeneratedAt)
	assert.Empty(t, snapshot.Warnings)

	t.Run("inventory", func(t *testing.T) {
		require.Len(t, snapshot.Schemas, 1)
		idb := snapshot.Schemas[0]
		names := make([]string, 0, len(idb.Tables))
		for _, tbl := range idb.Tables {
			names = append(names, tbl.Name)
		}
		assert.Equal(t, []string{"RBP_fcs", "RBP_food_inflation", "RBP_population", "scratch"}, names)

		scratch := idb.Tables[3]
		assert.False(t, scratch.Monitored)
		assert.Nil(t, scratch.LastUpdated)
		assert.Equal(t, int64(10), scratch.RowCount)
		assert.False(t, scratch.Estimated)

		require.Len(t, idb.Views, 2)
		assert.Equal(t, "RBP_combined_prevalence_fs", idb.Views[0].Name)
		assert.True(t, idb.Views[0].Verified)
		assert.Equal(t, int64(7), *idb.Views[0].RowCount)
		assert.False(t, idb.Views[1].Verified)
		assert.Nil(t, idb.Views[1].RowCount)
	})

	t.Run("freshness", func(t *testing.T) {
		fcs, ok := snapshot.Table("idb", "RBP_fcs")
		require.True(t, ok)
		assert.Equal(t, schema.CurrentStatus, fcs.Status)
		assert.Equal(t, 5, *fcs.AgeDays)
		assert.Equal(t, int64(120), fcs.RowCount)

		pop, _ := snapshot.Table("idb", "RBP_population")
		assert.Equal(t, schema.CriticalStatus, pop.Status)
		assert.Equal(t, "year", pop.TimestampColumn)

		inflation, _ := snapshot.Table("idb", "RBP_food_inflation")
		assert.Equal(t, schema.RecentStatus, inflation.Status)
		assert.True(t, inflation.Estimated)
		assert.Equal(t, int64(500000), inflation.RowCount)
	})

	t.Run("triggers", func(t *testing.T) {
		codes := make([]string, 0, len(snapshot.Countries))
		for _, c := range snapshot.Countries {
			codes = append(codes, c.Country)
		}
		assert.Equal(t, []string{"BLZ", "ECU", "GTM", "HND"}, codes)

		for _, code := range []string{"BLZ", "ECU"} {
			c, _ := snapshot.Country(code)
			assert.True(t, c.Enabled, code)
			assert.True(t, c.EnabledNoActivity, code)
			assert.Zero(t, c.TotalExecutions, code)
			assert.Nil(t, c.LastExecution, code)
			assert.Equal(t, schema.UnknownStatus, c.Status, code)
			assert.Len(t, c.Families, 2, code)
		}

		gtm, _ := snapshot.Country("GTM")
		assert.False(t, gtm.EnabledNoActivity)
		assert.Equal(t, int64(12), gtm.TotalExecutions)
		assert.Equal(t, int64(12), gtm.Families[schema.FoodSecurityFamily].Executions)
		assert.Equal(t, int64(0), *gtm.Families[schema.TriggerResultFamily].Fired)
		assert.Equal(t, schema.CurrentStatus, gtm.Status)

		hnd, _ := snapshot.Country("HND")
		assert.False(t, hnd.Enabled)
		assert.False(t, hnd.EnabledNoActivity)
		assert.Equal(t, schema.OutdatedStatus, hnd.Status)
	})

	t.Run("summary", func(t *testing.T) {
		sum := snapshot.Summary
		assert.Equal(t, 1, sum.SchemasInspected)
		assert.Equal(t, 4, sum.TablesInventoried)
		assert.Equal(t, 2, sum.ViewsInventoried)
		assert.Equal(t, 3, sum.MonitoredTables)
		assert.Equal(t, 1, sum.StatusCounts[schema.CurrentStatus])
		assert.Equal(t, 1, sum.StatusCounts[schema.RecentStatus])
		assert.Equal(t, 1, sum.StatusCounts[schema.CriticalStatus])
		assert.Equal(t, 0, sum.StatusCounts[schema.UnknownStatus])
		assert.Equal(t, 4, sum.Countries)
		assert.Equal(t, 2, sum.EnabledNoActivity)
		assert.Equal(t, int64(1), sum.TriggersFired)
	})
}

func TestRunAssessmentIdempotent(t *testing.T) {
	cat := &warehouse.MockCatalog{}
	inventoryMocks(cat)
	triggerMocks(cat)
	cfg := testConfig()

	first, err := RunAssessment(testContext(), cfg, cat, schema.FullScope)
	require.NoError(t, err)
	second, err := RunAssessment(testContext(), cfg, cat, schema.FullScope)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	first.ID, second.ID = "", ""
	first.DurationMs, second.DurationMs = 0, 0
	assert.Equal(t, first, second)
}

func TestRunAssessmentMissingFamily(t *testing.T) {
	cat := &warehouse.MockCatalog{}
	missing := &contract.IntrospectionError{
		Object: "idb.RBP_food_security_alert",
		Err:    &mysql.MySQLError{Number: 1146, Message: "Table 'idb.RBP_food_security_alert' doesn't exist"},
	}
	cat.On("AggregateFamily", mock.Anything, family(schema.FoodSecurityFamily)).Return(nil, missing)
	cat.On("AggregateFamily", mock.Anything, family(schema.TriggerResultFamily)).Return([]schema.TriggerResult{
		{Family: schema.TriggerResultFamily, Country: "GTM", Executions: 2, LastExecution: daysAgo(1), Fired: int64Ptr(2)},
	}, nil)

	snapshot, err := RunAssessment(testContext(), testConfig(), cat, schema.TriggersScope)
	require.NoError(t, err)

	require.Len(t, snapshot.Warnings, 1)
	w := snapshot.Warnings[0]
	assert.Equal(t, schema.TriggersPass, w.Pass)
	assert.Equal(t, "idb.RBP_food_security_alert", w.Object)
	assert.Equal(t, schema.FoodSecurityFamily, w.Family)
	assert.Equal(t, schema.IntrospectionWarning, w.Kind)
	assert.Equal(t, []schema.AlertFamily{schema.FoodSecurityFamily}, snapshot.FailedFamilies())

	gtm, ok := snapshot.Country("GTM")
	require.True(t, ok)
	assert.Equal(t, int64(2), gtm.TotalExecutions)
	_, hasFood := gtm.Families[schema.FoodSecurityFamily]
	assert.False(t, hasFood)

	blz, _ := snapshot.Country("BLZ")
	assert.True(t, blz.EnabledNoActivity)
	assert.Len(t, blz.Families, 1)

	assert.Empty(t, snapshot.Schemas)
	assert.Empty(t, snapshot.Tables)
	cat.AssertNotCalled(t, "ListSchemas", mock.Anything)
}

func TestAggregateTriggersNamesFailedFamily(t *testing.T) {
	cfg := testConfig()
	cfg.Families = []contract.AlertFamilyTable{
		{Family: schema.ClimateFamily, Schema: "idb", Table: "clim_alerts", CountryColumn: "iso3", TimestampColumn: "date"},
		{Family: schema.HazardFamily, Schema: "idb", Table: "hz_events", CountryColumn: "iso3", TimestampColumn: "date"},
	}
	cat := &warehouse.MockCatalog{}
	cat.On("AggregateFamily", mock.Anything, family(schema.ClimateFamily)).Return(nil, &contract.IntrospectionError{
		Object: "idb.clim_alerts",
		Err:    &mysql.MySQLError{Number: 1146, Message: "Table 'idb.clim_alerts' doesn't exist"},
	})
	cat.On("AggregateFamily", mock.Anything, family(schema.HazardFamily)).Return([]schema.TriggerResult{
		{Family: schema.HazardFamily, Country: "ECU", Executions: 3, LastExecution: daysAgo(2)},
	}, nil)

	summaries, warnings, err := AggregateTriggers(testContext(), cat, cfg, testNow)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, schema.ClimateFamily, warnings[0].Family)
	assert.Equal(t, "idb.clim_alerts", warnings[0].Object)
	assert.Equal(t, schema.TriggersPass, warnings[0].Pass)

	require.Len(t, summaries, 3)
	for _, s := range summaries {
		_, hasClimate := s.Families[schema.ClimateFamily]
		assert.False(t, hasClimate, s.Country)
		assert.Contains(t, s.Families, schema.HazardFamily, s.Country)
	}
}

func TestRunAssessmentMissingMonitoredTable(t *testing.T) {
	setup := func() *warehouse.MockCatalog {
		cat := &warehouse.MockCatalog{}
		cat.On("ListSchemas", mock.Anything).Return([]string{"idb"}, nil)
		cat.On("ListObjects", mock.Anything, "idb").Return([]schema.CatalogObject{
			{Name: "RBP_fcs", Kind: schema.BaseTableKind, EstimatedRows: 100},
			{Name: "RBP_food_inflation", Kind: schema.BaseTableKind, EstimatedRows: 0},
		}, nil)
		cat.On("CountRows", mock.Anything, "idb", "RBP_fcs").Return(int64(100), nil)
		cat.On("CountRows", mock.Anything, "idb", "RBP_food_inflation").Return(int64(0), nil)
		cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_fcs", "date").Return(daysAgo(0), nil)
		return cat
	}

	t.Run("lenient", func(t *testing.T) {
		cat := setup()
		snapshot, err := RunAssessment(testContext(), testConfig(), cat, schema.TablesScope)
		require.NoError(t, err)

		pop, ok := snapshot.Table("idb", "RBP_population")
		require.True(t, ok)
		assert.False(t, pop.Present)
		assert.Equal(t, schema.UnknownStatus, pop.Status)
		assert.Nil(t, pop.AgeDays)

		inflation, _ := snapshot.Table("idb", "RBP_food_inflation")
		assert.True(t, inflation.Present)
		assert.Equal(t, schema.UnknownStatus, inflation.Status, "empty table")
		cat.AssertNotCalled(t, "MaxTimestamp", mock.Anything, "idb", "RBP_food_inflation", "date")

		// The missing view and the missing table are reported.
		objects := make([]string, 0, len(snapshot.Warnings))
		for _, w := range snapshot.Warnings {
			objects = append(objects, w.Object)
		}
		assert.ElementsMatch(t, []string{"idb.RBP_combined_prevalence_fs", "idb.RBP_population"}, objects)
		assert.Len(t, snapshot.WarningsFor(schema.FreshnessPass), 1)
		assert.Equal(t, 2, snapshot.Summary.StatusCounts[schema.UnknownStatus])
	})

	t.Run("strict", func(t *testing.T) {
		cfg := testConfig()
		cfg.StrictMapping = true
		_, err := RunAssessment(testContext(), cfg, setup(), schema.TablesScope)
		require.Error(t, err)
		assert.True(t, contract.IsConfiguration(err))
		assert.Contains(t, err.Error(), "idb.RBP_population")
	})
}

func TestRunAssessmentMissingTimestampColumn(t *testing.T) {
	setup := func() (*contract.Config, *warehouse.MockCatalog) {
		cfg := testConfig()
		cfg.Tables = []contract.MonitoredTable{
			{Schema: "idb", Table: "RBP_fcs", Column: "date"},
			{Schema: "idb", Table: "RBP_population", Column: "yr"},
		}
		cfg.Views = nil

		cat := &warehouse.MockCatalog{}
		cat.On("ListSchemas", mock.Anything).Return([]string{"idb"}, nil)
		cat.On("ListObjects", mock.Anything, "idb").Return([]schema.CatalogObject{
			{Name: "RBP_fcs", Kind: schema.BaseTableKind, EstimatedRows: 100},
			{Name: "RBP_population", Kind: schema.BaseTableKind, EstimatedRows: 45},
		}, nil)
		cat.On("CountRows", mock.Anything, "idb", "RBP_fcs").Return(int64(100), nil)
		cat.On("CountRows", mock.Anything, "idb", "RBP_population").Return(int64(45), nil)
		cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_fcs", "date").Return(daysAgo(3), nil)
		cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_population", "yr").Return(nil, &contract.IntrospectionError{
			Object: "idb.RBP_population",
			Err:    fmt.Errorf("%w: %w", contract.ErrUnknownColumn, &mysql.MySQLError{Number: 1054, Message: "Unknown column 'yr' in 'field list'"}),
		})
		return cfg, cat
	}

	t.Run("lenient", func(t *testing.T) {
		cfg, cat := setup()
		snapshot, err := RunAssessment(testContext(), cfg, cat, schema.TablesScope)
		require.NoError(t, err)

		pop, ok := snapshot.Table("idb", "RBP_population")
		require.True(t, ok)
		assert.True(t, pop.Present)
		assert.Equal(t, schema.UnknownStatus, pop.Status)

		warnings := snapshot.WarningsFor(schema.FreshnessPass)
		require.Len(t, warnings, 1)
		assert.Equal(t, "idb.RBP_population.yr", warnings[0].Object)
	})

	t.Run("strict", func(t *testing.T) {
		cfg, cat := setup()
		cfg.StrictMapping = true
		_, err := RunAssessment(testContext(), cfg, cat, schema.TablesScope)
		require.Error(t, err)
		assert.True(t, contract.IsConfiguration(err))
		assert.Contains(t, err.Error(), "idb.RBP_population.yr")
	})

	t.Run("other failures stay warnings in strict mode", func(t *testing.T) {
		cfg, _ := setup()
		cfg.StrictMapping = true
		cat := &warehouse.MockCatalog{}
		cat.On("ListSchemas", mock.Anything).Return([]string{"idb"}, nil)
		cat.On("ListObjects", mock.Anything, "idb").Return([]schema.CatalogObject{
			{Name: "RBP_fcs", Kind: schema.BaseTableKind, EstimatedRows: 100},
			{Name: "RBP_population", Kind: schema.BaseTableKind, EstimatedRows: 45},
		}, nil)
		cat.On("CountRows", mock.Anything, "idb", mock.Anything).Return(int64(10), nil)
		cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_fcs", "date").Return(daysAgo(3), nil)
		cat.On("MaxTimestamp", mock.Anything, "idb", "RBP_population", "yr").Return(nil, &contract.IntrospectionError{
			Object: "idb.RBP_population",
			Err:    &mysql.MySQLError{Number: 1142, Message: "SELECT command denied"},
		})

		snapshot, err := RunAssessment(testContext(), cfg, cat, schema.TablesScope)
		require.NoError(t, err)
		assert.Len(t, snapshot.WarningsFor(schema.FreshnessPass), 1)
	})
}

func TestInventorySchemaFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Schemas = []string{"idb", "rbp", "rtm_raw"}
	cfg.Tables = nil
	cfg.Views = nil

	cat := &warehouse.MockCatalog{}
	cat.On("ListSchemas", mock.Anything).Return([]string{"idb", "rtm_raw"}, nil)
	cat.On("ListObjects", mock.Anything, "idb").Return([]schema.CatalogObject{}, nil)
	cat.On("ListObjects", mock.Anything, "rtm_raw").Return(nil, &contract.IntrospectionError{Object: "rtm_raw", Err: errors.New("denied")})

	snapshots, warnings, err := Inventory(testContext(), cat, cfg, testNow)
	require.NoError(t, err)

	require.Len(t, snapshots, 1)
	assert.Equal(t, "idb", snapshots[0].Name)
	assert.Empty(t, snapshots[0].Tables)
	assert.NotNil(t, snapshots[0].Tables)

	require.Len(t, warnings, 2)
	assert.Equal(t, "rbp", warnings[0].Object)
	assert.Contains(t, warnings[0].Message, "does not exist")
	assert.Equal(t, "rtm_raw", warnings[1].Object)
}

func TestInventoryListSchemasFailure(t *testing.T) {
	t.Run("connectivity is fatal", func(t *testing.T) {
		cat := &warehouse.MockCatalog{}
		cat.On("ListSchemas", mock.Anything).Return(nil, &contract.ConnectivityError{Op: "list schemas", Err: mysql.ErrInvalidConn})

		_, _, err := Inventory(testContext(), cat, testConfig(), testNow)
		require.Error(t, err)
		assert.True(t, contract.IsConnectivity(err))
	})

	t.Run("introspection falls back to target list", func(t *testing.T) {
		cfg := testConfig()
		cfg.Tables = nil
		cfg.Views = nil
		cat := &warehouse.MockCatalog{}
		cat.On("ListSchemas", mock.Anything).Return(nil, &contract.IntrospectionError{Object: "information_schema.SCHEMATA", Err: errors.New("denied")})
		cat.On("ListObjects", mock.Anything, "idb").Return([]schema.CatalogObject{}, nil)

		snapshots, warnings, err := Inventory(testContext(), cat, cfg, testNow)
		require.NoError(t, err)
		assert.Len(t, snapshots, 1)
		assert.Len(t, warnings, 1)
	})
}

func TestCountRows(t *testing.T) {
	cfg := testConfig()
	obj := schema.CatalogObject{Name: "RBP_fcs", Kind: schema.BaseTableKind, EstimatedRows: 900}

	tests := []struct {
		name          string
		countErr      error
		count         int64
		expected      int64
		estimated     bool
		expectWarning bool
	}{
		{name: "exact", count: 880, expected: 880},
		{name: "over budget", countErr: &contract.ConnectivityError{Op: "count rows", Err: context.DeadlineExceeded}, expected: 900, estimated: true},
		{name: "rejected", countErr: &contract.IntrospectionError{Object: "idb.RBP_fcs", Err: errors.New("denied")}, expected: 900, estimated: true, expectWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &warehouse.MockCatalog{}
			cat.On("CountRows", mock.Anything, "idb", "RBP_fcs").Return(tt.count, tt.countErr)

			n, estimated, err := countRows(testContext(), cat, cfg, "idb", obj)
			assert.Equal(t, tt.expected, n)
			assert.Equal(t, tt.estimated, estimated)
			assert.Equal(t, tt.expectWarning, err != nil)
		})
	}

	t.Run("above threshold skips the count", func(t *testing.T) {
		cat := &warehouse.MockCatalog{}
		big := schema.CatalogObject{Name: "RBP_IDB_tableau", Kind: schema.BaseTableKind, EstimatedRows: cfg.ExactCountThreshold}
		n, estimated, err := countRows(testContext(), cat, cfg, "idb", big)
		require.NoError(t, err)
		assert.True(t, estimated)
		assert.Equal(t, cfg.ExactCountThreshold, n)
		cat.AssertNotCalled(t, "CountRows", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunAssessmentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	cat := &warehouse.MockCatalog{}
	cat.On("ListSchemas", mock.Anything).Return(nil, &contract.ConnectivityError{Op: "list schemas", Err: context.Canceled}).Maybe()
	cat.On("AggregateFamily", mock.Anything, mock.Anything).Return(nil, &contract.ConnectivityError{Op: "aggregate", Err: context.Canceled}).Maybe()

	snapshot, err := RunAssessment(ctx, testConfig(), cat, schema.FullScope)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, snapshot.ID)
}

func TestRunAssessmentScopes(t *testing.T) {
	t.Run("tables", func(t *testing.T) {
		cat := &warehouse.MockCatalog{}
		inventoryMocks(cat)
		snapshot, err := RunAssessment(testContext(), testConfig(), cat, schema.TablesScope)
		require.NoError(t, err)
		assert.Len(t, snapshot.Tables, 3)
		assert.Empty(t, snapshot.Countries)
		cat.AssertNotCalled(t, "AggregateFamily", mock.Anything, mock.Anything)
	})

	t.Run("triggers", func(t *testing.T) {
		cat := &warehouse.MockCatalog{}
		triggerMocks(cat)
		snapshot, err := RunAssessment(testContext(), testConfig(), cat, schema.TriggersScope)
		require.NoError(t, err)
		assert.Empty(t, snapshot.Tables)
		assert.Len(t, snapshot.Countries, 4)
	})
}

func TestAssessWithRetry(t *testing.T) {
	retryInitialInterval = time.Millisecond
	retryMaxInterval = 5 * time.Millisecond
	t.Cleanup(func() {
		retryInitialInterval = time.Second
		retryMaxInterval = 30 * time.Second
	})

	connErr := &contract.ConnectivityError{Op: "connect to dev (db)", Err: errors.New("connection refused")}

	t.Run("connectivity is retried", func(t *testing.T) {
		cat := &warehouse.MockCatalog{}
		triggerMocks(cat)
		cat.On("Close").Return(nil)

		provider := &warehouse.MockProvider{}
		provider.On("Connect", mock.Anything, schema.DevEnv).Return(nil, connErr).Once()
		provider.On("Connect", mock.Anything, schema.DevEnv).Return(cat, nil).Once()

		cfg := testConfig()
		cfg.Retries = 2
		snapshot, err := AssessWithRetry(testContext(), cfg, provider, schema.TriggersScope)
		require.NoError(t, err)
		assert.Len(t, snapshot.Countries, 4)
		provider.AssertNumberOfCalls(t, "Connect", 2)
		cat.AssertCalled(t, "Close")
	})

	t.Run("retries exhausted", func(t *testing.T) {
		provider := &warehouse.MockProvider{}
		provider.On("Connect", mock.Anything, schema.DevEnv).Return(nil, connErr)

		cfg := testConfig()
		cfg.Retries = 2
		_, err := AssessWithRetry(testContext(), cfg, provider, schema.FullScope)
		require.Error(t, err)
		assert.True(t, contract.IsConnectivity(err))
		provider.AssertNumberOfCalls(t, "Connect", 3)
	})

	t.Run("configuration errors are not retried", func(t *testing.T) {
		provider := &warehouse.MockProvider{}
		provider.On("Connect", mock.Anything, schema.DevEnv).Return(nil, contract.NewConfigError("env", "no connection settings"))

		cfg := testConfig()
		cfg.Retries = 3
		_, err := AssessWithRetry(testContext(), cfg, provider, schema.FullScope)
		require.Error(t, err)
		assert.True(t, contract.IsConfiguration(err))
		provider.AssertNumberOfCalls(t, "Connect", 1)
	})
}

func TestFoldTriggerResultsMergesCodes(t *testing.T) {
	fam := contract.AlertFamilyTable{Family: schema.HazardFamily, Schema: "idb", Table: "RBP_hazard_alert"}
	outcomes := []familyOutcome{{
		family: fam,
		results: []schema.TriggerResult{
			{Country: "gtm", Executions: 2, LastExecution: daysAgo(10)},
			{Country: "GTM ", Executions: 3, LastExecution: daysAgo(2)},
			{Country: "  ", Executions: 9},
		},
	}}

	out := foldTriggerResults(nil, []contract.AlertFamilyTable{fam}, outcomes, testNow)
	require.Len(t, out, 1)
	assert.Equal(t, "GTM", out[0].Country)
	assert.Equal(t, int64(5), out[0].TotalExecutions)
	assert.Equal(t, daysAgo(2), out[0].LastExecution)
	assert.Equal(t, schema.CurrentStatus, out[0].Status)
	assert.False(t, out[0].Enabled)
}

func ExampleAggregateTriggers() {
	cat := &warehouse.MockCatalog{}
	cat.On("AggregateFamily", mock.Anything, mock.Anything).Return([]schema.TriggerResult{}, nil)

	cfg := &contract.Config{
		Families:         []contract.AlertFamilyTable{{Family: schema.ClimateFamily, Schema: "idb", Table: "RBP_climate_alert"}},
		EnabledCountries: []string{"BLZ"},
	}
	summaries, _, _ := AggregateTriggers(context.Background(), cat, cfg, testNow)
	for _, s := range summaries {
		fmt.Println(s.Country, s.EnabledNoActivity)
	}
	// Output: BLZ true
}
