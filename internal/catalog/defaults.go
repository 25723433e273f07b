package catalog

import "github.com/rbpanama/idbhealth/internal/contract"

// Table categories used to group the key tables in reports.
const (
	CategoryFoodSecurityRTM = "Food Security (RTM)"
	CategoryAlerts          = "Alerts (Trigger)"
	CategoryConflict        = "Conflict (ACLED)"
	CategoryEconomic        = "Economic"
	CategoryClimate         = "Climate"
	CategoryHazards         = "Natural Hazards"
	CategoryHungerMap       = "HungerMap Alerts"
	CategoryPopulation      = "Population"
	CategoryMigration       = "Migration"
	CategoryFoodSecurityExt = "Food Security (Ext)"
	CategoryOutput          = "Output"
)

const defaultSchema = "idb"

// keyTables lists the key tables of the idb schema by category, with their timestamp column.
var keyTables = []struct {
	category string
	tables   map[string]string
}{
	{CategoryFoodSecurityRTM, map[string]string{"RBP_fcs": "date", "RBP_fcs_adm0": "date", "RBP_rcsi": "date", "RBP_rcsi_adm0": "date"}},
	{CategoryAlerts, map[string]string{
		"RBP_climate_alert": "date", "RBP_conflict_alert": "date", "RBP_economic_alert": "date",
		"RBP_food_security_alert": "date", "RBP_hazard_alert": "date", "RBP_trigger_result": "date",
	}},
	{CategoryConflict, map[string]string{"RBP_ACLED_conflict": "event_date"}},
	{CategoryEconomic, map[string]string{"RBP_food_inflation": "date", "RBP_currency_exchange": "date"}},
	{CategoryClimate, map[string]string{"RBP_climate_anomaly": "date", "RBP_rainfall_ndvi_seasonality": "date"}},
	{CategoryHazards, map[string]string{
		"RBP_ADAM_cyclon": "date", "RBP_ADAM_earthquake": "date", "RBP_ADAM_flood": "date", "RBP_PDC_hazard": "date",
	}},
	{CategoryHungerMap, map[string]string{"RBP_adm0_hml_alert": "date", "RBP_adm1_hml_alert": "date"}},
	{CategoryPopulation, map[string]string{"RBP_population": "year", "RBP_population_adm1": "year"}},
	{CategoryMigration, map[string]string{
		"RBP_panama_darien_nationality": "date", "RBP_panama_darien_agesex": "date", "RBP_usa_encounters": "date",
	}},
	{CategoryFoodSecurityExt, map[string]string{"RBP_ipc_adm0": "date", "RBP_pou": "year"}},
	{CategoryOutput, map[string]string{"RBP_IDB_tableau": "date"}},
}

// keyViews are the views the dashboards read from.
var keyViews = []string{
	"RBP_combined_prevalence_fs",
	"RBP_combined_prevalence_fs_adm1",
	"RBP_conflict_related_fatalities_30days",
	"RBP_protests_riots_30days",
}

// familyTables binds each alert family to its result table.
var familyTables = []contract.FamilyMappingRaw{
	{Family: "climate", Table: "RBP_climate_alert"},
	{Family: "conflict", Table: "RBP_conflict_alert"},
	{Family: "economic", Table: "RBP_economic_alert"},
	{Family: "food_security", Table: "RBP_food_security_alert"},
	{Family: "hazard", Table: "RBP_hazard_alert"},
	{Family: "trigger_result", Table: "RBP_trigger_result", OutcomeColumn: "trigger_outcome"},
}

// DefaultMapping returns the built-in mapping for the idb schema.
// Order inside a category does not matter; the config layer sorts tables.
func DefaultMapping() *contract.MappingRaw {
	m := &contract.MappingRaw{}
	for _, group := range keyTables {
		for table, column := range group.tables {
			m.Tables = append(m.Tables, contract.TableMappingRaw{
				Schema:   defaultSchema,
				Table:    table,
				Column:   column,
				Category: group.category,
			})
		}
	}
	for _, view := range keyViews {
		m.Views = append(m.Views, contract.ViewMappingRaw{Schema: defaultSchema, View: view})
	}
	for _, f := range familyTables {
		f.Schema = defaultSchema
		m.Families = append(m.Families, f)
	}
	return m
}
