package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// FreshnessStatus represents the freshness band of a table or of a country's trigger activity.
	FreshnessStatus string

	// AlertFamily represents one of the alert/trigger result families.
	AlertFamily string

	// Environment selects which warehouse a run connects to.
	Environment string

	// DatabaseBackend represents the database backend for run history.
	DatabaseBackend string

	// ObjectKind distinguishes base tables from views in the catalog.
	ObjectKind string

	// Pass names the assessment pass that produced a warning.
	Pass string

	// WarningKind classifies a warning by the error family behind it.
	WarningKind string

	// Scope selects which passes an assessment runs.
	Scope string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
	XLSXOut    OutputMode = "xlsx"
)

// All freshness bands, in order of increasing age. Unknown sorts last.
const (
	CurrentStatus  FreshnessStatus = "Current"
	RecentStatus   FreshnessStatus = "Recent"
	OutdatedStatus FreshnessStatus = "Outdated"
	StaleStatus    FreshnessStatus = "Stale"
	CriticalStatus FreshnessStatus = "Critical"
	UnknownStatus  FreshnessStatus = "Unknown"
)

// All alert families supported.
const (
	ClimateFamily       AlertFamily = "climate"
	ConflictFamily      AlertFamily = "conflict"
	EconomicFamily      AlertFamily = "economic"
	FoodSecurityFamily  AlertFamily = "food_security"
	HazardFamily        AlertFamily = "hazard"
	TriggerResultFamily AlertFamily = "trigger_result"
)

// All warehouse environments supported.
const (
	DevEnv  Environment = "dev"
	ProdEnv Environment = "prod"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Catalog object kinds as reported by information_schema.TABLES.TABLE_TYPE.
const (
	BaseTableKind ObjectKind = "BASE TABLE"
	ViewKind      ObjectKind = "VIEW"
)

// Assessment passes.
const (
	InventoryPass Pass = "inventory"
	FreshnessPass Pass = "freshness"
	TriggersPass  Pass = "triggers"
)

// Warning kinds.
const (
	ConnectivityWarning  WarningKind = "connectivity"
	IntrospectionWarning WarningKind = "introspection"
)

// Assessment scopes.
const (
	FullScope     Scope = "full"
	TablesScope   Scope = "tables"
	TriggersScope Scope = "triggers"
)

// AllStatuses lists every freshness status in display order.
var AllStatuses = []FreshnessStatus{
	CurrentStatus, RecentStatus, OutdatedStatus, StaleStatus, CriticalStatus, UnknownStatus,
}

// AllFamilies lists every alert family in the fixed reporting order.
var AllFamilies = []AlertFamily{
	ClimateFamily, ConflictFamily, EconomicFamily, FoodSecurityFamily, HazardFamily, TriggerResultFamily,
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
	XLSXOut:    {},
}

// ValidEnvironments lists all valid warehouse environments.
var ValidEnvironments = map[Environment]struct{}{
	DevEnv:  {},
	ProdEnv: {},
}

// ValidFamilies lists all valid alert families.
var ValidFamilies = map[AlertFamily]struct{}{
	ClimateFamily:       {},
	ConflictFamily:      {},
	EconomicFamily:      {},
	FoodSecurityFamily:  {},
	HazardFamily:        {},
	TriggerResultFamily: {},
}

// ValidScopes lists all valid assessment scopes.
var ValidScopes = map[Scope]struct{}{
	FullScope:     {},
	TablesScope:   {},
	TriggersScope: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Rank returns the position of the status in display order.
func (s FreshnessStatus) Rank() int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return len(AllStatuses)
}

// FamilyRank returns the position of the family in the fixed reporting order.
func FamilyRank(f AlertFamily) int {
	for i, fam := range AllFamilies {
		if fam == f {
			return i
		}
	}
	return len(AllFamilies)
}
