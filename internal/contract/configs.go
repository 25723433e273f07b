package contract

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rbpanama/idbhealth/schema"
)

// Default values for configuration.
const (
	DefaultQueryTimeout        = 300 * time.Second
	DefaultCountBudget         = 10 * time.Second
	DefaultExactCountThreshold = 100000
	DefaultWorkers             = 4
	MaxWorkers                 = 64
	DefaultMySQLPort           = 3306
	DefaultAddr                = ":8080"
	DefaultRefreshInterval     = 15 * time.Minute
	DefaultCountryColumn       = "iso3"
	DefaultTimestampColumn     = "date"
)

// DefaultSchemas are the warehouse schemas inspected when none are configured.
var DefaultSchemas = []string{"idb", "rbp", "rtm_raw", "rtm_clean", "rtm_analytics", "caricom_other_data"}

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// identifierPattern restricts schema, table and column names to plain MySQL identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)

// WarehouseConfig holds the connection settings of one environment.
type WarehouseConfig struct {
	Host     string
	Port     int
	User     string
	Password string // Please use env var as this is plaintext
	Database string
	Params   map[string]string
}

// MonitoredTable maps a table to the column that holds its last-updated timestamp.
type MonitoredTable struct {
	Schema   string
	Table    string
	Column   string
	Category string
}

// MonitoredView is a view whose presence is verified with a row count probe.
type MonitoredView struct {
	Schema string
	View   string
}

// AlertFamilyTable binds an alert family to the table holding its results.
type AlertFamilyTable struct {
	Family          schema.AlertFamily
	Schema          string
	Table           string
	CountryColumn   string
	TimestampColumn string
	OutcomeColumn   string // optional; enables fired counts
}

// QualifiedName returns schema.table.
func (m MonitoredTable) QualifiedName() string { return m.Schema + "." + m.Table }

// QualifiedName returns schema.view.
func (m MonitoredView) QualifiedName() string { return m.Schema + "." + m.View }

// QualifiedName returns schema.table.
func (f AlertFamilyTable) QualifiedName() string { return f.Schema + "." + f.Table }

// Config holds the runtime configuration for an assessment.
// This struct remains the "final, validated" config.
type Config struct {
	Environment  schema.Environment
	Warehouse    WarehouseConfig
	Environments map[schema.Environment]WarehouseConfig

	Schemas          []string
	Tables           []MonitoredTable
	Views            []MonitoredView
	Families         []AlertFamilyTable
	EnabledCountries []string
	StrictMapping    bool

	QueryTimeout        time.Duration
	CountBudget         time.Duration
	ExactCountThreshold int64
	Workers             int
	Retries             int

	Output     schema.OutputMode
	OutputFile string
	UseColors  bool
	Verbose    bool

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Addr            string
	RefreshInterval time.Duration
}

// EnvironmentRaw holds the raw connection settings of one environment.
type EnvironmentRaw struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Database string            `mapstructure:"database"`
	Params   map[string]string `mapstructure:"params"`
}

// TableMappingRaw is one monitored table entry of the mapping.
type TableMappingRaw struct {
	Schema   string `yaml:"schema" mapstructure:"schema"`
	Table    string `yaml:"table" mapstructure:"table"`
	Column   string `yaml:"column" mapstructure:"column"`
	Category string `yaml:"category" mapstructure:"category"`
}

// ViewMappingRaw is one monitored view entry of the mapping.
type ViewMappingRaw struct {
	Schema string `yaml:"schema" mapstructure:"schema"`
	View   string `yaml:"view" mapstructure:"view"`
}

// FamilyMappingRaw is one alert family entry of the mapping.
type FamilyMappingRaw struct {
	Family          string `yaml:"family" mapstructure:"family"`
	Schema          string `yaml:"schema" mapstructure:"schema"`
	Table           string `yaml:"table" mapstructure:"table"`
	CountryColumn   string `yaml:"country_column" mapstructure:"country_column"`
	TimestampColumn string `yaml:"timestamp_column" mapstructure:"timestamp_column"`
	OutcomeColumn   string `yaml:"outcome_column" mapstructure:"outcome_column"`
}

// MappingRaw holds the monitored objects, either from a mapping file or the main config.
type MappingRaw struct {
	Tables   []TableMappingRaw  `yaml:"tables" mapstructure:"tables"`
	Views    []ViewMappingRaw   `yaml:"views" mapstructure:"views"`
	Families []FamilyMappingRaw `yaml:"families" mapstructure:"families"`
}

// Empty reports whether the mapping declares nothing.
func (m *MappingRaw) Empty() bool {
	return m == nil || (len(m.Tables) == 0 && len(m.Views) == 0 && len(m.Families) == 0)
}

// MappingSource supplies the monitored-object mapping.
type MappingSource interface {
	Load(path string) (*MappingRaw, error)
	Default() *MappingRaw
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	EnvArg string

	// --- Fields from rootCmd.PersistentFlags() ---
	Env                 string        `mapstructure:"env"`
	Schemas             []string      `mapstructure:"schemas"`
	EnabledCountries    []string      `mapstructure:"enabled-countries"`
	MappingFile         string        `mapstructure:"mapping-file"`
	StrictMapping       bool          `mapstructure:"strict-mapping"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
	CountBudget         time.Duration `mapstructure:"count-budget"`
	ExactCountThreshold int64         `mapstructure:"exact-count-threshold"`
	Workers             int           `mapstructure:"workers"`
	Retries             int           `mapstructure:"retries"`
	Output              string        `mapstructure:"output"`
	OutputFile          string        `mapstructure:"output-file"`
	Color               string        `mapstructure:"color"`
	Verbose             bool          `mapstructure:"verbose"`
	HistoryBackend      string        `mapstructure:"history-backend"`
	HistoryDBConnect    string        `mapstructure:"history-db-connect"`

	// --- Fields from serveCmd.Flags() ---
	Addr    string        `mapstructure:"addr"`
	Refresh time.Duration `mapstructure:"refresh"`

	// --- From config file only ---
	Environments map[string]EnvironmentRaw `mapstructure:"environments"`
	Mapping      *MappingRaw               `mapstructure:"mapping"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Schemas = slices.Clone(c.Schemas)
	clone.Tables = slices.Clone(c.Tables)
	clone.Views = slices.Clone(c.Views)
	clone.Families = slices.Clone(c.Families)
	clone.EnabledCountries = slices.Clone(c.EnabledCountries)
	clone.Warehouse.Params = maps.Clone(c.Warehouse.Params)
	if c.Environments != nil {
		clone.Environments = make(map[schema.Environment]WarehouseConfig, len(c.Environments))
		for env, wc := range c.Environments {
			wc.Params = maps.Clone(wc.Params)
			clone.Environments[env] = wc
		}
	}
	return &clone
}

// SelectEnvironment switches the clone to another configured environment.
func (c *Config) SelectEnvironment(envStr string) error {
	env, err := parseEnvironment(envStr)
	if err != nil {
		return err
	}
	wc, ok := c.Environments[env]
	if !ok {
		return NewConfigError("env", "no connection settings for environment %q", env)
	}
	c.Environment = env
	c.Warehouse = wc
	return nil
}

// MonitoredTableSet indexes the monitored tables by schema and table name.
func (c *Config) MonitoredTableSet() map[string]MonitoredTable {
	out := make(map[string]MonitoredTable, len(c.Tables))
	for _, t := range c.Tables {
		out[t.QualifiedName()] = t
	}
	return out
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. It performs no warehouse I/O.
func ProcessAndValidate(cfg *Config, source MappingSource, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processEnvironments(cfg, input); err != nil {
		return err
	}
	if err := processSchemas(cfg, input); err != nil {
		return err
	}
	if err := processMapping(cfg, source, input); err != nil {
		return err
	}
	processCountries(cfg, input)
	if err := validateHistoryBackend(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Verbose = input.Verbose
	cfg.StrictMapping = input.StrictMapping

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return NewConfigError("color", "%v", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return NewConfigError("workers", "must be between 1 and %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Timeouts ---
	if input.QueryTimeout <= 0 {
		return NewConfigError("query-timeout", "must be positive (received %s)", input.QueryTimeout)
	}
	cfg.QueryTimeout = input.QueryTimeout
	if input.CountBudget <= 0 {
		return NewConfigError("count-budget", "must be positive (received %s)", input.CountBudget)
	}
	cfg.CountBudget = min(input.CountBudget, input.QueryTimeout)
	if input.ExactCountThreshold < 0 {
		return NewConfigError("exact-count-threshold", "cannot be negative (received %d)", input.ExactCountThreshold)
	}
	cfg.ExactCountThreshold = input.ExactCountThreshold

	if input.Retries < 0 || input.Retries > 10 {
		return NewConfigError("retries", "must be between 0 and 10 (received %d)", input.Retries)
	}
	cfg.Retries = input.Retries

	// --- 3. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return NewConfigError("output", "invalid format '%s'. must be text, csv, json, parquet, xlsx", input.Output)
	}
	if (cfg.Output == schema.ParquetOut || cfg.Output == schema.XLSXOut) && cfg.OutputFile == "" {
		return NewConfigError("output-file", "is required for %s output", cfg.Output)
	}

	// --- 4. Serve settings ---
	cfg.Addr = input.Addr
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	cfg.RefreshInterval = input.Refresh
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return nil
}

// parseEnvironment maps a selector to a known environment.
func parseEnvironment(envStr string) (schema.Environment, error) {
	env := schema.Environment(strings.ToLower(strings.TrimSpace(envStr)))
	if _, ok := schema.ValidEnvironments[env]; !ok {
		return "", NewConfigError("env", "unknown environment %q. must be dev or prod", envStr)
	}
	return env, nil
}

// processEnvironments resolves the selected environment and its connection settings.
func processEnvironments(cfg *Config, input *ConfigRawInput) error {
	envStr := input.EnvArg
	if envStr == "" {
		envStr = input.Env
	}
	env, err := parseEnvironment(envStr)
	if err != nil {
		return err
	}

	cfg.Environments = make(map[schema.Environment]WarehouseConfig, len(input.Environments))
	for name, raw := range input.Environments {
		e, err := parseEnvironment(name)
		if err != nil {
			return NewConfigError("environments", "unknown environment %q. must be dev or prod", name)
		}
		if raw.Host == "" {
			// Partially bound env vars can leave an entry without a host.
			continue
		}
		port := raw.Port
		if port == 0 {
			port = DefaultMySQLPort
		}
		if port < 0 || port > 65535 {
			return NewConfigError(fmt.Sprintf("environments.%s.port", e), "invalid port %d", raw.Port)
		}
		if raw.User == "" {
			return NewConfigError(fmt.Sprintf("environments.%s.user", e), "is required")
		}
		cfg.Environments[e] = WarehouseConfig{
			Host:     raw.Host,
			Port:     port,
			User:     raw.User,
			Password: raw.Password,
			Database: raw.Database,
			Params:   maps.Clone(raw.Params),
		}
	}

	wc, ok := cfg.Environments[env]
	if !ok {
		return NewConfigError(fmt.Sprintf("environments.%s.host", env), "is required for environment %q", env)
	}
	cfg.Environment = env
	cfg.Warehouse = wc
	return nil
}

// processSchemas trims and de-duplicates the target schemas.
func processSchemas(cfg *Config, input *ConfigRawInput) error {
	raw := input.Schemas
	if len(raw) == 0 {
		raw = DefaultSchemas
	}
	seen := make(map[string]struct{}, len(raw))
	cfg.Schemas = cfg.Schemas[:0]
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !identifierPattern.MatchString(s) {
			return NewConfigError("schemas", "invalid schema name %q", s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		cfg.Schemas = append(cfg.Schemas, s)
	}
	if len(cfg.Schemas) == 0 {
		return NewConfigError("schemas", "at least one target schema is required")
	}
	return nil
}

// processMapping resolves and validates the monitored tables, views and alert families.
func processMapping(cfg *Config, source MappingSource, input *ConfigRawInput) error {
	var mapping *MappingRaw
	switch {
	case input.MappingFile != "":
		m, err := source.Load(input.MappingFile)
		if err != nil {
			return NewConfigError("mapping-file", "%v", err)
		}
		mapping = m
	case !input.Mapping.Empty():
		mapping = input.Mapping
	default:
		mapping = source.Default()
	}

	targets := make(map[string]struct{}, len(cfg.Schemas))
	for _, s := range cfg.Schemas {
		targets[s] = struct{}{}
	}

	if err := processTables(cfg, mapping.Tables, targets); err != nil {
		return err
	}
	if err := processViews(cfg, mapping.Views, targets); err != nil {
		return err
	}
	return processFamilies(cfg, mapping.Families)
}

func processTables(cfg *Config, raw []TableMappingRaw, targets map[string]struct{}) error {
	cfg.Tables = make([]MonitoredTable, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, t := range raw {
		field := fmt.Sprintf("mapping.tables[%d]", i)
		if t.Table == "" || !identifierPattern.MatchString(t.Table) {
			return NewConfigError(field, "invalid table name %q", t.Table)
		}
		if _, ok := targets[t.Schema]; !ok {
			return NewConfigError(field, "schema %q of %s is not a target schema", t.Schema, t.Table)
		}
		if t.Column == "" {
			return NewConfigError(field, "no timestamp column mapped for %s.%s", t.Schema, t.Table)
		}
		if !identifierPattern.MatchString(t.Column) {
			return NewConfigError(field, "invalid timestamp column %q for %s.%s", t.Column, t.Schema, t.Table)
		}
		m := MonitoredTable{Schema: t.Schema, Table: t.Table, Column: t.Column, Category: t.Category}
		if _, dup := seen[m.QualifiedName()]; dup {
			return NewConfigError(field, "%s is mapped more than once", m.QualifiedName())
		}
		seen[m.QualifiedName()] = struct{}{}
		cfg.Tables = append(cfg.Tables, m)
	}
	sort.SliceStable(cfg.Tables, func(i, j int) bool {
		return cfg.Tables[i].QualifiedName() < cfg.Tables[j].QualifiedName()
	})
	return nil
}

func processViews(cfg *Config, raw []ViewMappingRaw, targets map[string]struct{}) error {
	cfg.Views = make([]MonitoredView, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, v := range raw {
		field := fmt.Sprintf("mapping.views[%d]", i)
		if v.View == "" || !identifierPattern.MatchString(v.View) {
			return NewConfigError(field, "invalid view name %q", v.View)
		}
		if _, ok := targets[v.Schema]; !ok {
			return NewConfigError(field, "schema %q of %s is not a target schema", v.Schema, v.View)
		}
		m := MonitoredView{Schema: v.Schema, View: v.View}
		if _, dup := seen[m.QualifiedName()]; dup {
			return NewConfigError(field, "%s is listed more than once", m.QualifiedName())
		}
		seen[m.QualifiedName()] = struct{}{}
		cfg.Views = append(cfg.Views, m)
	}
	return nil
}

func processFamilies(cfg *Config, raw []FamilyMappingRaw) error {
	cfg.Families = make([]AlertFamilyTable, 0, len(raw))
	seen := make(map[schema.AlertFamily]struct{}, len(raw))
	for i, f := range raw {
		field := fmt.Sprintf("mapping.families[%d]", i)
		fam := schema.AlertFamily(strings.ToLower(f.Family))
		if _, ok := schema.ValidFamilies[fam]; !ok {
			return NewConfigError(field, "unknown alert family %q", f.Family)
		}
		if _, dup := seen[fam]; dup {
			return NewConfigError(field, "alert family %q is mapped more than once", fam)
		}
		seen[fam] = struct{}{}

		aft := AlertFamilyTable{
			Family:          fam,
			Schema:          f.Schema,
			Table:           f.Table,
			CountryColumn:   f.CountryColumn,
			TimestampColumn: f.TimestampColumn,
			OutcomeColumn:   f.OutcomeColumn,
		}
		if aft.Schema == "" {
			aft.Schema = cfg.Schemas[0]
		}
		if aft.CountryColumn == "" {
			aft.CountryColumn = DefaultCountryColumn
		}
		if aft.TimestampColumn == "" {
			aft.TimestampColumn = DefaultTimestampColumn
		}
		for _, ident := range []string{aft.Schema, aft.Table, aft.CountryColumn, aft.TimestampColumn} {
			if !identifierPattern.MatchString(ident) {
				return NewConfigError(field, "invalid identifier %q for family %s", ident, fam)
			}
		}
		if aft.OutcomeColumn != "" && !identifierPattern.MatchString(aft.OutcomeColumn) {
			return NewConfigError(field, "invalid outcome column %q for family %s", aft.OutcomeColumn, fam)
		}
		cfg.Families = append(cfg.Families, aft)
	}
	sort.SliceStable(cfg.Families, func(i, j int) bool {
		return schema.FamilyRank(cfg.Families[i].Family) < schema.FamilyRank(cfg.Families[j].Family)
	})
	return nil
}

// processCountries normalizes the enabled-country set into sorted unique codes.
func processCountries(cfg *Config, input *ConfigRawInput) {
	seen := make(map[string]struct{}, len(input.EnabledCountries))
	cfg.EnabledCountries = nil
	for _, c := range input.EnabledCountries {
		c = schema.NormalizeCountry(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cfg.EnabledCountries = append(cfg.EnabledCountries, c)
	}
	sort.Strings(cfg.EnabledCountries)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		dsn, err := mysql.ParseDSN(connStr)
		if err != nil {
			return fmt.Errorf("invalid MySQL connection string: %w", err)
		}
		if dsn.Net != "tcp" {
			return fmt.Errorf("MySQL connection string must use tcp(host:port), got %q", dsn.Net)
		}
		if dsn.DBName == "" {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateHistoryBackend validates the run history backend configuration.
func validateHistoryBackend(cfg *Config, input *ConfigRawInput) error {
	backend := strings.ToLower(input.HistoryBackend)
	if backend == "" {
		backend = string(schema.NoneBackend)
	}
	cfg.HistoryBackend = schema.DatabaseBackend(backend)
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return NewConfigError("history-backend", "invalid backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return &ConfigurationError{Field: "history-db-connect", Reason: err.Error()}
	}
	return nil
}
