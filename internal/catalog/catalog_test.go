package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeMapping(t, `
tables:
  - schema: idb
    table: RBP_fcs
    column: date
    category: Food Security (RTM)
  - schema: idb
    table: RBP_population
    column: year
views:
  - schema: idb
    view: RBP_combined_prevalence_fs
families:
  - family: food_security
    table: RBP_food_security_alert
  - family: trigger_result
    table: RBP_trigger_result
    country_column: adm0_iso3
    outcome_column: trigger_outcome
`)

	m, err := Source{}.Load(path)
	require.NoError(t, err)
	require.Len(t, m.Tables, 2)
	assert.Equal(t, contract.TableMappingRaw{Schema: "idb", Table: "RBP_fcs", Column: "date", Category: "Food Security (RTM)"}, m.Tables[0])
	assert.Equal(t, "year", m.Tables[1].Column)
	require.Len(t, m.Views, 1)
	assert.Equal(t, "RBP_combined_prevalence_fs", m.Views[0].View)
	require.Len(t, m.Families, 2)
	assert.Equal(t, "adm0_iso3", m.Families[1].CountryColumn)
	assert.Equal(t, "trigger_outcome", m.Families[1].OutcomeColumn)
	assert.Empty(t, m.Families[0].Schema)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "unknown key", content: "tables:\n  - schema: idb\n    table: RBP_fcs\n    colum: date\n", errText: "colum"},
		{name: "empty document", content: "", errText: "empty"},
		{name: "nothing declared", content: "tables: []\n", errText: "declares no"},
		{name: "malformed", content: "tables: [\n", errText: "parse mapping file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeMapping(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadFile("")
		assert.Error(t, err)
	})
}

func TestDefaultMapping(t *testing.T) {
	m := Source{}.Default()
	require.False(t, m.Empty())

	columns := make(map[string]string, len(m.Tables))
	for _, tbl := range m.Tables {
		assert.Equal(t, "idb", tbl.Schema)
		assert.NotEmpty(t, tbl.Category, tbl.Table)
		columns[tbl.Table] = tbl.Column
	}
	assert.Equal(t, "date", columns["RBP_fcs"])
	assert.Equal(t, "year", columns["RBP_population"])
	assert.Equal(t, "date", columns["RBP_food_inflation"])
	assert.Len(t, columns, len(m.Tables), "no table listed twice")

	families := make(map[string]contract.FamilyMappingRaw)
	for _, f := range m.Families {
		families[f.Family] = f
	}
	assert.Len(t, families, 6)
	assert.Equal(t, "trigger_outcome", families["trigger_result"].OutcomeColumn)
	assert.Empty(t, families["climate"].OutcomeColumn)

	assert.Len(t, m.Views, 4)
}

func TestDefaultMappingValidates(t *testing.T) {
	cfg := &contract.Config{}
	input := &contract.ConfigRawInput{
		Env:          "dev",
		Workers:      contract.DefaultWorkers,
		QueryTimeout: contract.DefaultQueryTimeout,
		CountBudget:  contract.DefaultCountBudget,
		Output:       "text",
		Color:        "no",
		Environments: map[string]contract.EnvironmentRaw{"dev": {Host: "localhost", User: "reader"}},
	}
	require.NoError(t, contract.ProcessAndValidate(cfg, Source{}, input))
	assert.Len(t, cfg.Tables, len(DefaultMapping().Tables))
	assert.Len(t, cfg.Families, 6)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(DefaultMapping())
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, DefaultMapping().Tables, m.Tables)
	assert.Equal(t, DefaultMapping().Families, m.Families)
}
