//go:build basic

package integration

import (
	"encoding/json"
	"testing"

	"github.com/rbpanama/idbhealth/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolatedEnv keeps a developer's ~/.idbhealth.yaml and IDBHEALTH_* variables out of the run.
func isolatedEnv(t *testing.T) []string {
	return []string{"HOME=" + t.TempDir()}
}

func TestVersion(t *testing.T) {
	out, err := runCommand(t, t.TempDir(), isolatedEnv(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "idbhealth CLI")
	assert.Contains(t, out, "Runtime:")
}

func TestBandsWithoutWarehouse(t *testing.T) {
	out, err := runCommand(t, t.TempDir(), isolatedEnv(t), "bands", "--output", "json")
	require.NoError(t, err)

	var bands []schema.Band
	require.NoError(t, json.Unmarshal([]byte(out), &bands))
	require.Len(t, bands, 6)
	assert.Equal(t, schema.CurrentStatus, bands[0].Status)
	assert.Equal(t, schema.UnknownStatus, bands[5].Status)
}

func TestConfigurationErrorsBeforeIO(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown environment", args: []string{"assess", "staging"}},
		{name: "no connection settings", args: []string{"assess", "prod"}},
		{name: "bad output", args: []string{"tables", "dev", "--output", "yaml"}},
		{name: "xlsx without file", args: []string{"assess", "dev", "--output", "xlsx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := append(isolatedEnv(t), "IDBHEALTH_DEV_HOST=127.0.0.1", "IDBHEALTH_DEV_USER=reader")
			_, err := runCommand(t, t.TempDir(), env, tt.args...)
			assert.Error(t, err)
		})
	}
}
