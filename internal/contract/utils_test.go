package contract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbpanama/idbhealth/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    schema.FreshnessStatus
		expected string
	}{
		{name: "current", input: schema.CurrentStatus, expected: "🟢 Current"},
		{name: "recent", input: schema.RecentStatus, expected: "🟡 Recent"},
		{name: "outdated", input: schema.OutdatedStatus, expected: "🟠 Outdated"},
		{name: "stale", input: schema.StaleStatus, expected: "🔴 Stale"},
		{name: "critical", input: schema.CriticalStatus, expected: "⛔ Critical"},
		{name: "unknown", input: schema.UnknownStatus, expected: "⚪ Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.input))
		})
	}
}

func TestGetColorLabel(t *testing.T) {
	for _, status := range schema.AllStatuses {
		t.Run(string(status), func(t *testing.T) {
			// Should contain the plain label
			assert.Contains(t, GetColorLabel(status), string(status))
		})
	}
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestResolveOutputFile(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 5, 0, time.UTC)

	assert.Equal(t, "out.json", ResolveOutputFile("out.json", schema.DevEnv, schema.JSONOut, at))
	assert.Equal(t, "", ResolveOutputFile("", schema.DevEnv, schema.JSONOut, at))
	assert.Equal(t, "idb_health_prod_20250601_093005.xlsx", ResolveOutputFile("auto", schema.ProdEnv, schema.XLSXOut, at))
	assert.Equal(t, "idb_health_dev_20250601_093005.txt", ResolveOutputFile("AUTO", schema.DevEnv, schema.TextOut, at))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "RBP_fo...", TruncateText("RBP_food_security_alert", 9))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 3))
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"yes", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"no", false, false},
		{"false", false, false},
		{"0", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBoolString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWarningFromError(t *testing.T) {
	conn := WarningFromError(schema.InventoryPass, "idb", &ConnectivityError{Op: "list", Err: os.ErrDeadlineExceeded})
	assert.Equal(t, schema.ConnectivityWarning, conn.Kind)
	assert.Equal(t, "idb", conn.Object)

	intro := WarningFromError(schema.TriggersPass, "hazard", &IntrospectionError{Object: "idb.RBP_hazard_alert", Err: os.ErrNotExist})
	assert.Equal(t, schema.IntrospectionWarning, intro.Kind)
	assert.Contains(t, intro.Message, "RBP_hazard_alert")
}
