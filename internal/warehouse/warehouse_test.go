package warehouse

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		connectivity bool
	}{
		{name: "missing table", err: &mysql.MySQLError{Number: 1146, Message: "Table 'idb.RBP_hazard_alert' doesn't exist"}},
		{name: "unknown column", err: &mysql.MySQLError{Number: 1054, Message: "Unknown column 'date'"}},
		{name: "table access denied", err: &mysql.MySQLError{Number: 1142, Message: "SELECT command denied"}},
		{name: "user access denied", err: &mysql.MySQLError{Number: 1045, Message: "Access denied for user"}, connectivity: true},
		{name: "deadline", err: context.DeadlineExceeded, connectivity: true},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), connectivity: true},
		{name: "bad connection", err: driver.ErrBadConn, connectivity: true},
		{name: "invalid connection", err: mysql.ErrInvalidConn, connectivity: true},
		{name: "anything else", err: errors.New("syntax")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("probe", "idb.RBP_fcs", tt.err)
			assert.Equal(t, tt.connectivity, contract.IsConnectivity(err))
			assert.Equal(t, !tt.connectivity, contract.IsIntrospection(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("unknown column is marked", func(t *testing.T) {
		err := classify("max timestamp", "idb.RBP_fcs", &mysql.MySQLError{Number: 1054, Message: "Unknown column 'date'"})
		assert.True(t, contract.IsUnknownColumn(err))
		assert.True(t, contract.IsIntrospection(err))

		err = classify("max timestamp", "idb.RBP_fcs", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})
		assert.False(t, contract.IsUnknownColumn(err))
	})

	assert.NoError(t, classify("probe", "x", nil))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw      string
		expected time.Time
	}{
		{"2025-03-09", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"2025-03-09 14:05:00", time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC)},
		{"2025-03-09 14:05:00.250000", time.Date(2025, 3, 9, 14, 5, 0, 250000000, time.UTC)},
		{"2025-03-09T14:05:00Z", time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC)},
		{"2025-03", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{" 2024 ", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			require.NotNil(t, ts)
			assert.True(t, tt.expected.Equal(*ts), "got %v", ts)
		})
	}

	t.Run("zero dates are nil", func(t *testing.T) {
		for _, raw := range []string{"", "0000-00-00", "0000-00-00 00:00:00", "0000"} {
			ts, err := ParseTimestamp(raw)
			assert.NoError(t, err)
			assert.Nil(t, ts)
		}
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := ParseTimestamp("last tuesday")
		assert.Error(t, err)
	})
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`RBP_fcs`", quoteIdent("RBP_fcs"))
	assert.Equal(t, "`we``ird`", quoteIdent("we`ird"))
	assert.Equal(t, "`idb`.`RBP_fcs`", qualified("idb", "RBP_fcs"))
}

func TestMySQLConfig(t *testing.T) {
	wc := contract.WarehouseConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "reader",
		Password: "pw",
		Database: "idb",
		Params:   map[string]string{"charset": "utf8mb4"},
	}
	mc := MySQLConfig(wc, 5*time.Minute)

	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "db.internal:3307", mc.Addr)
	assert.Equal(t, "idb", mc.DBName)
	assert.Equal(t, maxDialTimeout, mc.Timeout)
	assert.Equal(t, 5*time.Minute, mc.ReadTimeout)
	assert.Equal(t, "utf8mb4", mc.Params["charset"])
	assert.False(t, mc.ParseTime)
}

func TestProviderConnect(t *testing.T) {
	cfg := &contract.Config{
		QueryTimeout: 2 * time.Second,
		Workers:      2,
		Environments: map[schema.Environment]contract.WarehouseConfig{
			schema.DevEnv: {Host: "127.0.0.1", Port: 1, User: "reader"},
		},
	}
	p := NewProvider(cfg)

	t.Run("unknown environment", func(t *testing.T) {
		_, err := p.Connect(context.Background(), schema.ProdEnv)
		assert.True(t, contract.IsConfiguration(err))
	})

	t.Run("unreachable host", func(t *testing.T) {
		_, err := p.Connect(context.Background(), schema.DevEnv)
		require.Error(t, err)
		assert.True(t, contract.IsConnectivity(err))
	})
}
