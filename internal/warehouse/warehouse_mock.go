package warehouse

import (
	"context"
	"time"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a mock implementation of Catalog for testing.
type MockCatalog struct {
	mock.Mock
}

var _ contract.Catalog = &MockCatalog{} // Compile-time check

// ListSchemas implements the Catalog interface.
func (m *MockCatalog) ListSchemas(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

// ListObjects implements the Catalog interface.
func (m *MockCatalog) ListObjects(ctx context.Context, schemaName string) ([]schema.CatalogObject, error) {
	args := m.Called(ctx, schemaName)
	out, _ := args.Get(0).([]schema.CatalogObject)
	return out, args.Error(1)
}

// CountRows implements the Catalog interface.
func (m *MockCatalog) CountRows(ctx context.Context, schemaName, object string) (int64, error) {
	args := m.Called(ctx, schemaName, object)
	return args.Get(0).(int64), args.Error(1)
}

// MaxTimestamp implements the Catalog interface.
func (m *MockCatalog) MaxTimestamp(ctx context.Context, schemaName, table, column string) (*time.Time, error) {
	args := m.Called(ctx, schemaName, table, column)
	ts, _ := args.Get(0).(*time.Time)
	return ts, args.Error(1)
}

// AggregateFamily implements the Catalog interface.
func (m *MockCatalog) AggregateFamily(ctx context.Context, family contract.AlertFamilyTable) ([]schema.TriggerResult, error) {
	args := m.Called(ctx, family)
	out, _ := args.Get(0).([]schema.TriggerResult)
	return out, args.Error(1)
}

// Close implements the Catalog interface.
func (m *MockCatalog) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockProvider is a mock implementation of ConnectionProvider for testing.
type MockProvider struct {
	mock.Mock
}

var _ contract.ConnectionProvider = &MockProvider{} // Compile-time check

// Connect implements the ConnectionProvider interface.
func (m *MockProvider) Connect(ctx context.Context, env schema.Environment) (contract.Catalog, error) {
	args := m.Called(ctx, env)
	cat, _ := args.Get(0).(contract.Catalog)
	return cat, args.Error(1)
}
