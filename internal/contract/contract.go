// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/rbpanama/idbhealth/schema"
)

// Catalog defines the read-only warehouse operations the assessment needs.
// This allows the passes to be tested without a live MySQL server.
// Failures are reported as *ConnectivityError or *IntrospectionError.
type Catalog interface {
	// --- Catalog introspection ---

	// ListSchemas returns the names of all schemas visible to the connection.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListObjects returns the base tables and views of a schema with their estimated row counts.
	ListObjects(ctx context.Context, schemaName string) ([]schema.CatalogObject, error)

	// --- Data probes ---

	// CountRows returns the exact row count of a table or view.
	CountRows(ctx context.Context, schemaName, object string) (int64, error)

	// MaxTimestamp returns the most recent value of a column, or nil when the table is empty.
	MaxTimestamp(ctx context.Context, schemaName, table, column string) (*time.Time, error)

	// AggregateFamily returns per-country activity of one alert family table.
	AggregateFamily(ctx context.Context, family AlertFamilyTable) ([]schema.TriggerResult, error)

	// Close releases the underlying handle.
	Close() error
}

// ConnectionProvider yields a catalog bound to one warehouse environment.
type ConnectionProvider interface {
	Connect(ctx context.Context, env schema.Environment) (Catalog, error)
}

// HistoryManager defines the interface for managing the run history store.
// This allows the history layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for recording finished assessment runs.
type HistoryStore interface {
	// RecordSnapshot stores the summary and per-table statuses of a snapshot and returns the run ID.
	RecordSnapshot(snapshot schema.HealthSnapshot) (int64, error)

	// GetStatus returns status information about the history store.
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first.
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllTableStatuses returns every recorded table status, ordered by run.
	GetAllTableStatuses() ([]schema.TableStatusRecord, error)

	// Close closes the underlying connection.
	Close() error
}
