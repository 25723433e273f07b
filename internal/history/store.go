package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// StoreImpl implements the HistoryStore interface on top of database/sql.
type StoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &StoreImpl{} // Compile-time check

// NewHistoryStore opens a history store with the specified backend and creates its tables.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*StoreImpl, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetHistoryDBFilePath()
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		dsn, dsnErr := mysqlDSN(connStr, false)
		if dsnErr != nil {
			return nil, fmt.Errorf("invalid MySQL connection string: %w. Expected format: user:password@tcp(host:port)/dbname", dsnErr)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w", err)
		}

	case schema.PostgreSQLBackend:
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=... user=...", err)
		}

	case schema.NoneBackend:
		// A store without a handle records nothing
		return &StoreImpl{backend: backend}, nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. Verify the database server is running and accessible", backend, err)
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &StoreImpl{db: db, backend: backend}, nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(connStr string, multiStatements bool) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.MultiStatements = multiStatements
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// createHistoryTables creates the history tables when they do not exist yet.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range []struct {
		name  string
		query string
	}{
		{runsTable, createRunsQuery(backend)},
		{tableStatusTable, createTableStatusQuery(backend)},
	} {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// createRunsQuery returns the CREATE TABLE query for idbhealth_runs.
func createRunsQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(runsTable, backend)
	counts := `monitored_tables INT NOT NULL,
				current_count INT NOT NULL,
				recent_count INT NOT NULL,
				outdated_count INT NOT NULL,
				stale_count INT NOT NULL,
				critical_count INT NOT NULL,
				unknown_count INT NOT NULL,
				countries INT NOT NULL,
				enabled_no_activity INT NOT NULL,
				warning_count INT NOT NULL`

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				snapshot_id VARCHAR(36) NOT NULL,
				environment VARCHAR(16) NOT NULL,
				scope VARCHAR(16) NOT NULL,
				generated_at DATETIME(6) NOT NULL,
				duration_ms BIGINT NOT NULL,
				%s
			);
		`, quoted, counts)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				snapshot_id TEXT NOT NULL,
				environment TEXT NOT NULL,
				scope TEXT NOT NULL,
				generated_at TIMESTAMPTZ NOT NULL,
				duration_ms BIGINT NOT NULL,
				%s
			);
		`, quoted, counts)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				snapshot_id TEXT NOT NULL,
				environment TEXT NOT NULL,
				scope TEXT NOT NULL,
				generated_at TEXT NOT NULL,
				duration_ms INTEGER NOT NULL,
				%s
			);
		`, quoted, counts)
	}
}

// createTableStatusQuery returns the CREATE TABLE query for idbhealth_table_status.
func createTableStatusQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(tableStatusTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				schema_name VARCHAR(64) NOT NULL,
				table_name VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL,
				age_days INT,
				row_count BIGINT NOT NULL,
				estimated BOOLEAN NOT NULL,
				last_updated DATETIME(6),
				PRIMARY KEY (run_id, schema_name, table_name)
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				schema_name TEXT NOT NULL,
				table_name TEXT NOT NULL,
				status TEXT NOT NULL,
				age_days INT,
				row_count BIGINT NOT NULL,
				estimated BOOLEAN NOT NULL,
				last_updated TIMESTAMPTZ,
				PRIMARY KEY (run_id, schema_name, table_name)
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				schema_name TEXT NOT NULL,
				table_name TEXT NOT NULL,
				status TEXT NOT NULL,
				age_days INTEGER,
				row_count INTEGER NOT NULL,
				estimated INTEGER NOT NULL,
				last_updated TEXT,
				PRIMARY KEY (run_id, schema_name, table_name)
			);
		`, quoted)
	}
}

// RecordSnapshot implements the HistoryStore interface. The run row and the
// per-table rows are written in one transaction.
func (s *StoreImpl) RecordSnapshot(snapshot schema.HealthSnapshot) (int64, error) {
	// Skip for NoneBackend
	if s.backend == schema.NoneBackend || s.db == nil {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sum := snapshot.Summary
	runCols := []string{
		"snapshot_id", "environment", "scope", "generated_at", "duration_ms", "monitored_tables",
		"current_count", "recent_count", "outdated_count", "stale_count", "critical_count", "unknown_count",
		"countries", "enabled_no_activity", "warning_count",
	}
	runArgs := []any{
		snapshot.ID, string(snapshot.Environment), string(snapshot.Scope), s.formatTime(snapshot.GeneratedAt),
		snapshot.DurationMs, sum.MonitoredTables,
		sum.StatusCounts[schema.CurrentStatus], sum.StatusCounts[schema.RecentStatus],
		sum.StatusCounts[schema.OutdatedStatus], sum.StatusCounts[schema.StaleStatus],
		sum.StatusCounts[schema.CriticalStatus], sum.StatusCounts[schema.UnknownStatus],
		sum.Countries, sum.EnabledNoActivity, sum.Warnings,
	}
	insertRun := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(runsTable, s.backend), strings.Join(runCols, ", "), s.placeholders(len(runCols)))

	var runID int64
	switch s.backend {
	case schema.PostgreSQLBackend:
		err = tx.QueryRow(insertRun+" RETURNING run_id", runArgs...).Scan(&runID)
	default: // SQLite and MySQL
		var result sql.Result
		result, err = tx.Exec(insertRun, runArgs...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	insertStatus := fmt.Sprintf(
		"INSERT INTO %s (run_id, schema_name, table_name, status, age_days, row_count, estimated, last_updated) VALUES (%s)",
		quoteTableName(tableStatusTable, s.backend), s.placeholders(8))
	stmt, err := tx.Prepare(insertStatus)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare table status insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range snapshot.Tables {
		var ageDays any
		if t.AgeDays != nil {
			ageDays = *t.AgeDays
		}
		var lastUpdated any
		if t.LastUpdated != nil {
			lastUpdated = s.formatTime(*t.LastUpdated)
		}
		if _, err := stmt.Exec(runID, t.Schema, t.Table, string(t.Status), ageDays, t.RowCount, t.Estimated, lastUpdated); err != nil {
			return 0, fmt.Errorf("failed to insert status of %s.%s: %w", t.Schema, t.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetStatus implements the HistoryStore interface.
func (s *StoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}

	if s.backend == schema.NoneBackend || s.db == nil {
		return status, nil
	}

	runs := quoteTableName(runsTable, s.backend)
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRun, oldestRun any
		row := s.db.QueryRow(fmt.Sprintf("SELECT run_id, generated_at FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID, &lastRun); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		row = s.db.QueryRow(fmt.Sprintf("SELECT generated_at FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if err := row.Scan(&oldestRun); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		var err error
		if status.LastRunTime, err = parseTime(lastRun); err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		if status.OldestRunTime, err = parseTime(oldestRun); err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
	}

	for _, table := range []string{runsTable, tableStatusTable} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, s.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns implements the HistoryStore interface.
func (s *StoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	// Skip for NoneBackend
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, snapshot_id, environment, scope, generated_at, duration_ms,
		monitored_tables, current_count, recent_count, outdated_count, stale_count, critical_count,
		unknown_count, countries, enabled_no_activity, warning_count
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, s.backend))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord
		var generatedAt any
		if err := rows.Scan(&r.RunID, &r.SnapshotID, &r.Environment, &r.Scope, &generatedAt, &r.DurationMs,
			&r.MonitoredTables, &r.CurrentCount, &r.RecentCount, &r.OutdatedCount, &r.StaleCount, &r.CriticalCount,
			&r.UnknownCount, &r.Countries, &r.EnabledNoActivity, &r.WarningCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.GeneratedAt, err = parseTime(generatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse generated_at: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllTableStatuses implements the HistoryStore interface.
func (s *StoreImpl) GetAllTableStatuses() ([]schema.TableStatusRecord, error) {
	// Skip for NoneBackend
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, schema_name, table_name, status, age_days, row_count, estimated, last_updated
		FROM %s ORDER BY run_id, schema_name, table_name`, quoteTableName(tableStatusTable, s.backend))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TableStatusRecord
	for rows.Next() {
		var r schema.TableStatusRecord
		var ageDays sql.NullInt32
		var lastUpdated any
		if err := rows.Scan(&r.RunID, &r.SchemaName, &r.TableName, &r.Status, &ageDays, &r.RowCount, &r.Estimated, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan table status: %w", err)
		}
		if ageDays.Valid {
			age := ageDays.Int32
			r.AgeDays = &age
		}
		if lastUpdated != nil {
			ts, err := parseTime(lastUpdated)
			if err != nil {
				return nil, fmt.Errorf("failed to parse last_updated: %w", err)
			}
			r.LastUpdated = &ts
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table statuses: %w", err)
	}
	return results, nil
}

// Close implements the HistoryStore interface.
func (s *StoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func (s *StoreImpl) formatTime(t time.Time) any {
	switch s.backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t.UTC()
	}
}

// placeholders returns n bind parameters in the backend's syntax.
func (s *StoreImpl) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if s.backend == schema.PostgreSQLBackend {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

// parseTime reads a timestamp column scanned into an interface value.
// SQLite returns the RFC3339 text we stored; MySQL and PostgreSQL return time.Time.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", v)
	}
}
