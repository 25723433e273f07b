package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// MySQLCatalog answers catalog and data probes against a MySQL warehouse.
// Every statement is a single short-lived SELECT bounded by the query timeout.
type MySQLCatalog struct {
	db      *sql.DB
	timeout time.Duration
}

var _ contract.Catalog = &MySQLCatalog{} // Compile-time check

// NewMySQLCatalog wraps an open handle.
func NewMySQLCatalog(db *sql.DB, timeout time.Duration) *MySQLCatalog {
	return &MySQLCatalog{db: db, timeout: timeout}
}

// quoteIdent quotes a MySQL identifier with backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// qualified returns `schema`.`object`.
func qualified(schemaName, object string) string {
	return quoteIdent(schemaName) + "." + quoteIdent(object)
}

func (c *MySQLCatalog) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// ListSchemas implements the Catalog interface.
func (c *MySQLCatalog) ListSchemas(ctx context.Context) ([]string, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(qctx, "SELECT SCHEMA_NAME FROM information_schema.SCHEMATA ORDER BY SCHEMA_NAME")
	if err != nil {
		return nil, classify("list schemas", "information_schema.SCHEMATA", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify("list schemas", "information_schema.SCHEMATA", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list schemas", "information_schema.SCHEMATA", err)
	}
	return out, nil
}

// ListObjects implements the Catalog interface.
func (c *MySQLCatalog) ListObjects(ctx context.Context, schemaName string) ([]schema.CatalogObject, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	const query = `SELECT TABLE_NAME, TABLE_TYPE, COALESCE(TABLE_ROWS, 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`

	rows, err := c.db.QueryContext(qctx, query, schemaName)
	if err != nil {
		return nil, classify("list objects", schemaName, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.CatalogObject
	for rows.Next() {
		var obj schema.CatalogObject
		var kind string
		if err := rows.Scan(&obj.Name, &kind, &obj.EstimatedRows); err != nil {
			return nil, classify("list objects", schemaName, err)
		}
		switch schema.ObjectKind(kind) {
		case schema.BaseTableKind, schema.ViewKind:
			obj.Kind = schema.ObjectKind(kind)
			out = append(out, obj)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list objects", schemaName, err)
	}
	return out, nil
}

// CountRows implements the Catalog interface.
func (c *MySQLCatalog) CountRows(ctx context.Context, schemaName, object string) (int64, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	var n int64
	query := "SELECT COUNT(*) FROM " + qualified(schemaName, object)
	if err := c.db.QueryRowContext(qctx, query).Scan(&n); err != nil {
		return 0, classify("count rows", schemaName+"."+object, err)
	}
	return n, nil
}

// MaxTimestamp implements the Catalog interface.
func (c *MySQLCatalog) MaxTimestamp(ctx context.Context, schemaName, table, column string) (*time.Time, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	object := schemaName + "." + table + "." + column
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", quoteIdent(column), qualified(schemaName, table))

	var raw sql.NullString
	if err := c.db.QueryRowContext(qctx, query).Scan(&raw); err != nil {
		return nil, classify("max timestamp", object, err)
	}
	if !raw.Valid {
		return nil, nil
	}
	ts, err := ParseTimestamp(raw.String)
	if err != nil {
		return nil, &contract.IntrospectionError{Object: object, Err: err}
	}
	return ts, nil
}

// AggregateFamily implements the Catalog interface.
func (c *MySQLCatalog) AggregateFamily(ctx context.Context, family contract.AlertFamilyTable) ([]schema.TriggerResult, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	country := quoteIdent(family.CountryColumn)
	fired := ""
	if family.OutcomeColumn != "" {
		fired = fmt.Sprintf(", SUM(CASE WHEN %s = 1 THEN 1 ELSE 0 END)", quoteIdent(family.OutcomeColumn))
	}
	query := fmt.Sprintf("SELECT %s, COUNT(*), MAX(%s)%s FROM %s GROUP BY %s",
		country, quoteIdent(family.TimestampColumn), fired, qualified(family.Schema, family.Table), country)

	rows, err := c.db.QueryContext(qctx, query)
	if err != nil {
		return nil, classify("aggregate "+string(family.Family), family.QualifiedName(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.TriggerResult
	for rows.Next() {
		var code, last sql.NullString
		var count int64
		var firedCount sql.NullInt64
		dest := []any{&code, &count, &last}
		if family.OutcomeColumn != "" {
			dest = append(dest, &firedCount)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, classify("aggregate "+string(family.Family), family.QualifiedName(), err)
		}
		if !code.Valid || strings.TrimSpace(code.String) == "" {
			continue
		}

		result := schema.TriggerResult{
			Family:     family.Family,
			Country:    schema.NormalizeCountry(code.String),
			Executions: count,
		}
		if last.Valid {
			ts, err := ParseTimestamp(last.String)
			if err != nil {
				return nil, &contract.IntrospectionError{Object: family.QualifiedName(), Err: err}
			}
			result.LastExecution = ts
		}
		if family.OutcomeColumn != "" {
			n := firedCount.Int64
			result.Fired = &n
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("aggregate "+string(family.Family), family.QualifiedName(), err)
	}
	return out, nil
}

// Close implements the Catalog interface.
func (c *MySQLCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
