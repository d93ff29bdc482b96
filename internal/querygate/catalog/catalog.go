// Package catalog lists schemas, tables and columns for the browse
// endpoints. Postgres and MySQL are read from information_schema, SQLite
// from sqlite_master and pragma table functions.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

type TableInfo struct {
	Name string `json:"table_name"`
	Type string `json:"table_type"`
}

type ColumnInfo struct {
	Name     string  `json:"column_name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"is_nullable"`
	Default  *string `json:"column_default"`
}

type Catalog struct {
	q       engine.Querier
	dialect db.Dialect
}

func New(q engine.Querier, dialect db.Dialect) *Catalog {
	return &Catalog{q: q, dialect: dialect}
}

// Schemas lists user-visible schemas, system schemas excluded.
func (c *Catalog) Schemas(ctx context.Context) ([]string, error) {
	var query string
	switch c.dialect {
	case db.SQLite:
		query = `SELECT name FROM pragma_database_list ORDER BY seq`
	case db.MySQL:
		query = `SELECT schema_name FROM information_schema.schemata
			WHERE schema_name NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
			ORDER BY schema_name`
	default:
		query = `SELECT schema_name FROM information_schema.schemata
			WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
			AND schema_name NOT LIKE 'pg_toast%'
			AND schema_name NOT LIKE 'pg_temp%'
			ORDER BY schema_name`
	}

	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Tables lists tables and views in schema.
func (c *Catalog) Tables(ctx context.Context, schema string) ([]TableInfo, error) {
	if err := validate.Identifier(schema); err != nil {
		return nil, err
	}

	var (
		query string
		args  []any
	)
	if c.dialect == db.SQLite {
		query = fmt.Sprintf(`SELECT name, CASE type WHEN 'view' THEN 'VIEW' ELSE 'BASE TABLE' END
			FROM %s.sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%%'
			ORDER BY name`, c.dialect.Quote(schema))
	} else {
		query = fmt.Sprintf(`SELECT table_name, table_type FROM information_schema.tables
			WHERE table_schema = %s
			ORDER BY table_name`, c.dialect.Placeholder(1))
		args = append(args, schema)
	}

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	out := make([]TableInfo, 0)
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.Type); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Columns lists the columns of schema.table in ordinal order.
func (c *Catalog) Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	if err := validate.Identifier(schema); err != nil {
		return nil, err
	}
	if err := validate.Identifier(table); err != nil {
		return nil, err
	}

	var (
		query string
		args  []any
	)
	if c.dialect == db.SQLite {
		query = `SELECT name, type, CASE "notnull" WHEN 0 THEN 'YES' ELSE 'NO' END, dflt_value
			FROM pragma_table_info(?, ?)
			ORDER BY cid`
		args = []any{table, schema}
	} else {
		query = fmt.Sprintf(`SELECT column_name, data_type, is_nullable, column_default
			FROM information_schema.columns
			WHERE table_schema = %s AND table_name = %s
			ORDER BY ordinal_position`, c.dialect.Placeholder(1), c.dialect.Placeholder(2))
		args = []any{schema, table}
	}

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get table columns: %w", err)
	}
	defer rows.Close()

	out := make([]ColumnInfo, 0)
	for rows.Next() {
		var (
			col      ColumnInfo
			nullable string
			def      sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default = &def.String
		}
		out = append(out, col)
	}
	return out, rows.Err()
}
