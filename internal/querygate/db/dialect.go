package db

import (
	"fmt"
	"strings"
)

// Dialect captures the per-driver differences the gateway cares about:
// bind placeholders, identifier quoting and catalog shape.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect maps a database/sql driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(driver)); d {
	case Postgres, MySQL, SQLite:
		return d, nil
	case "postgresql", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Quote wraps an already validated identifier in the dialect's quotes.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteQualified quotes schema and name and joins them with a dot. An empty
// schema yields just the quoted name.
func (d Dialect) QuoteQualified(schema, name string) string {
	if schema == "" {
		return d.Quote(name)
	}
	return d.Quote(schema) + "." + d.Quote(name)
}

// DefaultSchema is the schema used when a caller names none.
func (d Dialect) DefaultSchema() string {
	switch d {
	case Postgres:
		return "public"
	case SQLite:
		return "main"
	default:
		return ""
	}
}
