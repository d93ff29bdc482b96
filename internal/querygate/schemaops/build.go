package schemaops

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

// ColumnDefinition describes one column of a new table.
type ColumnDefinition struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

type CreateTableRequest struct {
	Schema    string             `json:"schema"`
	TableName string             `json:"table_name"`
	Columns   []ColumnDefinition `json:"columns"`
}

// DropObjectRequest drops a TABLE, VIEW, INDEX, SEQUENCE or FUNCTION.
type DropObjectRequest struct {
	Schema     string `json:"schema"`
	ObjectName string `json:"object_name"`
	ObjectType string `json:"object_type"`
	Cascade    bool   `json:"cascade"`
}

type CreateIndexRequest struct {
	Schema    string   `json:"schema"`
	IndexName string   `json:"index_name"`
	TableName string   `json:"table_name"`
	Columns   []string `json:"columns"`
	Unique    bool     `json:"unique"`
}

var (
	ErrNoColumns = errors.New("at least one column is required")

	// type names such as "VARCHAR(255)", "NUMERIC(12, 2)", "DOUBLE PRECISION"
	dataTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\(\s*\d+\s*(,\s*\d+\s*)?\))?(\[\])?$`)
)

var droppable = map[string]bool{
	"TABLE": true, "VIEW": true, "INDEX": true, "SEQUENCE": true, "FUNCTION": true,
}

func identifiers(names ...string) error {
	for _, n := range names {
		if err := validate.Identifier(n); err != nil {
			return err
		}
	}
	return nil
}

// defaults are passed through as SQL expressions; statement separators and
// comments are refused.
func checkDefault(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("default expression cannot be empty")
	}
	if strings.ContainsAny(expr, ";") || strings.Contains(expr, "--") || strings.Contains(expr, "/*") {
		return fmt.Errorf("invalid default expression %q", expr)
	}
	return nil
}

// BuildCreateTable renders CREATE TABLE IF NOT EXISTS for req.
func BuildCreateTable(d db.Dialect, req CreateTableRequest) (string, error) {
	if len(req.Columns) == 0 {
		return "", ErrNoColumns
	}
	if err := identifiers(req.Schema, req.TableName); err != nil {
		return "", err
	}

	defs := make([]string, 0, len(req.Columns))
	for _, col := range req.Columns {
		if err := validate.Identifier(col.Name); err != nil {
			return "", err
		}
		if !dataTypePattern.MatchString(strings.TrimSpace(col.DataType)) {
			return "", fmt.Errorf("invalid data type %q for column %s", col.DataType, col.Name)
		}
		def := fmt.Sprintf("\n  %s %s", d.Quote(col.Name), strings.TrimSpace(col.DataType))
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != nil {
			if err := checkDefault(*col.Default); err != nil {
				return "", err
			}
			def += " DEFAULT " + *col.Default
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n)",
		d.QuoteQualified(req.Schema, req.TableName), strings.Join(defs, ",")), nil
}

// BuildDropObject renders DROP <type> IF EXISTS. CASCADE/RESTRICT is omitted
// for SQLite, which has neither.
func BuildDropObject(d db.Dialect, req DropObjectRequest) (string, error) {
	if err := identifiers(req.Schema, req.ObjectName); err != nil {
		return "", err
	}
	kind := strings.ToUpper(strings.TrimSpace(req.ObjectType))
	if !droppable[kind] {
		return "", fmt.Errorf("unsupported object type: %s", req.ObjectType)
	}

	stmt := fmt.Sprintf("DROP %s IF EXISTS %s", kind, d.QuoteQualified(req.Schema, req.ObjectName))
	if d == db.SQLite {
		return stmt, nil
	}
	if req.Cascade {
		return stmt + " CASCADE", nil
	}
	return stmt + " RESTRICT", nil
}

// BuildCreateIndex renders CREATE [UNIQUE] INDEX in the dialect's shape.
func BuildCreateIndex(d db.Dialect, req CreateIndexRequest) (string, error) {
	if err := identifiers(req.Schema, req.IndexName, req.TableName); err != nil {
		return "", err
	}
	if len(req.Columns) == 0 {
		return "", fmt.Errorf("at least one column is required for an index")
	}
	cols := make([]string, 0, len(req.Columns))
	for _, c := range req.Columns {
		if err := validate.Identifier(c); err != nil {
			return "", err
		}
		cols = append(cols, d.Quote(c))
	}

	unique := ""
	if req.Unique {
		unique = "UNIQUE "
	}
	colList := strings.Join(cols, ", ")

	switch d {
	case db.SQLite:
		// the schema qualifies the index name, not the table
		return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, d.QuoteQualified(req.Schema, req.IndexName), d.Quote(req.TableName), colList), nil
	case db.MySQL:
		return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, d.Quote(req.IndexName), d.QuoteQualified(req.Schema, req.TableName), colList), nil
	default:
		return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, d.Quote(req.IndexName), d.QuoteQualified(req.Schema, req.TableName), colList), nil
	}
}

// BuildCreateDatabase renders CREATE DATABASE with an optional owner
// (Postgres only).
func BuildCreateDatabase(d db.Dialect, name, owner string) (string, error) {
	if d == db.SQLite {
		return "", fmt.Errorf("sqlite3 does not support CREATE DATABASE")
	}
	if err := validate.Identifier(name); err != nil {
		return "", err
	}
	stmt := "CREATE DATABASE " + d.Quote(name)
	if owner != "" && d == db.Postgres {
		if err := validate.Identifier(owner); err != nil {
			return "", err
		}
		stmt += " OWNER " + d.Quote(owner)
	}
	return stmt, nil
}

func BuildDropDatabase(d db.Dialect, name string) (string, error) {
	if d == db.SQLite {
		return "", fmt.Errorf("sqlite3 does not support DROP DATABASE")
	}
	if err := validate.Identifier(name); err != nil {
		return "", err
	}
	return "DROP DATABASE " + d.Quote(name), nil
}
