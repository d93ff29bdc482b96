// Package export renders query results as CSV, JSON or SQL INSERT
// statements.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
)

// Format is an export output format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	SQL  Format = "sql"
)

// ParseFormat matches s case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, SQL:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv, json or sql)", s)
	}
}

// Extension is the file extension without the dot.
func (f Format) Extension() string { return string(f) }

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *engine.Result, format Format) error {
	if res == nil {
		return fmt.Errorf("export: nil result")
	}
	switch format {
	case CSV:
		return writeCSV(w, res)
	case JSON:
		return writeJSON(w, res)
	case SQL:
		return writeSQL(w, res)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// writeCSV emits a header and one record per row. Nulls are empty cells.
func writeCSV(w io.Writer, res *engine.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, 0, len(res.Columns))
	for i, row := range res.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, v.Text())
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

type jsonDocument struct {
	Columns         []string                  `json:"columns"`
	RowCount        int                       `json:"row_count"`
	ExecutionTimeMS *int64                    `json:"execution_time_ms"`
	Data            []map[string]engine.Value `json:"data"`
}

func writeJSON(w io.Writer, res *engine.Result) error {
	doc := jsonDocument{
		Columns:         res.Columns,
		RowCount:        res.RowCount,
		ExecutionTimeMS: res.ExecutionTimeMS,
		Data:            make([]map[string]engine.Value, 0, len(res.Rows)),
	}
	if doc.Columns == nil {
		doc.Columns = []string{}
	}
	for _, row := range res.Rows {
		obj := make(map[string]engine.Value, len(res.Columns))
		for i, col := range res.Columns {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		doc.Data = append(doc.Data, obj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json export: %w", err)
	}
	return nil
}

func writeSQL(w io.Writer, res *engine.Result) error {
	bw := bufio.NewWriter(w)
	var elapsed int64
	if res.ExecutionTimeMS != nil {
		elapsed = *res.ExecutionTimeMS
	}
	fmt.Fprintf(bw, "-- Exported %d rows in %dms\n", res.RowCount, elapsed)
	fmt.Fprintf(bw, "-- Columns: %s\n\n", strings.Join(res.Columns, ", "))

	if len(res.Rows) == 0 {
		bw.WriteString("-- No data to insert\n")
	}
	cols := strings.Join(res.Columns, ", ")
	values := make([]string, 0, len(res.Columns))
	for _, row := range res.Rows {
		values = values[:0]
		for _, v := range row {
			values = append(values, SQLLiteral(v))
		}
		fmt.Fprintf(bw, "INSERT INTO table_name (%s) VALUES (%s);\n", cols, strings.Join(values, ", "))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write sql export: %w", err)
	}
	return nil
}

// SQLLiteral renders v as a SQL literal. Strings and composites are
// single-quoted with embedded quotes doubled.
func SQLLiteral(v engine.Value) string {
	switch v.Kind() {
	case engine.KindNull:
		return "NULL"
	case engine.KindString, engine.KindComposite:
		return "'" + strings.ReplaceAll(v.AsString(), "'", "''") + "'"
	default:
		return v.Text()
	}
}
