package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Querier runs row-returning statements. *sql.DB, *sql.Conn and *sql.Tx
// satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer runs statements that return no rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB is the connection surface the engine needs.
type DB interface {
	Querier
	Execer
}

// Result is the marshalled outcome of one statement. Rows are aligned to
// Columns. AffectedRows is only set by Exec.
type Result struct {
	Columns         []string  `json:"columns"`
	Rows            [][]Value `json:"rows"`
	RowCount        int       `json:"row_count"`
	AffectedRows    *int64    `json:"affected_rows"`
	ExecutionTimeMS *int64    `json:"execution_time_ms"`

	// ColumnTypes holds the driver's type name per column, aligned to
	// Columns. It is not part of the wire shape.
	ColumnTypes []string `json:"-"`
}

// Engine executes admitted statements and marshals their rows.
// It holds no locks; concurrency is bounded by the underlying pool.
type Engine struct {
	db       DB
	decoders []Decoder
	now      func() time.Time
}

type Option func(*Engine)

// WithDecoders replaces DefaultDecoders.
func WithDecoders(decoders ...Decoder) Option {
	return func(e *Engine) { e.decoders = decoders }
}

// WithClock overrides the time source used for execution timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(db DB, opts ...Option) *Engine {
	e := &Engine{db: db, decoders: DefaultDecoders, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs query and materializes every row.
//
// The statement must already have been admitted; Execute performs no
// screening of its own. Column names are only reported when at least one
// row comes back. Timeouts are left to ctx and the connection layer.
func (e *Engine) Execute(ctx context.Context, query string) (*Result, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return nil, &ExecutionError{Query: query, Err: ErrEmptyQuery}
	}

	start := e.now()
	rows, err := e.db.QueryContext(ctx, text)
	if err != nil {
		return nil, &ExecutionError{Query: text, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Query: text, Err: fmt.Errorf("read columns: %w", err)}
	}
	typeNames, uuidCols := columnTypes(rows, len(columns))

	data := make([][]Value, 0)
	for rows.Next() {
		raw := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &ExecutionError{Query: text, Err: err}
		}
		PromoteUUIDs(raw, uuidCols)
		data = append(data, MarshalRow(columns, raw, e.decoders...))
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Query: text, Err: err}
	}
	elapsed := e.now().Sub(start).Milliseconds()

	if len(data) == 0 {
		columns = []string{}
		typeNames = []string{}
	}

	logger.L().Debugw("engine.execute: done",
		"rows", len(data),
		"columns", len(columns),
		"duration_ms", elapsed)

	return &Result{
		Columns:         columns,
		Rows:            data,
		RowCount:        len(data),
		ExecutionTimeMS: &elapsed,
		ColumnTypes:     typeNames,
	}, nil
}

// columnTypes reads driver type names. Drivers that cannot report them leave
// every name empty, which disables UUID promotion for that result.
func columnTypes(rows *sql.Rows, n int) ([]string, []bool) {
	names := make([]string, n)
	uuidCols := make([]bool, n)
	types, err := rows.ColumnTypes()
	if err != nil {
		logger.L().Debugw("engine.execute: column types unavailable", "error", err)
		return names, uuidCols
	}
	for i, ct := range types {
		if i >= n {
			break
		}
		names[i] = ct.DatabaseTypeName()
		uuidCols[i] = IsUUIDType(names[i])
	}
	return names, uuidCols
}

// Exec runs a statement that returns no rows, such as DDL built by schema
// operations, and reports the affected row count when the driver knows it.
func (e *Engine) Exec(ctx context.Context, stmt string) (*Result, error) {
	start := e.now()
	res, err := e.db.ExecContext(ctx, stmt)
	if err != nil {
		return nil, &ExecutionError{Query: stmt, Err: err}
	}
	elapsed := e.now().Sub(start).Milliseconds()

	out := &Result{
		Columns:         []string{},
		Rows:            [][]Value{},
		ExecutionTimeMS: &elapsed,
	}
	if n, err := res.RowsAffected(); err == nil {
		out.AffectedRows = &n
	}
	return out, nil
}
