package schemaops

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

func strPtr(s string) *string { return &s }

func TestBuildCreateTable(t *testing.T) {
	req := CreateTableRequest{
		Schema:    "public",
		TableName: "users",
		Columns: []ColumnDefinition{
			{Name: "id", DataType: "SERIAL PRIMARY KEY"},
			{Name: "email", DataType: "VARCHAR(255)", Nullable: true},
			{Name: "created_at", DataType: "TIMESTAMPTZ", Default: strPtr("now()")},
		},
	}

	got, err := BuildCreateTable(db.Postgres, req)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS \"public\".\"users\" (\n"+
		"  \"id\" SERIAL PRIMARY KEY NOT NULL,\n"+
		"  \"email\" VARCHAR(255),\n"+
		"  \"created_at\" TIMESTAMPTZ NOT NULL DEFAULT now()\n)", got)

	got, err = BuildCreateTable(db.MySQL, req)
	require.NoError(t, err)
	assert.Contains(t, got, "CREATE TABLE IF NOT EXISTS `public`.`users`")
}

func TestBuildCreateTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  CreateTableRequest
	}{
		{"no_columns", CreateTableRequest{Schema: "public", TableName: "t"}},
		{"bad_table", CreateTableRequest{Schema: "public", TableName: "t; DROP", Columns: []ColumnDefinition{{Name: "a", DataType: "INT"}}}},
		{"bad_schema", CreateTableRequest{Schema: "1public", TableName: "t", Columns: []ColumnDefinition{{Name: "a", DataType: "INT"}}}},
		{"bad_column", CreateTableRequest{Schema: "public", TableName: "t", Columns: []ColumnDefinition{{Name: "a-b", DataType: "INT"}}}},
		{"bad_type", CreateTableRequest{Schema: "public", TableName: "t", Columns: []ColumnDefinition{{Name: "a", DataType: "INT); DROP TABLE x; --"}}}},
		{"bad_default", CreateTableRequest{Schema: "public", TableName: "t", Columns: []ColumnDefinition{{Name: "a", DataType: "INT", Default: strPtr("1; DROP TABLE x")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCreateTable(db.Postgres, tt.req)
			assert.Error(t, err)
		})
	}

	_, err := BuildCreateTable(db.Postgres, CreateTableRequest{Schema: "public", TableName: "user-data", Columns: []ColumnDefinition{{Name: "a", DataType: "INT"}}})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.KindIdentifier, verr.Kind)
}

func TestBuildDropObject(t *testing.T) {
	got, err := BuildDropObject(db.Postgres, DropObjectRequest{Schema: "public", ObjectName: "users", ObjectType: "table", Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "public"."users" CASCADE`, got)

	got, err = BuildDropObject(db.Postgres, DropObjectRequest{Schema: "public", ObjectName: "v_users", ObjectType: "VIEW"})
	require.NoError(t, err)
	assert.Equal(t, `DROP VIEW IF EXISTS "public"."v_users" RESTRICT`, got)

	got, err = BuildDropObject(db.SQLite, DropObjectRequest{Schema: "main", ObjectName: "users", ObjectType: "TABLE", Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "main"."users"`, got)

	_, err = BuildDropObject(db.Postgres, DropObjectRequest{Schema: "public", ObjectName: "users", ObjectType: "SCHEMA"})
	assert.EqualError(t, err, "unsupported object type: SCHEMA")
}

func TestBuildCreateIndex(t *testing.T) {
	req := CreateIndexRequest{Schema: "public", IndexName: "idx_users_email", TableName: "users", Columns: []string{"email", "tenant_id"}, Unique: true}

	got, err := BuildCreateIndex(db.Postgres, req)
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "idx_users_email" ON "public"."users" ("email", "tenant_id")`, got)

	got, err = BuildCreateIndex(db.MySQL, req)
	require.NoError(t, err)
	assert.Equal(t, "CREATE UNIQUE INDEX `idx_users_email` ON `public`.`users` (`email`, `tenant_id`)", got)

	req.Schema = "main"
	got, err = BuildCreateIndex(db.SQLite, req)
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "main"."idx_users_email" ON "users" ("email", "tenant_id")`, got)

	req.Columns = nil
	_, err = BuildCreateIndex(db.Postgres, req)
	assert.Error(t, err)

	req.Columns = []string{"email;"}
	_, err = BuildCreateIndex(db.Postgres, req)
	assert.Error(t, err)
}

func TestBuildDatabaseStatements(t *testing.T) {
	got, err := BuildCreateDatabase(db.Postgres, "analytics", "report_user")
	require.NoError(t, err)
	assert.Equal(t, `CREATE DATABASE "analytics" OWNER "report_user"`, got)

	got, err = BuildCreateDatabase(db.MySQL, "analytics", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "CREATE DATABASE `analytics`", got)

	got, err = BuildDropDatabase(db.Postgres, "analytics")
	require.NoError(t, err)
	assert.Equal(t, `DROP DATABASE "analytics"`, got)

	_, err = BuildCreateDatabase(db.Postgres, "bad name", "")
	assert.Error(t, err)
	_, err = BuildDropDatabase(db.SQLite, "x")
	assert.Error(t, err)
}

func TestService_SQLite(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	defer conn.Close()

	ctx := context.Background()
	svc := New(engine.New(conn), db.SQLite)

	out, err := svc.CreateTable(ctx, CreateTableRequest{
		Schema:    "main",
		TableName: "widgets",
		Columns: []ColumnDefinition{
			{Name: "id", DataType: "INTEGER PRIMARY KEY"},
			{Name: "name", DataType: "TEXT", Nullable: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Table main.widgets created successfully", out.Message)

	_, err = conn.Exec(`INSERT INTO widgets (id, name) VALUES (1, 'bolt')`)
	require.NoError(t, err)

	_, err = svc.CreateIndex(ctx, CreateIndexRequest{Schema: "main", IndexName: "idx_widgets_name", TableName: "widgets", Columns: []string{"name"}})
	require.NoError(t, err)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_widgets_name'`).Scan(&n))
	assert.Equal(t, 1, n)

	out, err = svc.DropObject(ctx, DropObjectRequest{Schema: "main", ObjectName: "widgets", ObjectType: "TABLE"})
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "main"."widgets"`, out.Statement)

	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'widgets'`).Scan(&n))
	assert.Equal(t, 0, n)

	_, err = svc.CreateDatabase(ctx, "other", "")
	assert.Error(t, err)
}

type failingExecer struct{}

func (failingExecer) Exec(_ context.Context, stmt string) (*engine.Result, error) {
	return nil, &engine.ExecutionError{Query: stmt, Err: errors.New("permission denied for schema public")}
}

func TestService_PropagatesExecutionError(t *testing.T) {
	svc := New(failingExecer{}, db.Postgres)
	_, err := svc.DropDatabase(context.Background(), "analytics")

	var execErr *engine.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "permission denied for schema public", err.Error())
}
