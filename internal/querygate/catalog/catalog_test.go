package catalog

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
)

func newSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL, status TEXT DEFAULT 'active');
		CREATE VIEW active_users AS SELECT id FROM users WHERE status = 'active';
	`)
	require.NoError(t, err)
	return conn
}

func TestCatalog_SQLite(t *testing.T) {
	ctx := context.Background()
	c := New(newSQLite(t), db.SQLite)

	schemas, err := c.Schemas(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, "main")

	tables, err := c.Tables(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []TableInfo{
		{Name: "active_users", Type: "VIEW"},
		{Name: "users", Type: "BASE TABLE"},
	}, tables)

	cols, err := c.Columns(ctx, "main", "users")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "INTEGER", cols[0].DataType)
	assert.Equal(t, "email", cols[1].Name)
	assert.False(t, cols[1].Nullable)
	assert.True(t, cols[2].Nullable)
	require.NotNil(t, cols[2].Default)
	assert.Equal(t, "'active'", *cols[2].Default)
}

func TestCatalog_RejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	c := New(newSQLite(t), db.SQLite)

	_, err := c.Tables(ctx, "main; DROP TABLE users")
	assert.Error(t, err)
	_, err = c.Columns(ctx, "main", "users--")
	assert.Error(t, err)
}

func TestCatalog_UnknownTableHasNoColumns(t *testing.T) {
	c := New(newSQLite(t), db.SQLite)
	cols, err := c.Columns(context.Background(), "main", "missing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}
