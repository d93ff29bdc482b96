package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTables(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"simple_select", "SELECT id, name FROM users", []string{"users"}},
		{"select_with_alias", "SELECT u.id FROM users u", []string{"users"}},
		{"join", "SELECT u.name, p.title FROM users u JOIN posts p ON u.id = p.user_id", []string{"users", "posts"}},
		{"left_join_schema_qualified", "SELECT * FROM public.users u LEFT JOIN sales.orders o ON o.uid = u.id", []string{"users", "orders"}},
		{"insert", "INSERT INTO users (id, name) VALUES (1, 'John')", []string{"users"}},
		{"update", "UPDATE users SET name = 'Jane' WHERE id = 1", []string{"users"}},
		{"delete", "DELETE FROM users WHERE id = 1", []string{"users"}},
		{"drop_if_exists", "DROP TABLE IF EXISTS audit_tmp", []string{"audit_tmp"}},
		{"duplicates_collapsed", "SELECT * FROM users WHERE id IN (SELECT uid FROM Users)", []string{"users"}},
		{"comment_ignored", "SELECT 1 /* FROM secrets */ -- FROM hidden\n FROM visible", []string{"visible"}},
		{"no_tables", "SELECT 1", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tables(tt.query))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "SELECT", Classify("  select * from users"))
	assert.Equal(t, "WITH", Classify("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "DROP", Classify("/* note */ drop table users"))
	assert.Equal(t, "", Classify(""))
	assert.Equal(t, "", Classify("(SELECT 1)"))
}

func TestInspect_Bulk(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		isBulk   bool
		bulkType string
	}{
		{"copy_to", "COPY users TO '/tmp/users.csv'", true, "export"},
		{"copy_from", "COPY users FROM '/tmp/users.csv'", true, "import"},
		{"load_data", "LOAD DATA INFILE 'x.csv' INTO TABLE users", true, "import"},
		{"into_outfile", "SELECT id FROM users INTO OUTFILE '/tmp/x'", true, "export"},
		{"multi_row_insert", "INSERT INTO t (a) VALUES (1), (2)", true, "insert"},
		{"insert_select", "INSERT INTO t SELECT * FROM s", true, "insert"},
		{"select_star_unfiltered", "SELECT * FROM users", true, "select"},
		{"select_star_filtered", "SELECT * FROM users WHERE id = 1", false, ""},
		{"single_insert", "INSERT INTO t (a) VALUES (1)", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := Inspect(tt.query)
			assert.Equal(t, tt.isBulk, refs.IsBulk)
			assert.Equal(t, tt.bulkType, refs.BulkType)
		})
	}
}
