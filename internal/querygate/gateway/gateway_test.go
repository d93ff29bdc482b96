package gateway

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/catalog"
	"github.com/vaibhaw-/QueryGate/internal/querygate/classify"
	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/history"
	"github.com/vaibhaw-/QueryGate/internal/querygate/ratelimit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/schemaops"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newTestGateway(t *testing.T, quotas ratelimit.Quotas) (*Gateway, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, active BOOLEAN);
		INSERT INTO users (id, name, active) VALUES (1, 'alice', 1), (2, 'bob', 0);
	`)
	require.NoError(t, err)

	eng := engine.New(conn)
	g := New(Deps{
		Engine:    eng,
		Limiters:  ratelimit.NewEndpoints(quotas),
		History:   history.New(100),
		Audit:     audit.New(100, audit.WithEmitter(func(audit.Event) {})),
		Schema:    schemaops.New(eng, db.SQLite),
		Catalog:   catalog.New(conn, db.SQLite),
		QueueSize: 64,
	})
	t.Cleanup(g.Close)
	return g, conn
}

func TestExecuteQuery_Success(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)

	res, err := g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT id, name FROM users ORDER BY id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, "alice", res.Rows[0][1].AsString())

	// bookkeeping is asynchronous
	require.Eventually(t, func() bool {
		return len(g.RecentHistory(10)) == 1 && len(g.RecentAudit(10)) == 1
	}, waitFor, tick)

	entry := g.RecentHistory(1)[0]
	assert.True(t, entry.Success)
	require.NotNil(t, entry.RowCount)
	assert.EqualValues(t, 2, *entry.RowCount)

	ev := g.RecentAudit(1)[0]
	assert.Equal(t, audit.QueryExecution, ev.Type)
	assert.Equal(t, "10.0.0.1", ev.Source)
	assert.Equal(t, "users", ev.Resource)
	assert.True(t, ev.Success)
}

func TestExecuteQuery_Rejected(t *testing.T) {
	g, conn := newTestGateway(t, ratelimit.DefaultQuotas)

	_, err := g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT 1; DROP TABLE users;"})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "multi-statement query with dangerous operation: DROP", verr.Reason)

	require.Eventually(t, func() bool {
		return len(g.RecentHistory(10)) == 1 && len(g.RecentAudit(10)) == 1
	}, waitFor, tick)

	entry := g.RecentHistory(1)[0]
	assert.False(t, entry.Success)
	require.NotNil(t, entry.Error)
	assert.Equal(t, verr.Reason, *entry.Error)
	assert.Equal(t, audit.DangerousQueryDetected, g.RecentAudit(1)[0].Type)

	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 2, n, "rejected text must never reach the database")
}

func TestExecuteQuery_ExecutionError(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)

	_, err := g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.2", Subject: "analyst", Query: "SELECT * FROM missing_table"})
	var execErr *engine.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, err.Error(), "no such table")

	require.Eventually(t, func() bool { return len(g.RecentAudit(10)) == 1 }, waitFor, tick)
	ev := g.RecentAudit(1)[0]
	assert.Equal(t, audit.SQLError, ev.Type)
	assert.False(t, ev.Success)
	require.NotNil(t, ev.Subject)
	assert.Equal(t, "analyst", *ev.Subject)
}

func TestExecuteQuery_EmptyText(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)

	assert.True(t, g.ValidateQuery("   ").Accepted)
	_, err := g.ExecuteQuery(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, engine.ErrEmptyQuery)
}

func TestAdmit(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.Quotas{General: 100, Query: 2})

	assert.NoError(t, g.Admit(ratelimit.Query, "k1", "POST /api/query/execute"))
	assert.NoError(t, g.Admit(ratelimit.Query, "k1", "POST /api/query/execute"))
	assert.ErrorIs(t, g.Admit(ratelimit.Query, "k1", "POST /api/query/execute"), ErrRateLimited)

	// denial is audited synchronously
	denied := g.Audit().ByType(audit.RateLimitExceeded)
	require.Len(t, denied, 1)
	assert.Equal(t, "k1", denied[0].Source)
	assert.Equal(t, "query", denied[0].Resource)

	assert.NoError(t, g.Admit(ratelimit.Query, "k2", "POST /api/query/execute"))
	assert.True(t, g.CheckEndpoint(ratelimit.Browse, "k1"))
}

func TestCheckRateLimit(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.Quotas{General: 2})

	assert.True(t, g.CheckRateLimit("K"))
	assert.True(t, g.CheckRateLimit("K"))
	assert.False(t, g.CheckRateLimit("K"))
	assert.True(t, g.CheckRateLimit("K2"))
	assert.True(t, g.CheckRateLimit("K2"))
}

func TestValidateIdentifier(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)
	assert.True(t, g.ValidateIdentifier("user_data"))
	assert.False(t, g.ValidateIdentifier("user-data"))
}

func TestRecordHistoryAndStats(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)

	rows := int64(1)
	g.RecordHistory(history.Succeeded("SELECT 1", 100, &rows))
	g.RecordHistory(history.Succeeded("SELECT 2", 200, &rows))
	g.RecordHistory(history.Failed("SELECT x", 50, "boom"))

	stats := g.HistoryStats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.EqualValues(t, 116, stats.AverageDurationMS)
}

func TestSchemaOperationsAreAudited(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)
	ctx := context.Background()

	_, err := g.CreateTable(ctx, "10.0.0.3", schemaops.CreateTableRequest{
		Schema:    "main",
		TableName: "widgets",
		Columns:   []schemaops.ColumnDefinition{{Name: "id", DataType: "INTEGER"}},
	})
	require.NoError(t, err)

	tables, err := g.Tables(ctx, "main")
	require.NoError(t, err)
	assert.Contains(t, tables, catalog.TableInfo{Name: "widgets", Type: "BASE TABLE"})

	_, err = g.DropObject(ctx, "10.0.0.3", schemaops.DropObjectRequest{Schema: "main", ObjectName: "bad-name", ObjectType: "TABLE"})
	require.Error(t, err)

	events := g.Audit().ByType(audit.SchemaModification)
	require.Len(t, events, 2)
	assert.True(t, events[0].Success)
	assert.Equal(t, "main.widgets", events[0].Resource)
	assert.False(t, events[1].Success)
}

func TestUnavailableComponents(t *testing.T) {
	g := New(Deps{
		Limiters: ratelimit.NewEndpoints(ratelimit.DefaultQuotas),
		History:  history.New(1),
		Audit:    audit.New(1, audit.WithEmitter(func(audit.Event) {})),
	})
	defer g.Close()

	_, err := g.Schemas(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = g.DropDatabase(context.Background(), "x", "db")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestConcurrentExecutionKeepsJournalsBounded(t *testing.T) {
	g, _ := newTestGateway(t, ratelimit.DefaultQuotas)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.9", Query: "SELECT name FROM users"})
		}()
	}
	wg.Wait()
	g.Close()

	assert.Equal(t, int64(20), int64(len(g.History().All()))+g.Dropped())
	res, err := g.Audit().Verify()
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func memEngine(t *testing.T) *engine.Engine {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	return engine.New(conn)
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	stuck := func(audit.Event) { <-release }

	g := New(Deps{
		Engine:    memEngine(t),
		Limiters:  ratelimit.NewEndpoints(ratelimit.DefaultQuotas),
		History:   history.New(100),
		Audit:     audit.New(100, audit.WithEmitter(stuck)),
		QueueSize: 1,
	})
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(func() {
		unblock()
		g.Close()
	})

	const calls = 50
	start := time.Now()
	for i := 0; i < calls; i++ {
		res, err := g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT 1"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.RowCount)
	}
	assert.Less(t, time.Since(start), time.Second, "callers must not wait on bookkeeping")

	// one job held by the consumer, at most one queued
	assert.GreaterOrEqual(t, g.Dropped(), int64(calls-2))

	unblock()
	g.Close()
	assert.LessOrEqual(t, g.History().Count(), 2)
}

func TestFailingJournalsDoNotChangeOutcome(t *testing.T) {
	trail := audit.New(100, audit.WithEmitter(func(audit.Event) {}))
	g := New(Deps{
		Engine:    memEngine(t),
		Limiters:  ratelimit.NewEndpoints(ratelimit.Quotas{General: 100, Query: 1, Browse: 100, Schema: 100}),
		History:   nil, // every append panics
		Audit:     trail,
		QueueSize: 8,
	})
	t.Cleanup(g.Close)

	res, err := g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT 1 AS one"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, res.Columns)

	_, err = g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "DROP TABLE users"})
	var verr *validate.Error
	assert.True(t, errors.As(err, &verr))

	// the audit half of each job still runs after the history half panics
	require.Eventually(t, func() bool { return trail.Count() == 2 }, waitFor, tick)

	broken := New(Deps{
		Engine:    memEngine(t),
		Limiters:  ratelimit.NewEndpoints(ratelimit.Quotas{General: 100, Query: 1, Browse: 100, Schema: 100}),
		QueueSize: 8,
	})
	t.Cleanup(broken.Close)

	res, err = broken.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT 2"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)

	require.NoError(t, broken.Admit(ratelimit.Query, "10.0.0.1", "execute"))
	assert.ErrorIs(t, broken.Admit(ratelimit.Query, "10.0.0.1", "execute"), ErrRateLimited)
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	g := New(Deps{
		Engine:    memEngine(t),
		Limiters:  ratelimit.NewEndpoints(ratelimit.DefaultQuotas),
		History:   history.New(10),
		Audit:     audit.New(10, audit.WithEmitter(func(audit.Event) {})),
		QueueSize: 4,
	})
	g.Close()
	g.Close()

	res, err := g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, int64(1), g.Dropped())
	assert.Zero(t, g.History().Count())
}

func TestDispatcherRecoversPanickingJob(t *testing.T) {
	d := newDispatcher(2)
	ran := make(chan struct{})
	require.True(t, d.submit("boom", func() { panic("boom") }))
	require.True(t, d.submit("after", func() { close(ran) }))
	d.close()

	select {
	case <-ran:
	default:
		t.Fatal("job after a panicking job did not run")
	}
}

func TestExecuteQuery_TagsSensitivity(t *testing.T) {
	dict, err := classify.Parse(strings.NewReader(`
categories:
  PII:
    - regex: "(?i)^email$"
      expected_types: [TEXT]
risk:
  default: low
  base:
    PII: high
`))
	require.NoError(t, err)

	eng := memEngine(t)
	_, err = eng.Exec(context.Background(), `CREATE TABLE patients (id INTEGER, email TEXT)`)
	require.NoError(t, err)
	_, err = eng.Exec(context.Background(), `INSERT INTO patients VALUES (1, 'a@example.com')`)
	require.NoError(t, err)

	g := New(Deps{
		Engine:     eng,
		Limiters:   ratelimit.NewEndpoints(ratelimit.DefaultQuotas),
		History:    history.New(10),
		Audit:      audit.New(10, audit.WithEmitter(func(audit.Event) {})),
		QueueSize:  8,
		Classifier: dict,
	})
	t.Cleanup(g.Close)

	_, err = g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT id, email FROM patients"})
	require.NoError(t, err)
	_, err = g.ExecuteQuery(context.Background(), Request{Source: "10.0.0.1", Query: "SELECT id FROM patients"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(g.Audit().ByType(audit.QueryExecution)) == 2 }, waitFor, tick)
	events := g.Audit().ByType(audit.QueryExecution)
	require.NotNil(t, events[0].Details)
	require.NotNil(t, events[1].Details)
	assert.Contains(t, *events[0].Details, "sensitivity=PII:email risk=high")
	assert.Contains(t, *events[1].Details, "risk=low")
	assert.NotContains(t, *events[1].Details, "sensitivity=")
}
