package auditquery

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
)

func trail(t *testing.T) []audit.Event {
	t.Helper()
	l := audit.New(20, audit.WithEmitter(func(audit.Event) {}))
	l.Record(audit.NewEvent(audit.QueryExecution, "10.0.0.1", "SELECT * FROM users", "users").WithSubject("alice"))
	l.Record(audit.NewEvent(audit.SQLError, "10.0.0.1", "SELECT * FROM nope", "nope").WithSuccess(false))
	l.Record(audit.NewEvent(audit.DangerousQueryDetected, "10.0.0.2", "DROP TABLE users", "query").WithSuccess(false))
	l.Record(audit.NewEvent(audit.QueryExecution, "10.0.0.2", "SELECT 1", "orders,users").WithSubject("Bob"))
	return l.All()
}

func ndjson(t *testing.T, events []audit.Event) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, audit.WriteNDJSON(&buf, events))
	return buf.String()
}

func TestFilters(t *testing.T) {
	events := trail(t)
	now := time.Now()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"type", ByType([]audit.EventType{audit.QueryExecution}), 2},
		{"types", ByType([]audit.EventType{audit.SQLError, audit.DangerousQueryDetected}), 2},
		{"source", BySource("10.0.0.2"), 2},
		{"subject case-insensitive", BySubject("bob"), 1},
		{"resource substring", ByResource("USERS"), 2},
		{"failures", ByOutcome(false), 2},
		{"last hour", ByTime(time.Time{}, time.Hour, now), 4},
		{"future since", ByTime(now.Add(time.Hour), 0, now), 0},
		{"last wins over since", ByTime(now.Add(time.Hour), time.Hour, now), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 0
			for _, e := range events {
				if tt.filter(e) {
					n++
				}
			}
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestRun_FiltersAndWritesNDJSON(t *testing.T) {
	in := strings.NewReader(ndjson(t, trail(t)) + "\nnot json\n")
	var out, summary bytes.Buffer

	stats, err := Run(context.Background(), Options{Outcome: "failure"}, in, &out, &summary)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.InputEvents)
	assert.Equal(t, 2, stats.MatchedEvents)
	assert.Equal(t, 1, stats.ErrorEvents)
	assert.Empty(t, summary.String())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"event_type":"sql_error"`)
	assert.Contains(t, lines[1], `"event_type":"dangerous_query_detected"`)
}

func TestRun_MatchedEventsKeepTheirChain(t *testing.T) {
	var out bytes.Buffer
	_, err := Run(context.Background(), Options{}, strings.NewReader(ndjson(t, trail(t))), &out, nil)
	require.NoError(t, err)

	res, err := audit.VerifyChain(&out)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 4, res.Events)
}

func TestRun_SummaryAndLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(ndjson(t, trail(t))), 0o644))

	var out, summary bytes.Buffer
	stats, err := Run(context.Background(), Options{
		InputFiles: []string{path, filepath.Join(t.TempDir(), "missing.ndjson")},
		Summary:    true,
	}, nil, &out, &summary)
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, 1, stats.ErrorEvents)
	assert.Equal(t, 2, stats.Failures)
	assert.Equal(t, 2, stats.ByType["query_execution"])
	assert.Contains(t, summary.String(), "Matched: 4")
	assert.Contains(t, summary.String(), "query_execution: 2")

	stats, err = Run(context.Background(), Options{InputFiles: []string{path}, Limit: 1}, nil, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MatchedEvents)
}

func TestRun_BadOutcome(t *testing.T) {
	_, err := Run(context.Background(), Options{Outcome: "maybe"}, strings.NewReader(""), &bytes.Buffer{}, nil)
	assert.Error(t, err)
}
