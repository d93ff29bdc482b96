// Package gateway composes admission control, rate limiting, execution and
// the history and audit journals into the operations served over HTTP.
//
// Outcome bookkeeping for executed queries is handed to a background
// consumer: a history entry or audit event may become visible after the
// caller already has its response.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/catalog"
	"github.com/vaibhaw-/QueryGate/internal/querygate/classify"
	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/history"
	"github.com/vaibhaw-/QueryGate/internal/querygate/inspect"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
	"github.com/vaibhaw-/QueryGate/internal/querygate/ratelimit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/schemaops"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

// ErrRateLimited is returned by Admit when the caller's quota is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// Executor runs an admitted query. *engine.Engine satisfies it.
type Executor interface {
	Execute(ctx context.Context, query string) (*engine.Result, error)
}

// Deps are the shared components a Gateway is built from. Engine, Limiters,
// History and Audit are required; Schema and Catalog may be nil when
// structural operations are not served.
type Deps struct {
	Engine    Executor
	Limiters  *ratelimit.Endpoints
	History   *history.Log
	Audit     *audit.Log
	Schema    *schemaops.Service
	Catalog   *catalog.Catalog
	QueueSize int
	// Classifier tags successful executions with sensitivity and risk.
	// Nil disables tagging.
	Classifier *classify.Dictionary
}

// Request is one query submission.
type Request struct {
	// Source is the caller key, typically the client IP.
	Source  string
	Subject string
	Query   string
}

type Gateway struct {
	engine   Executor
	limiters *ratelimit.Endpoints
	history  *history.Log
	audit    *audit.Log
	schema   *schemaops.Service
	catalog  *catalog.Catalog
	classify *classify.Dictionary
	bg       *dispatcher
	now      func() time.Time
}

func New(deps Deps) *Gateway {
	return &Gateway{
		engine:   deps.Engine,
		limiters: deps.Limiters,
		history:  deps.History,
		audit:    deps.Audit,
		schema:   deps.Schema,
		catalog:  deps.Catalog,
		classify: deps.Classifier,
		bg:       newDispatcher(deps.QueueSize),
		now:      time.Now,
	}
}

// Close drains pending bookkeeping. Later submissions are dropped.
func (g *Gateway) Close() {
	g.bg.close()
}

// Dropped is the number of bookkeeping jobs lost to a full queue.
func (g *Gateway) Dropped() int64 { return g.bg.dropped.Load() }

func (g *Gateway) ValidateQuery(text string) validate.Verdict {
	return validate.ValidateQuery(text)
}

func (g *Gateway) ValidateIdentifier(name string) bool {
	return validate.IsIdentifier(name)
}

// CheckRateLimit consumes a token from key's general bucket.
func (g *Gateway) CheckRateLimit(key string) bool {
	return g.limiters.Allow(ratelimit.General, key)
}

func (g *Gateway) CheckEndpoint(endpoint ratelimit.Endpoint, key string) bool {
	return g.limiters.Allow(endpoint, key)
}

// Admit checks key against endpoint's quota. A denial is audited before
// ErrRateLimited is returned.
func (g *Gateway) Admit(endpoint ratelimit.Endpoint, key, action string) error {
	if g.limiters.Allow(endpoint, key) {
		return nil
	}
	g.RecordAudit(audit.NewEvent(audit.RateLimitExceeded, key, action, string(endpoint)).
		WithSuccess(false).
		WithDetails(fmt.Sprintf("%s quota of %d requests per minute exhausted", endpoint, g.limiters.For(endpoint).Quota())))
	return ErrRateLimited
}

// ExecuteQuery admits, runs and marshals req.Query.
//
// A rejection returns *validate.Error, a database failure
// *engine.ExecutionError. Either way a history entry and an audit event are
// queued; bookkeeping never changes the returned outcome.
func (g *Gateway) ExecuteQuery(ctx context.Context, req Request) (*engine.Result, error) {
	verdict := validate.ValidateQuery(req.Query)
	if !verdict.Accepted {
		logger.L().Infow("gateway: query rejected", "source", req.Source, "reason", verdict.Reason)
		g.dispatch(history.Failed(req.Query, 0, verdict.Reason),
			g.event(audit.DangerousQueryDetected, req).WithSuccess(false).WithDetails(verdict.Reason))
		return nil, verdict.Err()
	}

	start := g.now()
	res, err := g.engine.Execute(ctx, req.Query)
	if err != nil {
		elapsed := g.now().Sub(start).Milliseconds()
		logger.L().Infow("gateway: query failed", "source", req.Source, "duration_ms", elapsed, "error", err)
		g.dispatch(history.Failed(req.Query, elapsed, err.Error()),
			g.event(audit.SQLError, req).WithSuccess(false).WithDetails(err.Error()))
		return nil, err
	}

	elapsed := g.now().Sub(start).Milliseconds()
	if res.ExecutionTimeMS != nil {
		elapsed = *res.ExecutionTimeMS
	}
	rows := int64(res.RowCount)
	details := fmt.Sprintf("%d rows in %dms", rows, elapsed)
	if g.classify != nil {
		details += " " + g.classify.Classify(res.Columns, res.ColumnTypes).String()
	}
	g.dispatch(history.Succeeded(req.Query, elapsed, &rows),
		g.event(audit.QueryExecution, req).WithDetails(details))
	return res, nil
}

// event builds an audit event describing req. The resource names the
// tables the text references, or "query" when none are found.
func (g *Gateway) event(t audit.EventType, req Request) audit.Event {
	resource := "query"
	if tables := inspect.Tables(req.Query); len(tables) > 0 {
		resource = strings.Join(tables, ",")
	}
	e := audit.NewEvent(t, req.Source, req.Query, resource)
	if req.Subject != "" {
		e = e.WithSubject(req.Subject)
	}
	return e
}

func (g *Gateway) dispatch(entry history.Entry, ev audit.Event) {
	g.bg.submit("record_outcome", func() {
		g.RecordHistory(entry)
		g.RecordAudit(ev)
	})
}

// RecordHistory appends entry. Failures are logged, never returned.
func (g *Gateway) RecordHistory(entry history.Entry) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Errorw("gateway: history append failed", "entry_id", entry.ID, "panic", r)
		}
	}()
	g.history.Append(entry)
}

// RecordAudit appends ev. Failures are logged, never returned.
func (g *Gateway) RecordAudit(ev audit.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Errorw("gateway: audit append failed", "event_id", ev.ID, "panic", r)
		}
	}()
	g.audit.Record(ev)
}

func (g *Gateway) RecentHistory(n int) []history.Entry { return g.history.Recent(n) }

func (g *Gateway) HistoryStats() history.Stats { return g.history.Stats() }

func (g *Gateway) RecentAudit(n int) []audit.Event { return g.audit.Recent(n) }

// History exposes the history journal for filtered reads.
func (g *Gateway) History() *history.Log { return g.history }

// Audit exposes the audit journal for filtered reads and export.
func (g *Gateway) Audit() *audit.Log { return g.audit }
