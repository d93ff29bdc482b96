package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/export"
	"github.com/vaibhaw-/QueryGate/internal/querygate/gateway"
	"github.com/vaibhaw-/QueryGate/internal/querygate/history"
	"github.com/vaibhaw-/QueryGate/internal/querygate/inspect"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
	"github.com/vaibhaw-/QueryGate/internal/querygate/schemaops"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

type queryRequest struct {
	Query  string `json:"query"`
	Format string `json:"format,omitempty"`
}

func (s *Server) request(r *http.Request, query string) gateway.Request {
	return gateway.Request{
		Source:  clientIP(r),
		Subject: r.Header.Get(SubjectHeader),
		Query:   query,
	}
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.gw.ExecuteQuery(r.Context(), s.request(r, body.Query))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	inspect.Refs
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	v := s.gw.ValidateQuery(body.Query)
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:  v.Accepted,
		Reason: v.Reason,
		Refs:   inspect.Inspect(body.Query),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	format, err := export.ParseFormat(body.Format)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	res, err := s.gw.ExecuteQuery(r.Context(), s.request(r, body.Query))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="export_%s.%s"`, time.Now().UTC().Format("20060102_150405"), format.Extension()))
	if err := export.Write(w, res, format); err != nil {
		// headers are already out
		logger.L().Warnw("http: export write failed", "format", format, "error", err)
	}
}

// listParams are the shared filters of the history and audit listings.
type listParams struct {
	limit int
	since time.Time
}

func parseListParams(r *http.Request) (listParams, error) {
	p := listParams{limit: defaultLimit}
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return p, badRequest(fmt.Sprintf("invalid limit %q", raw))
		}
		p.limit = min(n, maxLimit)
	}
	if raw := q.Get("since"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return p, badRequest(fmt.Sprintf("invalid since %q: %v", raw, err))
		}
		p.since = t
	}
	return p, nil
}

// newestFirst reverses items and keeps at most limit of them.
func newestFirst[T any](items []T, limit int) []T {
	out := make([]T, 0, min(len(items), limit))
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, items[i])
	}
	return out
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	text := q.Get("q")
	var success *bool
	if raw := q.Get("success"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, badRequest(fmt.Sprintf("invalid success %q", raw)))
			return
		}
		success = &b
	}

	filtered := s.gw.History().Match(history.Filter{Text: text, Success: success, Since: p.since})
	writeJSON(w, http.StatusOK, map[string]any{"history": newestFirst(filtered, p.limit)})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.gw.History().Clear()
	s.gw.RecordAudit(audit.NewEvent(audit.DataModification, clientIP(r), "clear query history", "history"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gw.HistoryStats())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	var typ audit.EventType
	if raw := q.Get("type"); raw != "" {
		if typ, err = audit.ParseEventType(raw); err != nil {
			writeError(w, badRequest(err.Error()))
			return
		}
	}
	source := q.Get("source")

	filtered := s.gw.Audit().Match(audit.Filter{Type: typ, Source: source, Since: p.since})
	writeJSON(w, http.StatusOK, map[string]any{"events": newestFirst(filtered, p.limit)})
}

func (s *Server) handleAuditExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.ndjson"`)
	if err := audit.WriteNDJSON(w, s.gw.Audit().All()); err != nil {
		logger.L().Warnw("http: audit export failed", "error", err)
	}
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, _ *http.Request) {
	res, err := s.gw.Audit().Verify()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req schemaops.CreateTableRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeOutcome(w)(s.gw.CreateTable(r.Context(), clientIP(r), req))
}

func (s *Server) handleDropObject(w http.ResponseWriter, r *http.Request) {
	var req schemaops.DropObjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeOutcome(w)(s.gw.DropObject(r.Context(), clientIP(r), req))
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req schemaops.CreateIndexRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeOutcome(w)(s.gw.CreateIndex(r.Context(), clientIP(r), req))
}

func (s *Server) writeOutcome(w http.ResponseWriter) func(schemaops.Outcome, error) {
	return func(out schemaops.Outcome, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.gw.Schemas(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": schemas})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.gw.Tables(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.gw.Columns(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}
