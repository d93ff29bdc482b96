// Package server exposes the gateway over HTTP with chi.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vaibhaw-/QueryGate/internal/querygate/gateway"
	"github.com/vaibhaw-/QueryGate/internal/querygate/ratelimit"
)

// SubjectHeader carries an optional caller identity recorded on audit
// events. It is informational only and never used for authorization.
const SubjectHeader = "X-QueryGate-Subject"

type Options struct {
	// CORSOrigins lists allowed origins; empty allows any origin.
	CORSOrigins []string
}

type Server struct {
	gw     *gateway.Gateway
	router chi.Router
}

func New(gw *gateway.Gateway, opts Options) *Server {
	s := &Server{gw: gw}
	s.router = s.routes(opts)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(opts Options) chi.Router {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.Recoverer)
	r.Use(accessLog)
	useSecurityHeaders(r)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", SubjectHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/query", func(r chi.Router) {
			r.With(s.limit(ratelimit.Query)).Post("/execute", s.handleExecute)
			r.With(s.limit(ratelimit.Query)).Post("/export", s.handleExport)
			r.With(s.limit(ratelimit.General)).Post("/validate", s.handleValidate)

			r.Group(func(r chi.Router) {
				r.Use(s.limit(ratelimit.Browse))
				r.Get("/history", s.handleHistory)
				r.Delete("/history", s.handleClearHistory)
				r.Get("/history/stats", s.handleHistoryStats)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.limit(ratelimit.General))
			r.Get("/audit", s.handleAudit)
			r.Get("/audit/export", s.handleAuditExport)
			r.Get("/audit/verify", s.handleAuditVerify)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.limit(ratelimit.Schema))
			r.Post("/schema/create-table", s.handleCreateTable)
			r.Post("/schema/drop-object", s.handleDropObject)
			r.Post("/schema/create-index", s.handleCreateIndex)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.limit(ratelimit.Browse))
			r.Get("/schemas", s.handleSchemas)
			r.Get("/schemas/{schema}/tables", s.handleTables)
			r.Get("/schemas/{schema}/tables/{table}/columns", s.handleColumns)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
