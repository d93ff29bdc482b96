package ratelimit

import (
	"context"
	"time"
)

// Endpoint names a class of requests with its own quota.
type Endpoint string

const (
	General Endpoint = "general"
	Query   Endpoint = "query"
	Browse  Endpoint = "browse"
	Schema  Endpoint = "schema"
)

// Quotas are per-minute allowances per endpoint class. Zero falls back to
// General.
type Quotas struct {
	General int
	Query   int
	Browse  int
	Schema  int
}

// DefaultQuotas keeps query execution and schema changes tighter than
// browsing.
var DefaultQuotas = Quotas{General: 100, Query: 20, Browse: 100, Schema: 10}

// Endpoints holds one Registry per endpoint class.
type Endpoints struct {
	registries map[Endpoint]*Registry
}

func NewEndpoints(q Quotas, opts ...Option) *Endpoints {
	orGeneral := func(n int) int {
		if n <= 0 {
			return q.General
		}
		return n
	}
	mk := func(e Endpoint, n int) *Registry {
		return New(n, append([]Option{WithName(string(e))}, opts...)...)
	}
	return &Endpoints{registries: map[Endpoint]*Registry{
		General: mk(General, q.General),
		Query:   mk(Query, orGeneral(q.Query)),
		Browse:  mk(Browse, orGeneral(q.Browse)),
		Schema:  mk(Schema, orGeneral(q.Schema)),
	}}
}

// For returns the registry for e, or the general one for unknown names.
func (e *Endpoints) For(name Endpoint) *Registry {
	if r, ok := e.registries[name]; ok {
		return r
	}
	return e.registries[General]
}

// Allow checks key against the registry for name.
func (e *Endpoints) Allow(name Endpoint, key string) bool {
	return e.For(name).Allow(key)
}

// SweepEvery runs Sweep on every registry at interval until ctx is done.
func (e *Endpoints) SweepEvery(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range e.registries {
				r.Sweep(idle)
			}
		}
	}
}
