package ratelimit

import (
	"sync"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Registry maps caller keys to token buckets that share one quota.
// Exhausting one key never affects another.
type Registry struct {
	name      string
	perMinute int
	now       func() time.Time

	mu      sync.RWMutex
	buckets map[string]*Bucket
}

type Option func(*Registry)

// WithClock overrides the time source used for refills.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithName labels the registry in log output.
func WithName(name string) Option {
	return func(r *Registry) { r.name = name }
}

// New returns a registry allowing perMinute requests per key per minute.
// Non-positive quotas are raised to 1.
func New(perMinute int, opts ...Option) *Registry {
	if perMinute <= 0 {
		perMinute = 1
	}
	r := &Registry{
		name:      "general",
		perMinute: perMinute,
		now:       time.Now,
		buckets:   make(map[string]*Bucket),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow consumes a token from key's bucket, creating the bucket on first
// use. It returns immediately; false means the quota is exhausted.
func (r *Registry) Allow(key string) bool {
	now := r.now()
	allowed := r.bucket(key).take(now)
	if !allowed {
		logger.L().Debugw("ratelimit: denied", "registry", r.name, "key", key)
	}
	return allowed
}

func (r *Registry) bucket(key string) *Bucket {
	r.mu.RLock()
	b, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another goroutine may have inserted it between the two locks
	if b, ok := r.buckets[key]; ok {
		return b
	}
	b = newBucket(key, r.perMinute, r.now)
	r.buckets[key] = b
	return b
}

// Quota is the per-minute allowance of every bucket in the registry.
func (r *Registry) Quota() int { return r.perMinute }

// Bucket returns the bucket for key, if one exists.
func (r *Registry) Bucket(key string) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[key]
	return b, ok
}

// Reset forgets key's bucket; its next request starts with a full quota.
func (r *Registry) Reset(key string) {
	r.mu.Lock()
	delete(r.buckets, key)
	r.mu.Unlock()
}

// Len is the number of tracked keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}

// Sweep drops buckets not checked within idle and returns how many were
// removed. A dropped key comes back with a full bucket.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, b := range r.buckets {
		if b.LastSeen().Before(cutoff) {
			delete(r.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		logger.L().Debugw("ratelimit: swept idle buckets", "registry", r.name, "removed", removed)
	}
	return removed
}
