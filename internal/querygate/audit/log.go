// Package audit keeps a bounded, tamper-evident trail of security-relevant
// gateway events: rejected queries, rate-limit denials, SQL errors and
// schema changes.
package audit

import (
	"bytes"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/journal"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Log is a FIFO window over the most recent events. Every recorded event is
// chained to its predecessor, including ones already evicted.
type Log struct {
	ring *journal.Ring[Event]
	// head is only touched inside ring.Update, under the ring's write lock
	head ChainState
	emit func(Event)
}

type Option func(*Log)

// WithEmitter replaces the diagnostic emitter that mirrors each event to the
// process log. fn runs after the event is stored and its panics are
// swallowed.
func WithEmitter(fn func(Event)) Option {
	return func(l *Log) { l.emit = fn }
}

// New returns a log holding at most capacity events.
func New(capacity int, opts ...Option) *Log {
	l := &Log{
		ring: journal.New[Event](capacity),
		head: ChainState{LastHeadHash: ZeroHash},
		emit: emitToLogger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record links e into the chain, stores it and returns the stored copy.
// It never fails: a hashing error leaves the event unchained and is logged.
func (l *Log) Record(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	stored, evicted := l.ring.Update(func(*Event) Event {
		e.HashPrev = l.head.LastHeadHash
		e.ChainIndex = l.head.LastChainIndex + 1
		hash, err := link(e.HashPrev, e)
		if err != nil {
			logger.L().Errorw("audit: chain link failed", "event_id", e.ID, "error", err)
			e.HashPrev, e.ChainIndex = "", 0
			return e
		}
		e.Hash = hash
		l.head = ChainState{LastChainIndex: e.ChainIndex, LastHeadHash: hash}
		return e
	})
	if evicted > 0 {
		logger.L().Debugw("audit: evicted oldest events", "count", evicted)
	}
	l.safeEmit(stored)
	return stored
}

func (l *Log) safeEmit(e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Errorw("audit: emitter panicked", "event_id", e.ID, "panic", r)
		}
	}()
	l.emit(e)
}

func emitToLogger(e Event) {
	logger.L().Warnw("audit event",
		"event_id", e.ID,
		"timestamp", e.Timestamp,
		"event_type", e.Type,
		"source", e.Source,
		"subject", e.Subject,
		"action", e.Action,
		"resource", e.Resource,
		"success", e.Success,
		"details", e.Details,
		"hash_chain_index", e.ChainIndex)
}

// Recent returns up to n events, newest first.
func (l *Log) Recent(n int) []Event { return l.ring.Recent(n) }

// All returns every retained event in record order.
func (l *Log) All() []Event { return l.ring.All() }

// Filter selects events. Zero fields match everything; set fields are
// combined with AND.
type Filter struct {
	Type   EventType
	Source string
	Since  time.Time
}

func (f Filter) matches(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	return f.Since.IsZero() || !e.Timestamp.Before(f.Since)
}

// Match returns the events f selects, in record order.
func (l *Log) Match(f Filter) []Event {
	return l.ring.Filter(f.matches)
}

func (l *Log) ByType(t EventType) []Event {
	return l.Match(Filter{Type: t})
}

// BySource returns events whose source key equals key.
func (l *Log) BySource(key string) []Event {
	return l.Match(Filter{Source: key})
}

func (l *Log) Since(t time.Time) []Event {
	return l.Match(Filter{Since: t})
}

// Clear drops retained events. The chain head is kept so later exports
// still link to earlier ones.
func (l *Log) Clear() { l.ring.Clear() }

func (l *Log) Count() int { return l.ring.Len() }

// Head returns the current chain state.
func (l *Log) Head() ChainState {
	var h ChainState
	l.ring.Snapshot(func([]Event) { h = l.head })
	return h
}

// Verify re-checks the retained window.
func (l *Log) Verify() (VerifyResult, error) {
	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, l.All()); err != nil {
		return VerifyResult{}, err
	}
	return VerifyChain(&buf)
}
