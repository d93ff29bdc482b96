// Package history keeps a bounded, in-memory record of executed queries for
// re-execution and introspection. Entries are lost on restart.
package history

import (
	"strings"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/journal"
)

// Log is a FIFO window over the most recent entries.
type Log struct {
	ring *journal.Ring[Entry]
}

// New returns a log holding at most capacity entries.
func New(capacity int) *Log {
	return &Log{ring: journal.New[Entry](capacity)}
}

func (l *Log) Append(e Entry) {
	l.ring.Append(e)
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(n int) []Entry { return l.ring.Recent(n) }

// All returns every retained entry in append order.
func (l *Log) All() []Entry { return l.ring.All() }

func (l *Log) ByID(id string) (Entry, bool) {
	return l.ring.Find(func(e Entry) bool { return e.ID == id })
}

// Filter selects entries. Zero fields match everything; set fields are
// combined with AND.
type Filter struct {
	// Text matches entries whose query contains it, ignoring case.
	Text    string
	Success *bool
	// Since keeps entries executed at or after it.
	Since time.Time
}

func (f Filter) matches(e Entry) bool {
	if f.Text != "" && !strings.Contains(strings.ToLower(e.Query), strings.ToLower(f.Text)) {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return f.Since.IsZero() || !e.ExecutedAt.Before(f.Since)
}

// Match returns the entries f selects, in append order.
func (l *Log) Match(f Filter) []Entry {
	return l.ring.Filter(f.matches)
}

// BySubstring returns entries whose query text contains text, ignoring case.
func (l *Log) BySubstring(text string) []Entry {
	return l.Match(Filter{Text: text})
}

func (l *Log) BySuccess(success bool) []Entry {
	return l.Match(Filter{Success: &success})
}

// Since returns entries executed at or after t.
func (l *Log) Since(t time.Time) []Entry {
	return l.Match(Filter{Since: t})
}

func (l *Log) Clear() { l.ring.Clear() }

func (l *Log) Count() int { return l.ring.Len() }

// Capacity is the maximum number of retained entries.
func (l *Log) Capacity() int { return l.ring.Cap() }
