package auditquery

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
)

// Stats summarizes a query over an audit trail.
type Stats struct {
	InputEvents   int            `json:"total_events_processed"`
	MatchedEvents int            `json:"matched_events"`
	ErrorEvents   int            `json:"error_events"`
	Failures      int            `json:"failures"`
	ByType        map[string]int `json:"by_type"`
	BySource      map[string]int `json:"by_source"`
	First         *time.Time     `json:"first,omitempty"`
	Last          *time.Time     `json:"last,omitempty"`
}

func NewStats() *Stats {
	return &Stats{ByType: map[string]int{}, BySource: map[string]int{}}
}

func (s *Stats) matched(e audit.Event) {
	s.MatchedEvents++
	s.ByType[string(e.Type)]++
	s.BySource[e.Source]++
	if !e.Success {
		s.Failures++
	}
	ts := e.Timestamp
	if s.First == nil || ts.Before(*s.First) {
		s.First = &ts
	}
	if s.Last == nil || ts.After(*s.Last) {
		s.Last = &ts
	}
}

// PrintSummary writes a human-readable breakdown. Counts are sorted
// descending, ties by name.
func (s *Stats) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Total events processed: %d\n", s.InputEvents)
	if s.First != nil && s.Last != nil {
		fmt.Fprintf(w, "  Time range: %s to %s\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Matched: %d\n", s.MatchedEvents)
	fmt.Fprintf(w, "  Failures: %d\n", s.Failures)
	if s.ErrorEvents > 0 {
		fmt.Fprintf(w, "  Unreadable lines: %d\n", s.ErrorEvents)
	}
	if len(s.ByType) > 0 {
		fmt.Fprintf(w, "\n  By event type:\n")
		printSorted(w, s.ByType)
	}
	if len(s.BySource) > 0 {
		fmt.Fprintf(w, "\n  By source:\n")
		printSorted(w, s.BySource)
	}
}

func printSorted(w io.Writer, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] == m[keys[j]] {
			return keys[i] < keys[j]
		}
		return m[keys[i]] > m[keys[j]]
	})
	for _, k := range keys {
		fmt.Fprintf(w, "    %s: %d\n", k, m[k])
	}
}
