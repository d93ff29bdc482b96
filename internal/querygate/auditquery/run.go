// Package auditquery filters and summarizes exported audit trails.
package auditquery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Options selects events from one or more NDJSON trails.
type Options struct {
	InputFiles []string

	Types    []audit.EventType
	Source   string
	Subject  string
	Resource string
	// Outcome is "success", "failure" or empty for both.
	Outcome string

	Since time.Time
	Last  time.Duration

	// Summary suppresses event output; the breakdown is written instead.
	Summary bool
	Limit   int
}

func buildFilters(opts Options, now time.Time) ([]Filter, error) {
	var filters []Filter
	if len(opts.Types) > 0 {
		filters = append(filters, ByType(opts.Types))
	}
	if opts.Source != "" {
		filters = append(filters, BySource(opts.Source))
	}
	if opts.Subject != "" {
		filters = append(filters, BySubject(opts.Subject))
	}
	if opts.Resource != "" {
		filters = append(filters, ByResource(opts.Resource))
	}
	switch opts.Outcome {
	case "":
	case "success":
		filters = append(filters, ByOutcome(true))
	case "failure":
		filters = append(filters, ByOutcome(false))
	default:
		return nil, fmt.Errorf("outcome must be success or failure, got %q", opts.Outcome)
	}
	if !opts.Since.IsZero() || opts.Last > 0 {
		filters = append(filters, ByTime(opts.Since, opts.Last, now))
	}
	return filters, nil
}

// Run reads events per opts, writes matches to out as NDJSON, and writes a
// summary to summary when opts.Summary is set.
func Run(ctx context.Context, opts Options, stdin io.Reader, out, summary io.Writer) (*Stats, error) {
	filters, err := buildFilters(opts, time.Now())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats := NewStats()
	var matched []audit.Event
	for res := range ReadEvents(ctx, opts.InputFiles, stdin) {
		if res.Err != nil {
			logger.L().Debugw("auditquery: skipping input", "error", res.Err)
			stats.ErrorEvents++
			continue
		}
		stats.InputEvents++
		if !matchAll(res.Event, filters) {
			continue
		}
		stats.matched(res.Event)
		if !opts.Summary {
			matched = append(matched, res.Event)
		}
		if opts.Limit > 0 && stats.MatchedEvents >= opts.Limit {
			break
		}
	}

	if !opts.Summary {
		if err := audit.WriteNDJSON(out, matched); err != nil {
			return stats, err
		}
	} else {
		stats.PrintSummary(summary)
	}
	return stats, nil
}
