package auditquery

import (
	"strings"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
)

// Filter reports whether an event should be kept. Filters combine with AND.
type Filter func(audit.Event) bool

// ByType matches any of types.
func ByType(types []audit.EventType) Filter {
	return func(e audit.Event) bool {
		for _, t := range types {
			if e.Type == t {
				return true
			}
		}
		return false
	}
}

// BySource matches the source key exactly.
func BySource(source string) Filter {
	return func(e audit.Event) bool { return e.Source == source }
}

// BySubject matches the acting identity, case-insensitively. Events without
// a subject never match.
func BySubject(subject string) Filter {
	return func(e audit.Event) bool {
		return e.Subject != nil && strings.EqualFold(*e.Subject, subject)
	}
}

// ByResource matches a case-insensitive substring of the resource.
func ByResource(part string) Filter {
	part = strings.ToLower(part)
	return func(e audit.Event) bool {
		return strings.Contains(strings.ToLower(e.Resource), part)
	}
}

// ByOutcome keeps successful or failed events.
func ByOutcome(success bool) Filter {
	return func(e audit.Event) bool { return e.Success == success }
}

// ByTime keeps events at or after since, or within last of now. last takes
// precedence when both are set.
func ByTime(since time.Time, last time.Duration, now time.Time) Filter {
	if last > 0 {
		since = now.Add(-last)
	}
	return func(e audit.Event) bool {
		return since.IsZero() || !e.Timestamp.Before(since)
	}
}

func matchAll(e audit.Event, filters []Filter) bool {
	for _, f := range filters {
		if !f(e) {
			return false
		}
	}
	return true
}
