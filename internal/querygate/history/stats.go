package history

// Stats summarizes the retained window.
//
// Fields:
//   - Total, Successful, Failed: entry counts
//   - AverageDurationMS: integer-truncated mean of DurationMS
//   - MostCommonQuery: the query text seen most often; nil when empty
type Stats struct {
	Total             int     `json:"total_queries"`
	Successful        int     `json:"successful_queries"`
	Failed            int     `json:"failed_queries"`
	AverageDurationMS int64   `json:"average_duration_ms"`
	MostCommonQuery   *string `json:"most_common_query"`
}

// Stats computes a summary under a single read lock.
//
// Ties for the most common query go to the text encountered first.
func (l *Log) Stats() Stats {
	var s Stats
	l.ring.Snapshot(func(entries []Entry) {
		s = computeStats(entries)
	})
	return s
}

func computeStats(entries []Entry) Stats {
	s := Stats{Total: len(entries)}
	if s.Total == 0 {
		return s
	}

	var sum int64
	counts := make(map[string]int, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Success {
			s.Successful++
		}
		sum += e.DurationMS
		if _, seen := counts[e.Query]; !seen {
			order = append(order, e.Query)
		}
		counts[e.Query]++
	}
	s.Failed = s.Total - s.Successful
	s.AverageDurationMS = sum / int64(s.Total)

	best := order[0]
	for _, q := range order[1:] {
		// strictly greater keeps the earlier text on ties
		if counts[q] > counts[best] {
			best = q
		}
	}
	s.MostCommonQuery = &best
	return s
}
