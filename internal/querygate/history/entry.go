package history

import (
	"time"

	"github.com/google/uuid"
)

// Entry records one execution attempt, including attempts rejected before
// reaching the database.
type Entry struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	ExecutedAt time.Time `json:"executed_at"`
	DurationMS int64     `json:"duration_ms"`
	RowCount   *int64    `json:"row_count"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error"`
}

// Succeeded builds an entry for a query that ran.
func Succeeded(query string, durationMS int64, rowCount *int64) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Query:      query,
		ExecutedAt: time.Now().UTC(),
		DurationMS: durationMS,
		RowCount:   rowCount,
		Success:    true,
	}
}

// Failed builds an entry for a query that was rejected or errored.
func Failed(query string, durationMS int64, errText string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Query:      query,
		ExecutedAt: time.Now().UTC(),
		DurationMS: durationMS,
		Success:    false,
		Error:      &errText,
	}
}
