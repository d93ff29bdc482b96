package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType classifies security-relevant events.
type EventType string

const (
	QueryExecution         EventType = "query_execution"
	AuthenticationAttempt  EventType = "authentication_attempt"
	AuthenticationSuccess  EventType = "authentication_success"
	AuthenticationFailure  EventType = "authentication_failure"
	SchemaModification     EventType = "schema_modification"
	DataModification       EventType = "data_modification"
	RateLimitExceeded      EventType = "rate_limit_exceeded"
	SQLError               EventType = "sql_error"
	DangerousQueryDetected EventType = "dangerous_query_detected"
	AccessDenied           EventType = "access_denied"
	ConfigurationChange    EventType = "configuration_change"
)

// EventTypes lists every EventType.
var EventTypes = []EventType{
	QueryExecution,
	AuthenticationAttempt,
	AuthenticationSuccess,
	AuthenticationFailure,
	SchemaModification,
	DataModification,
	RateLimitExceeded,
	SQLError,
	DangerousQueryDetected,
	AccessDenied,
	ConfigurationChange,
}

// ParseEventType accepts the snake_case name of an event type.
func ParseEventType(s string) (EventType, error) {
	for _, t := range EventTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown audit event type %q", s)
}

// Event is one audit record. Hash, HashPrev and ChainIndex are assigned by
// Log.Record and link the event into the trail's hash chain.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"event_type"`
	Source     string    `json:"source"`
	Subject    *string   `json:"subject"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	Success    bool      `json:"success"`
	Details    *string   `json:"details"`
	HashPrev   string    `json:"hash_prev,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	ChainIndex int       `json:"hash_chain_index,omitempty"`
}

// NewEvent builds a successful event. source is usually the caller address.
func NewEvent(t EventType, source, action, resource string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      t,
		Source:    source,
		Action:    action,
		Resource:  resource,
		Success:   true,
	}
}

func (e Event) WithSuccess(success bool) Event {
	e.Success = success
	return e
}

func (e Event) WithDetails(details string) Event {
	e.Details = &details
	return e
}

// WithSubject sets the acting identity, when one is known.
func (e Event) WithSubject(subject string) Event {
	e.Subject = &subject
	return e
}
