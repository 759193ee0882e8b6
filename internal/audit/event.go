// Package audit provides the audit trail of key and header operations.
//
// Audit logs are separate from technical logs:
//   - Audit failure = Operation failure
//   - Key IDs are logged, content keys and key seeds never are
//   - All timestamps in UTC
//   - Events are hash chained for tamper evidence
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	// Key events
	EventKeyDerived EventType = "KEY_DERIVED"

	// PSSH events
	EventPSSHBuilt   EventType = "PSSH_BUILT"
	EventPSSHDecoded EventType = "PSSH_DECODED"

	// CPIX events
	EventCPIXWritten EventType = "CPIX_WRITTEN"

	// Remote calls
	EventKeyServerRequest EventType = "KEYSERVER_REQUEST"
	EventAPIRequest       EventType = "API_REQUEST"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// ResultOf maps a success flag to a Result.
func ResultOf(success bool) Result {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user", "service"
	ID   string `json:"id"`             // username or service identifier
	Host string `json:"host,omitempty"` // hostname or remote address
}

// Object represents what was acted upon.
type Object struct {
	Type     string   `json:"type"`                // "key", "pssh", "cpix", "request"
	KeyIDs   []string `json:"key_ids,omitempty"`   // hyphenated key IDs
	SystemID string   `json:"system_id,omitempty"` // DRM system ID
	Path     string   `json:"path,omitempty"`      // file path or request path
}

// Context provides additional details about the operation.
type Context struct {
	System    string `json:"system,omitempty"`     // DRM system name
	Version   int    `json:"version,omitempty"`    // PSSH box version
	Algorithm string `json:"algorithm,omitempty"`  // PlayReady ALGID
	Scheme    string `json:"scheme,omitempty"`     // protection scheme
	ContentID string `json:"content_id,omitempty"` // content identifier
	URL       string `json:"url,omitempty"`        // key server URL
	Method    string `json:"method,omitempty"`     // HTTP method
	Status    int    `json:"status,omitempty"`     // HTTP status
	Reason    string `json:"reason,omitempty"`     // failure reason
}

// Event represents a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // hash of previous event
	Hash      string    `json:"hash"`      // hash of this event
}

// NewEvent creates a new audit event with current timestamp and actor info.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor:     Actor{Type: "user", ID: username, Host: hostname},
		Result:    result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	switch {
	case e.EventType == "":
		return fmt.Errorf("event_type is required")
	case e.Timestamp == "":
		return fmt.Errorf("timestamp is required")
	case e.Actor.Type == "" || e.Actor.ID == "":
		return fmt.Errorf("actor type and id are required")
	case e.Result == "":
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event without its Hash, the input of the hash.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}
	return json.Marshal(eventForHash{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
