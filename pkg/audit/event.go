// Package audit provides an append-only audit trail of inbound broker
// operations.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event represents one auditable inbound operation (Reserve, ReserveCommit,
// Provision, Release, Terminate, or Query).
type Event struct {
	ID                string        `json:"id"`
	Timestamp         time.Time     `json:"timestamp"`
	RequesterIdentity string        `json:"requester_identity"`
	ConnectionID      string        `json:"connection_id,omitempty"`
	Network           string        `json:"network,omitempty"`
	Operation         string        `json:"operation"`
	Success           bool          `json:"success"`
	Error             string        `json:"error,omitempty"`
	ExecuteMode       bool          `json:"execute_mode"` // true if cmd/aggnsa's -x was used
	DryRun            bool          `json:"dry_run"`
	Duration          time.Duration `json:"duration"`
	ClientIP          string        `json:"client_ip,omitempty"`
	SessionID         string        `json:"session_id,omitempty"`
}

// EventType categorizes audit events by the operation performed.
type EventType string

const (
	EventTypeReserve       EventType = "reserve"
	EventTypeReserveCommit EventType = "reserve_commit"
	EventTypeProvision     EventType = "provision"
	EventTypeRelease       EventType = "release"
	EventTypeTerminate     EventType = "terminate"
	EventTypeQuery         EventType = "query"
)

// Severity indicates the importance of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Filter defines criteria for querying audit events.
type Filter struct {
	ConnectionID      string
	RequesterIdentity string
	Operation         string
	Network           string
	StartTime         time.Time
	EndTime           time.Time
	SuccessOnly       bool
	FailureOnly       bool
	Limit             int
	Offset            int
}

// NewEvent creates a new audit event.
func NewEvent(requesterIdentity, connectionID, operation string) *Event {
	return &Event{
		ID:                generateID(),
		Timestamp:         time.Now(),
		RequesterIdentity: requesterIdentity,
		ConnectionID:      connectionID,
		Operation:         operation,
	}
}

// WithNetwork sets the network the operation targets.
func (e *Event) WithNetwork(network string) *Event {
	e.Network = network
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used (cmd/aggnsa only; inbound
// RPC operations always execute).
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

func generateID() string {
	return uuid.NewString()
}
