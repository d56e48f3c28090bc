// Package audit records the gateway's security-relevant events: logins,
// logouts, denied access, session restores. The backend keeps the
// authoritative audit trail; this is the gateway-side record of what its own
// enforcement layers decided.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"
	EventTypeAuthRegister    EventType = "auth.register"
	EventTypeAuthLogout      EventType = "auth.logout"

	// Session events
	EventTypeSessionRestore EventType = "session.restore"
	EventTypeSessionExpired EventType = "session.expired"

	// Authorization events
	EventTypeAuthzAccessDenied  EventType = "authz.access_denied"
	EventTypeAuthzGuardRedirect EventType = "authz.guard_redirect"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit log entry
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	PrincipalID *uuid.UUID `json:"principal_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`

	// Request context
	Path      string `json:"path,omitempty"`
	RemoteIP  string `json:"remote_ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Message string `json:"message,omitempty"`
}

// NewEvent creates an event with ID and timestamp filled in
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
}

// WithPrincipal attaches the actor
func (e *Event) WithPrincipal(id uuid.UUID, email string, tenantID *uuid.UUID) *Event {
	e.PrincipalID = &id
	e.Email = email
	e.TenantID = tenantID
	return e
}

// WithRequest attaches request context
func (e *Event) WithRequest(path, remoteIP, requestID string) *Event {
	e.Path = path
	e.RemoteIP = remoteIP
	e.RequestID = requestID
	return e
}

// WithMessage attaches a free-form message
func (e *Event) WithMessage(message string) *Event {
	e.Message = message
	return e
}
