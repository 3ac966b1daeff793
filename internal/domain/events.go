package domain

import "time"

// EventKind identifies a published domain event.
type EventKind string

const (
	KindTicketCreated    EventKind = "ticket.created"
	KindTicketCalled     EventKind = "ticket.called"
	KindTicketCancelled  EventKind = "ticket.cancelled"
	KindSessionStarted   EventKind = "session.started"
	KindSessionPaused    EventKind = "session.paused"
	KindSessionResumed   EventKind = "session.resumed"
	KindSessionCompleted EventKind = "session.completed"
	KindSessionCancelled EventKind = "session.cancelled"
)

// DomainEvent is the notification handed to the event sink after a state
// transition commits. It carries a snapshot of the identities involved so
// downstream consumers never need to query back into the core.
type DomainEvent struct {
	Kind       EventKind
	TenantID   string
	QueueID    string
	TicketID   string
	SessionID  string
	AgentID    string
	ResourceID string
	Number     int64
	Status     Status
	Reason     string
	OccurredAt time.Time
}
