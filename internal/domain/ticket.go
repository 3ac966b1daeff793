package domain

import "time"

// Priority orders tickets within a queue. Higher rank dispatches first.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityVIP    Priority = "vip"
)

// Rank returns the numeric dispatch rank of a priority. Unknown values
// rank below PriorityLow so malformed input never jumps the queue.
func (p Priority) Rank() int {
	switch p {
	case PriorityVIP:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return -1
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Status represents the lifecycle state of a ticket or a session.
// Both state machines share this type; each consults its own
// transition table.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCalled     Status = "called"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventCall     Event = "call"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
	EventNoShow   Event = "no_show"
	EventRequeue  Event = "requeue"
	EventPause    Event = "pause"
	EventResume   Event = "resume"
)

// Transition defines a valid state change: an event moves an entity from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// TicketTransitions defines all valid state changes in the ticket lifecycle.
// This is domain knowledge consumed by the FSM adapter.
var TicketTransitions = []Transition{
	{Event: EventCall, Src: StatusWaiting, Dst: StatusCalled},
	{Event: EventStart, Src: StatusCalled, Dst: StatusInProgress},
	{Event: EventComplete, Src: StatusInProgress, Dst: StatusCompleted},
	{Event: EventCancel, Src: StatusWaiting, Dst: StatusCancelled},
	{Event: EventCancel, Src: StatusCalled, Dst: StatusCancelled},
	{Event: EventCancel, Src: StatusInProgress, Dst: StatusCancelled},
	{Event: EventNoShow, Src: StatusCalled, Dst: StatusNoShow},
	{Event: EventNoShow, Src: StatusInProgress, Dst: StatusNoShow},
	{Event: EventRequeue, Src: StatusCalled, Dst: StatusWaiting},
}

// TerminalTicketStatus reports whether a ticket status admits no further transitions.
func TerminalTicketStatus(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Customer carries the walk-in customer details captured at admission.
type Customer struct {
	Name  string
	Phone string
}

// Ticket is a customer's place in a queue, tracked from admission to a
// terminal state. Tickets are never physically deleted.
type Ticket struct {
	ID          string
	TenantID    string
	QueueID     string
	ServiceID   string
	Number      int64
	Priority    Priority
	Status      Status
	Customer    Customer
	IssuedAt    time.Time
	CalledAt    *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	AgentID     string
	ResourceID  string
	Version     int64
}

// NewTicket creates a ticket in the initial "waiting" state. The caller
// supplies the issue time so admission stays deterministic under an
// injected clock.
func NewTicket(id, tenantID, queueID, serviceID string, number int64, priority Priority, customer Customer, now time.Time) Ticket {
	return Ticket{
		ID:        id,
		TenantID:  tenantID,
		QueueID:   queueID,
		ServiceID: serviceID,
		Number:    number,
		Priority:  priority,
		Status:    StatusWaiting,
		Customer:  customer,
		IssuedAt:  now,
		Version:   1,
	}
}

// Active reports whether the ticket is currently bound to an agent
// (called or in progress). At most one active ticket may exist per agent.
func (t Ticket) Active() bool {
	return t.Status == StatusCalled || t.Status == StatusInProgress
}

// DispatchesBefore reports whether t is served before other under the
// dispatch ordering: higher priority first, then earlier issue time,
// then lower number. The number tie-break makes the order total even
// when two tickets share an issue timestamp.
func (t Ticket) DispatchesBefore(other Ticket) bool {
	if t.Priority.Rank() != other.Priority.Rank() {
		return t.Priority.Rank() > other.Priority.Rank()
	}
	if !t.IssuedAt.Equal(other.IssuedAt) {
		return t.IssuedAt.Before(other.IssuedAt)
	}
	return t.Number < other.Number
}
