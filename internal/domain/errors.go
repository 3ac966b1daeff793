package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	// ErrNotFound covers both unknown entities and cross-tenant access;
	// a caller can never tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrQueueEmpty is returned by dispatch when no waiting ticket exists.
	ErrQueueEmpty = errors.New("queue has no waiting tickets")

	// ErrVersionConflict is returned by a repository compare-and-set when
	// another writer committed first.
	ErrVersionConflict = errors.New("version conflict")

	// ErrTicketNotWaiting is returned by position queries against a
	// ticket that has already left the waiting state.
	ErrTicketNotWaiting = errors.New("ticket is not waiting")
)

// AgentMismatchError is returned when a session operation is attempted
// by an agent the ticket is not bound to.
type AgentMismatchError struct {
	TicketID string
	AgentID  string
}

func (e *AgentMismatchError) Error() string {
	return fmt.Sprintf("ticket %q is not bound to agent %q", e.TicketID, e.AgentID)
}

// ResourceUnavailableError is returned when a session start names a
// resource that is not available.
type ResourceUnavailableError struct {
	ResourceID string
	Status     ResourceStatus
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("resource %q is %s", e.ResourceID, e.Status)
}

// QueueClosedError is returned when an operation requires an open queue.
type QueueClosedError struct {
	QueueID string
	Status  QueueStatus
}

func (e *QueueClosedError) Error() string {
	return fmt.Sprintf("queue %q is %s", e.QueueID, e.Status)
}

// QueueAtCapacityError is returned when admission would exceed the
// queue's configured capacity.
type QueueAtCapacityError struct {
	QueueID  string
	Capacity int
}

func (e *QueueAtCapacityError) Error() string {
	return fmt.Sprintf("queue %q is at capacity (%d waiting)", e.QueueID, e.Capacity)
}

// AgentBusyError is returned when an agent already holds an active ticket.
type AgentBusyError struct {
	AgentID  string
	TicketID string
}

func (e *AgentBusyError) Error() string {
	return fmt.Sprintf("agent %q already holds ticket %q", e.AgentID, e.TicketID)
}

// TicketClaimedError is returned when a specifically targeted ticket was
// claimed by a concurrent caller first.
type TicketClaimedError struct {
	TicketID string
}

func (e *TicketClaimedError) Error() string {
	return fmt.Sprintf("ticket %q was already claimed", e.TicketID)
}

// SessionActiveError is returned when a ticket operation requires that
// no live session exists for the ticket. The session owns the teardown;
// callers must cancel the session instead.
type SessionActiveError struct {
	TicketID  string
	SessionID string
}

func (e *SessionActiveError) Error() string {
	return fmt.Sprintf("ticket %q is in service under session %q", e.TicketID, e.SessionID)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// TerminalError is returned when an operation targets a session that has
// already reached a terminal state.
type TerminalError struct {
	SessionID string
	Status    Status
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("session %q is already %s", e.SessionID, e.Status)
}
