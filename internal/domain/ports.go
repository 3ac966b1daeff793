package domain

import (
	"context"
	"time"
)

// Clock supplies the current time. Injected so admission and session
// timing stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

// TicketRepository defines the persistence contract for tickets. Every
// read is tenant-scoped; Update is a compare-and-set against the version
// the caller loaded and fails with ErrVersionConflict when a concurrent
// writer committed first.
type TicketRepository interface {
	Create(ctx context.Context, ticket Ticket) error
	Get(ctx context.Context, tenantID, ticketID string) (Ticket, error)
	Update(ctx context.Context, ticket Ticket, expectedVersion int64) error
	// ListWaiting returns the queue's waiting tickets in dispatch order.
	ListWaiting(ctx context.Context, tenantID, queueID string) ([]Ticket, error)
	CountWaiting(ctx context.Context, tenantID, queueID string) (int, error)
	// ActiveForAgent returns the agent's called or in-progress ticket,
	// or ErrNotFound when the agent is idle.
	ActiveForAgent(ctx context.Context, tenantID, agentID string) (Ticket, error)
	// CountActiveAgents counts distinct agents holding an active ticket
	// in the queue.
	CountActiveAgents(ctx context.Context, tenantID, queueID string) (int, error)
}

// QueueRepository defines the persistence contract for queues.
type QueueRepository interface {
	Create(ctx context.Context, queue Queue) error
	Get(ctx context.Context, tenantID, queueID string) (Queue, error)
	Update(ctx context.Context, queue Queue) error
	// NextNumber atomically increments and returns the queue's ticket
	// sequence. Strictly increasing; never hands the same number twice.
	NextNumber(ctx context.Context, tenantID, queueID string) (int64, error)
}

// SessionRepository defines the persistence contract for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	Get(ctx context.Context, tenantID, sessionID string) (Session, error)
	Update(ctx context.Context, session Session, expectedVersion int64) error
	// ActiveForTicket returns the ticket's non-terminal session, or
	// ErrNotFound when none exists.
	ActiveForTicket(ctx context.Context, tenantID, ticketID string) (Session, error)
	// ListRecentCompleted returns up to limit completed sessions for the
	// queue, most recent first. Feeds the wait estimator.
	ListRecentCompleted(ctx context.Context, tenantID, queueID string, limit int) ([]Session, error)
}

// ResourceRepository defines the persistence contract for resources.
type ResourceRepository interface {
	Create(ctx context.Context, resource Resource) error
	Get(ctx context.Context, tenantID, resourceID string) (Resource, error)
	Update(ctx context.Context, resource Resource) error
}

// HistoryRepository records ticket status transitions append-only.
type HistoryRepository interface {
	Append(ctx context.Context, change StatusChange) error
	ListForTicket(ctx context.Context, tenantID, ticketID string) ([]StatusChange, error)
}

// EventPublisher defines the contract for emitting domain events. The
// core hands events off after a transition commits and never fails the
// triggering operation on a publish error.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// TransitionValidator checks whether an event is legal from the current
// state and returns the destination state. One instance is built per
// transition table (ticket machine, session machine).
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
