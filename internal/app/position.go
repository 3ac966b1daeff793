package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// recentCompletionWindow bounds the moving average of service durations
// used for wait estimation.
const recentCompletionWindow = 20

// fallbackServiceTime is the per-position wait estimate used before the
// queue has any completed sessions to average over.
const fallbackServiceTime = 5 * time.Minute

// PositionEstimate is the answer to a ticket status query: where the
// ticket sits in its queue and how long the wait looks.
type PositionEstimate struct {
	TicketID      string
	Position      int
	EstimatedWait time.Duration
}

// QueueSnapshot is a read-only view of a queue's current state.
type QueueSnapshot struct {
	Queue        domain.Queue
	Waiting      []domain.Ticket
	WaitingCount int
	ActiveAgents int
}

// Estimator computes queue positions and estimated waits. It is a pure
// projection over repository snapshots and never mutates state.
type Estimator struct {
	queues   domain.QueueRepository
	tickets  domain.TicketRepository
	sessions domain.SessionRepository
}

// NewEstimator creates an estimator over the given repositories.
func NewEstimator(queues domain.QueueRepository, tickets domain.TicketRepository, sessions domain.SessionRepository) *Estimator {
	return &Estimator{
		queues:   queues,
		tickets:  tickets,
		sessions: sessions,
	}
}

// Position returns the ticket's place in its queue under the dispatch
// ordering and an estimated wait. Only waiting tickets have a position;
// any other state returns ErrTicketNotWaiting.
func (e *Estimator) Position(ctx context.Context, tenantID, ticketID string) (PositionEstimate, error) {
	ticket, err := e.tickets.Get(ctx, tenantID, ticketID)
	if err != nil {
		return PositionEstimate{}, err
	}
	if ticket.Status != domain.StatusWaiting {
		return PositionEstimate{}, domain.ErrTicketNotWaiting
	}

	waiting, err := e.tickets.ListWaiting(ctx, tenantID, ticket.QueueID)
	if err != nil {
		return PositionEstimate{}, fmt.Errorf("listing waiting tickets: %w", err)
	}

	position := 1
	for _, other := range waiting {
		if other.ID != ticket.ID && other.DispatchesBefore(ticket) {
			position++
		}
	}

	perTicket, err := e.averageServiceTime(ctx, tenantID, ticket.QueueID)
	if err != nil {
		return PositionEstimate{}, err
	}

	agents, err := e.tickets.CountActiveAgents(ctx, tenantID, ticket.QueueID)
	if err != nil {
		return PositionEstimate{}, fmt.Errorf("counting active agents: %w", err)
	}
	if agents < 1 {
		agents = 1
	}

	return PositionEstimate{
		TicketID:      ticket.ID,
		Position:      position,
		EstimatedWait: time.Duration(position) * perTicket / time.Duration(agents),
	}, nil
}

// Snapshot returns the queue's ordered waiting list and counts.
func (e *Estimator) Snapshot(ctx context.Context, tenantID, queueID string) (QueueSnapshot, error) {
	queue, err := e.queues.Get(ctx, tenantID, queueID)
	if err != nil {
		return QueueSnapshot{}, err
	}

	waiting, err := e.tickets.ListWaiting(ctx, tenantID, queueID)
	if err != nil {
		return QueueSnapshot{}, fmt.Errorf("listing waiting tickets: %w", err)
	}

	agents, err := e.tickets.CountActiveAgents(ctx, tenantID, queueID)
	if err != nil {
		return QueueSnapshot{}, fmt.Errorf("counting active agents: %w", err)
	}

	return QueueSnapshot{
		Queue:        queue,
		Waiting:      waiting,
		WaitingCount: len(waiting),
		ActiveAgents: agents,
	}, nil
}

// averageServiceTime returns the mean active duration of the queue's
// recent completed sessions, or the fallback when none exist yet.
func (e *Estimator) averageServiceTime(ctx context.Context, tenantID, queueID string) (time.Duration, error) {
	recent, err := e.sessions.ListRecentCompleted(ctx, tenantID, queueID, recentCompletionWindow)
	if err != nil {
		return 0, fmt.Errorf("listing recent completions: %w", err)
	}
	if len(recent) == 0 {
		return fallbackServiceTime, nil
	}

	var total time.Duration
	for _, session := range recent {
		total += session.ActiveDuration()
	}
	return total / time.Duration(len(recent)), nil
}
