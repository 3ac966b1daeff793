package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// Dispatcher selects and claims the next waiting ticket for an agent.
// All CallNext invocations for the same queue funnel through one mutex,
// so claims are granted in strict priority/FIFO order and no caller can
// skip ahead of a higher-priority ticket through race timing. The
// repository compare-and-set backs the claim against transitions that
// bypass the lock, such as a customer cancellation.
type Dispatcher struct {
	queues    domain.QueueRepository
	tickets   domain.TicketRepository
	history   domain.HistoryRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	clock     domain.Clock
	locks     *queueLocks
}

// NewDispatcher creates a dispatcher with the given adapters. The
// validator must be built from domain.TicketTransitions.
func NewDispatcher(
	queues domain.QueueRepository,
	tickets domain.TicketRepository,
	history domain.HistoryRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	clock domain.Clock,
) *Dispatcher {
	return &Dispatcher{
		queues:    queues,
		tickets:   tickets,
		history:   history,
		publisher: publisher,
		validator: validator,
		clock:     clock,
		locks:     newQueueLocks(),
	}
}

// CallNext claims the next waiting ticket in the queue for agentID and
// binds the optional resource. Returns ErrQueueEmpty when no waiting
// ticket exists, QueueClosedError when the queue is paused or closed,
// and AgentBusyError when the agent already holds an active ticket.
func (d *Dispatcher) CallNext(ctx context.Context, tenantID, queueID, agentID, resourceID string) (domain.Ticket, error) {
	queue, err := d.queues.Get(ctx, tenantID, queueID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !queue.AcceptsDispatch() {
		return domain.Ticket{}, &domain.QueueClosedError{QueueID: queue.ID, Status: queue.Status}
	}

	lock := d.locks.forQueue(tenantID, queueID)
	lock.Lock()
	defer lock.Unlock()

	// One active claim per agent, tenant-wide.
	if active, err := d.tickets.ActiveForAgent(ctx, tenantID, agentID); err == nil {
		return domain.Ticket{}, &domain.AgentBusyError{AgentID: agentID, TicketID: active.ID}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Ticket{}, fmt.Errorf("checking agent claim: %w", err)
	}

	waiting, err := d.tickets.ListWaiting(ctx, tenantID, queueID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("listing waiting tickets: %w", err)
	}

	for _, candidate := range waiting {
		next, err := d.validator.Apply(ctx, candidate.Status, domain.EventCall)
		if err != nil {
			return domain.Ticket{}, err
		}

		now := d.clock.Now()
		claimed := candidate
		claimed.Status = next
		claimed.AgentID = agentID
		claimed.ResourceID = resourceID
		claimed.CalledAt = &now
		claimed.Version = candidate.Version + 1

		err = d.tickets.Update(ctx, claimed, candidate.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			// Lost to a concurrent cancel; move to the next candidate.
			continue
		}
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("claiming ticket %s: %w", candidate.ID, err)
		}

		if err := d.appendHistory(ctx, claimed, candidate.Status, next, agentID); err != nil {
			return domain.Ticket{}, err
		}

		emit(ctx, d.publisher, domain.DomainEvent{
			Kind:       domain.KindTicketCalled,
			TenantID:   tenantID,
			QueueID:    queueID,
			TicketID:   claimed.ID,
			AgentID:    agentID,
			ResourceID: resourceID,
			Number:     claimed.Number,
			Status:     claimed.Status,
			OccurredAt: now,
		})

		return claimed, nil
	}

	return domain.Ticket{}, domain.ErrQueueEmpty
}

func (d *Dispatcher) appendHistory(ctx context.Context, ticket domain.Ticket, from, to domain.Status, actor string) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("generating history id: %w", err)
	}
	change := domain.StatusChange{
		ID:        id,
		TenantID:  ticket.TenantID,
		TicketID:  ticket.ID,
		From:      from,
		To:        to,
		Actor:     actor,
		ChangedAt: d.clock.Now(),
	}
	if err := d.history.Append(ctx, change); err != nil {
		return fmt.Errorf("appending status history: %w", err)
	}
	return nil
}
