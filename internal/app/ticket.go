package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// TicketService handles ticket admission and customer-side cancellation.
type TicketService struct {
	queues    domain.QueueRepository
	tickets   domain.TicketRepository
	sessions  domain.SessionRepository
	history   domain.HistoryRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	clock     domain.Clock
	locks     *queueLocks
}

// NewTicketService creates a ticket service with the given adapters. The
// validator must be built from domain.TicketTransitions.
func NewTicketService(
	queues domain.QueueRepository,
	tickets domain.TicketRepository,
	sessions domain.SessionRepository,
	history domain.HistoryRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	clock domain.Clock,
) *TicketService {
	return &TicketService{
		queues:    queues,
		tickets:   tickets,
		sessions:  sessions,
		history:   history,
		publisher: publisher,
		validator: validator,
		clock:     clock,
		locks:     newQueueLocks(),
	}
}

// Create admits a customer into a queue and returns the issued ticket.
// Admissions to the same queue are serialized so the capacity check and
// the sequence draw cannot interleave.
func (s *TicketService) Create(ctx context.Context, tenantID, queueID, serviceID string, priority domain.Priority, customer domain.Customer) (domain.Ticket, error) {
	queue, err := s.queues.Get(ctx, tenantID, queueID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !queue.AcceptsAdmissions() {
		return domain.Ticket{}, &domain.QueueClosedError{QueueID: queue.ID, Status: queue.Status}
	}

	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return domain.Ticket{}, fmt.Errorf("unknown priority %q", priority)
	}

	lock := s.locks.forQueue(tenantID, queueID)
	lock.Lock()
	defer lock.Unlock()

	if queue.Capacity > 0 {
		waiting, err := s.tickets.CountWaiting(ctx, tenantID, queueID)
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("counting waiting tickets: %w", err)
		}
		if waiting >= queue.Capacity {
			return domain.Ticket{}, &domain.QueueAtCapacityError{QueueID: queue.ID, Capacity: queue.Capacity}
		}
	}

	number, err := s.queues.NextNumber(ctx, tenantID, queueID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("drawing ticket number: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("generating ticket id: %w", err)
	}

	ticket := domain.NewTicket(id, tenantID, queueID, serviceID, number, priority, customer, s.clock.Now())

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return domain.Ticket{}, fmt.Errorf("creating ticket: %w", err)
	}

	if err := s.appendHistory(ctx, ticket, "", domain.StatusWaiting, "customer"); err != nil {
		return domain.Ticket{}, err
	}

	emit(ctx, s.publisher, domain.DomainEvent{
		Kind:       domain.KindTicketCreated,
		TenantID:   tenantID,
		QueueID:    queueID,
		TicketID:   ticket.ID,
		Number:     ticket.Number,
		Status:     ticket.Status,
		OccurredAt: ticket.IssuedAt,
	})

	return ticket, nil
}

// Cancel terminates a ticket that has not started service yet. A
// cancellation racing a concurrent claim loses cleanly: whichever
// transition commits first wins and the loser observes the new state.
func (s *TicketService) Cancel(ctx context.Context, tenantID, ticketID, reason string) (domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, tenantID, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}

	// An in-service ticket is owned by its session; cancelling it here
	// would strand the session and its resource.
	if ticket.Status == domain.StatusInProgress {
		sess, err := s.sessions.ActiveForTicket(ctx, tenantID, ticketID)
		switch {
		case err == nil:
			return domain.Ticket{}, &domain.SessionActiveError{TicketID: ticket.ID, SessionID: sess.ID}
		case !errors.Is(err, domain.ErrNotFound):
			return domain.Ticket{}, fmt.Errorf("checking active session: %w", err)
		}
	}

	event := domain.EventCancel
	if reason == domain.NoShowReason && ticket.Status == domain.StatusCalled {
		event = domain.EventNoShow
	}

	next, err := s.validator.Apply(ctx, ticket.Status, event)
	if err != nil {
		return domain.Ticket{}, err
	}

	now := s.clock.Now()
	cancelled := ticket
	cancelled.Status = next
	cancelled.CompletedAt = &now
	cancelled.Version = ticket.Version + 1

	if err := s.tickets.Update(ctx, cancelled, ticket.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			// A concurrent dispatch claimed the ticket first.
			return domain.Ticket{}, &domain.TicketClaimedError{TicketID: ticket.ID}
		}
		return domain.Ticket{}, fmt.Errorf("cancelling ticket: %w", err)
	}

	if err := s.appendHistory(ctx, cancelled, ticket.Status, next, "customer"); err != nil {
		return domain.Ticket{}, err
	}

	emit(ctx, s.publisher, domain.DomainEvent{
		Kind:       domain.KindTicketCancelled,
		TenantID:   tenantID,
		QueueID:    ticket.QueueID,
		TicketID:   ticket.ID,
		Number:     ticket.Number,
		Status:     next,
		Reason:     reason,
		OccurredAt: now,
	})

	return cancelled, nil
}

func (s *TicketService) appendHistory(ctx context.Context, ticket domain.Ticket, from, to domain.Status, actor string) error {
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
		ChangedAt: s.clock.Now(),
	}
	if err := s.history.Append(ctx, change); err != nil {
		return fmt.Errorf("appending status history: %w", err)
	}
	return nil
}
