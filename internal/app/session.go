package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// SessionService manages the timed service session tied to a claimed
// ticket: start, pause, resume, complete, cancel.
type SessionService struct {
	tickets          domain.TicketRepository
	sessions         domain.SessionRepository
	resources        domain.ResourceRepository
	history          domain.HistoryRepository
	publisher        domain.EventPublisher
	ticketValidator  domain.TransitionValidator
	sessionValidator domain.TransitionValidator
	clock            domain.Clock
}

// NewSessionService creates a session service with the given adapters.
// ticketValidator is built from domain.TicketTransitions and
// sessionValidator from domain.SessionTransitions.
func NewSessionService(
	tickets domain.TicketRepository,
	sessions domain.SessionRepository,
	resources domain.ResourceRepository,
	history domain.HistoryRepository,
	publisher domain.EventPublisher,
	ticketValidator domain.TransitionValidator,
	sessionValidator domain.TransitionValidator,
	clock domain.Clock,
) *SessionService {
	return &SessionService{
		tickets:          tickets,
		sessions:         sessions,
		resources:        resources,
		history:          history,
		publisher:        publisher,
		ticketValidator:  ticketValidator,
		sessionValidator: sessionValidator,
		clock:            clock,
	}
}

// Start begins service on a called ticket. The ticket must be bound to
// agentID and have no other non-terminal session. When a resource is
// given it must be available and becomes occupied.
func (s *SessionService) Start(ctx context.Context, tenantID, ticketID, agentID, resourceID string) (domain.Session, error) {
	ticket, err := s.tickets.Get(ctx, tenantID, ticketID)
	if err != nil {
		return domain.Session{}, err
	}
	if ticket.AgentID != agentID {
		return domain.Session{}, &domain.AgentMismatchError{TicketID: ticketID, AgentID: agentID}
	}
	if _, err := s.sessions.ActiveForTicket(ctx, tenantID, ticketID); err == nil {
		return domain.Session{}, &domain.TransitionError{Event: domain.EventStart, Current: ticket.Status}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("checking active session: %w", err)
	}

	next, err := s.ticketValidator.Apply(ctx, ticket.Status, domain.EventStart)
	if err != nil {
		return domain.Session{}, err
	}

	var resource domain.Resource
	if resourceID != "" {
		resource, err = s.resources.Get(ctx, tenantID, resourceID)
		if err != nil {
			return domain.Session{}, err
		}
		if resource.Status != domain.ResourceAvailable {
			return domain.Session{}, &domain.ResourceUnavailableError{ResourceID: resourceID, Status: resource.Status}
		}
	}

	now := s.clock.Now()
	started := ticket
	started.Status = next
	started.StartedAt = &now
	if resourceID != "" {
		started.ResourceID = resourceID
	}
	started.Version = ticket.Version + 1

	if err := s.tickets.Update(ctx, started, ticket.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return domain.Session{}, &domain.TicketClaimedError{TicketID: ticketID}
		}
		return domain.Session{}, fmt.Errorf("starting ticket: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generating session id: %w", err)
	}
	session := domain.NewSession(id, started, agentID, started.ResourceID, now)
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("creating session: %w", err)
	}

	if resourceID != "" {
		resource.Status = domain.ResourceOccupied
		if err := s.resources.Update(ctx, resource); err != nil {
			return domain.Session{}, fmt.Errorf("occupying resource: %w", err)
		}
	}

	if err := s.appendHistory(ctx, started, ticket.Status, next, agentID); err != nil {
		return domain.Session{}, err
	}

	s.emitSession(ctx, domain.KindSessionStarted, session, "", now)

	return session, nil
}

// Pause suspends an in-progress session.
func (s *SessionService) Pause(ctx context.Context, tenantID, sessionID, reason string) (domain.Session, error) {
	session, err := s.loadNonTerminal(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	next, err := s.sessionValidator.Apply(ctx, session.Status, domain.EventPause)
	if err != nil {
		return domain.Session{}, err
	}

	now := s.clock.Now()
	paused := session
	paused.Status = next
	paused.RecordPause(now)
	paused.Version = session.Version + 1

	if err := s.sessions.Update(ctx, paused, session.Version); err != nil {
		return domain.Session{}, fmt.Errorf("pausing session: %w", err)
	}

	if err := s.appendSessionHistory(ctx, paused, session.Status, next); err != nil {
		return domain.Session{}, err
	}

	s.emitSession(ctx, domain.KindSessionPaused, paused, reason, now)

	return paused, nil
}

// Resume continues a paused session, folding the open pause interval
// into the cumulative paused duration.
func (s *SessionService) Resume(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	session, err := s.loadNonTerminal(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	next, err := s.sessionValidator.Apply(ctx, session.Status, domain.EventResume)
	if err != nil {
		return domain.Session{}, err
	}

	now := s.clock.Now()
	resumed := session
	resumed.Status = next
	resumed.RecordResume(now)
	resumed.Version = session.Version + 1

	if err := s.sessions.Update(ctx, resumed, session.Version); err != nil {
		return domain.Session{}, fmt.Errorf("resuming session: %w", err)
	}

	if err := s.appendSessionHistory(ctx, resumed, session.Status, next); err != nil {
		return domain.Session{}, err
	}

	s.emitSession(ctx, domain.KindSessionResumed, resumed, "", now)

	return resumed, nil
}

// Complete finishes an in-progress session. A paused session must be
// resumed first. Completing an already-terminal session returns
// TerminalError and mutates nothing.
func (s *SessionService) Complete(ctx context.Context, tenantID, sessionID string, rating int, feedback string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Terminal() {
		return domain.Session{}, &domain.TerminalError{SessionID: sessionID, Status: session.Status}
	}

	next, err := s.sessionValidator.Apply(ctx, session.Status, domain.EventComplete)
	if err != nil {
		return domain.Session{}, err
	}

	now := s.clock.Now()
	completed := session
	completed.Status = next
	completed.CompletedAt = &now
	completed.Rating = rating
	completed.Feedback = feedback
	completed.Version = session.Version + 1

	if err := s.sessions.Update(ctx, completed, session.Version); err != nil {
		return domain.Session{}, fmt.Errorf("completing session: %w", err)
	}

	if err := s.finishTicket(ctx, tenantID, completed, domain.EventComplete, now); err != nil {
		return domain.Session{}, err
	}

	if err := s.releaseResource(ctx, tenantID, completed.ResourceID); err != nil {
		return domain.Session{}, err
	}

	s.emitSession(ctx, domain.KindSessionCompleted, completed, "", now)

	return completed, nil
}

// Cancel terminates a non-terminal session. The ticket ends cancelled,
// or no_show when the reason marks a customer no-show.
func (s *SessionService) Cancel(ctx context.Context, tenantID, sessionID, reason string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Terminal() {
		return domain.Session{}, &domain.TerminalError{SessionID: sessionID, Status: session.Status}
	}

	next, err := s.sessionValidator.Apply(ctx, session.Status, domain.EventCancel)
	if err != nil {
		return domain.Session{}, err
	}

	now := s.clock.Now()
	cancelled := session
	cancelled.Status = next
	cancelled.RecordResume(now) // close any open pause interval before the terminal stamp
	cancelled.CompletedAt = &now
	cancelled.Version = session.Version + 1

	if err := s.sessions.Update(ctx, cancelled, session.Version); err != nil {
		return domain.Session{}, fmt.Errorf("cancelling session: %w", err)
	}

	ticketEvent := domain.EventCancel
	if reason == domain.NoShowReason {
		ticketEvent = domain.EventNoShow
	}
	if err := s.finishTicket(ctx, tenantID, cancelled, ticketEvent, now); err != nil {
		return domain.Session{}, err
	}

	if err := s.releaseResource(ctx, tenantID, cancelled.ResourceID); err != nil {
		return domain.Session{}, err
	}

	s.emitSession(ctx, domain.KindSessionCancelled, cancelled, reason, now)

	return cancelled, nil
}

func (s *SessionService) loadNonTerminal(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Terminal() {
		return domain.Session{}, &domain.TerminalError{SessionID: sessionID, Status: session.Status}
	}
	return session, nil
}

// finishTicket moves the session's ticket to its terminal state.
func (s *SessionService) finishTicket(ctx context.Context, tenantID string, session domain.Session, event domain.Event, now time.Time) error {
	ticket, err := s.tickets.Get(ctx, tenantID, session.TicketID)
	if err != nil {
		return fmt.Errorf("loading ticket %s: %w", session.TicketID, err)
	}

	next, err := s.ticketValidator.Apply(ctx, ticket.Status, event)
	if err != nil {
		return err
	}

	finished := ticket
	finished.Status = next
	finished.CompletedAt = &now
	finished.Version = ticket.Version + 1

	if err := s.tickets.Update(ctx, finished, ticket.Version); err != nil {
		return fmt.Errorf("finishing ticket %s: %w", ticket.ID, err)
	}

	return s.appendHistory(ctx, finished, ticket.Status, next, session.AgentID)
}

// releaseResource returns the session's resource to the available pool.
func (s *SessionService) releaseResource(ctx context.Context, tenantID, resourceID string) error {
	if resourceID == "" {
		return nil
	}
	resource, err := s.resources.Get(ctx, tenantID, resourceID)
	if err != nil {
		return fmt.Errorf("loading resource %s: %w", resourceID, err)
	}
	resource.Status = domain.ResourceAvailable
	if err := s.resources.Update(ctx, resource); err != nil {
		return fmt.Errorf("releasing resource %s: %w", resourceID, err)
	}
	return nil
}

func (s *SessionService) appendHistory(ctx context.Context, ticket domain.Ticket, from, to domain.Status, actor string) error {
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

// appendSessionHistory records a session state change against the ticket
// so the history log shows the full service timeline.
func (s *SessionService) appendSessionHistory(ctx context.Context, session domain.Session, from, to domain.Status) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("generating history id: %w", err)
	}
	change := domain.StatusChange{
		ID:        id,
		TenantID:  session.TenantID,
		TicketID:  session.TicketID,
		From:      from,
		To:        to,
		Actor:     session.AgentID,
		ChangedAt: s.clock.Now(),
	}
	if err := s.history.Append(ctx, change); err != nil {
		return fmt.Errorf("appending status history: %w", err)
	}
	return nil
}

func (s *SessionService) emitSession(ctx context.Context, kind domain.EventKind, session domain.Session, reason string, now time.Time) {
	emit(ctx, s.publisher, domain.DomainEvent{
		Kind:       kind,
		TenantID:   session.TenantID,
		QueueID:    session.QueueID,
		TicketID:   session.TicketID,
		SessionID:  session.ID,
		AgentID:    session.AgentID,
		ResourceID: session.ResourceID,
		Status:     session.Status,
		Reason:     reason,
		OccurredAt: now,
	})
}
