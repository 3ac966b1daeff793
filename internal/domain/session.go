package domain

import "time"

// SessionTransitions defines all valid state changes in the session
// lifecycle. Completing a paused session is deliberately absent: a
// session must be resumed before it can complete, so the pause
// bookkeeping is always closed explicitly.
var SessionTransitions = []Transition{
	{Event: EventPause, Src: StatusInProgress, Dst: StatusPaused},
	{Event: EventResume, Src: StatusPaused, Dst: StatusInProgress},
	{Event: EventComplete, Src: StatusInProgress, Dst: StatusCompleted},
	{Event: EventCancel, Src: StatusInProgress, Dst: StatusCancelled},
	{Event: EventCancel, Src: StatusPaused, Dst: StatusCancelled},
}

// Session is the timed, pausable service episode against a claimed ticket.
// It references its ticket and resource by id and never owns them.
type Session struct {
	ID          string
	TenantID    string
	TicketID    string
	QueueID     string
	AgentID     string
	ResourceID  string
	Status      Status
	StartedAt   time.Time
	PausedAt    *time.Time
	PausedFor   time.Duration
	CompletedAt *time.Time
	Rating      int
	Feedback    string
	Version     int64
}

// NewSession creates a session in the "in_progress" state against a
// claimed ticket.
func NewSession(id string, ticket Ticket, agentID, resourceID string, now time.Time) Session {
	return Session{
		ID:         id,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		QueueID:    ticket.QueueID,
		AgentID:    agentID,
		ResourceID: resourceID,
		Status:     StatusInProgress,
		StartedAt:  now,
		Version:    1,
	}
}

// Terminal reports whether the session admits no further transitions.
func (s Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// RecordPause stamps the start of a pause interval.
func (s *Session) RecordPause(now time.Time) {
	t := now
	s.PausedAt = &t
}

// RecordResume folds the open pause interval into the cumulative paused
// duration and clears the pause stamp.
func (s *Session) RecordResume(now time.Time) {
	if s.PausedAt != nil {
		s.PausedFor += now.Sub(*s.PausedAt)
		s.PausedAt = nil
	}
}

// TotalDuration is the wall-clock span from start to completion. Zero
// until the session completes.
func (s Session) TotalDuration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// ActiveDuration is the total duration minus all paused time, so that
// ActiveDuration + PausedFor == TotalDuration holds exactly.
func (s Session) ActiveDuration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.TotalDuration() - s.PausedFor
}

// NoShowReason marks a session cancellation as a customer no-show; the
// ticket then terminates as no_show instead of cancelled.
const NoShowReason = "no_show"
