package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries the data needed to process a domain event
// asynchronously. River serializes this as JSON into its job queue
// table. It is a full snapshot of the event, so the worker never needs
// to query back into the core.
type EventJobArgs struct {
	EventKind  string    `json:"kind"`
	TenantID   string    `json:"tenant_id"`
	QueueID    string    `json:"queue_id"`
	TicketID   string    `json:"ticket_id"`
	SessionID  string    `json:"session_id,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	ResourceID string    `json:"resource_id,omitempty"`
	Number     int64     `json:"number"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "queue.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a domain event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		EventKind:  string(event.Kind),
		TenantID:   event.TenantID,
		QueueID:    event.QueueID,
		TicketID:   event.TicketID,
		SessionID:  event.SessionID,
		AgentID:    event.AgentID,
		ResourceID: event.ResourceID,
		Number:     event.Number,
		Status:     string(event.Status),
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt,
	}, &river.InsertOpts{Queue: eventQueue})
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
