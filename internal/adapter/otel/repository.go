package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/queueiq/internal/domain"
)

const tracerName = "github.com/neomorfeo/queueiq/internal/adapter/otel"

// TracingTicketRepository wraps a domain.TicketRepository with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and records
// errors. Version conflicts are recorded but not marked as span failures:
// a lost compare-and-set is an expected outcome under contention.
type TracingTicketRepository struct {
	next   domain.TicketRepository
	tracer trace.Tracer
}

// Compile-time check: TracingTicketRepository implements domain.TicketRepository.
var _ domain.TicketRepository = (*TracingTicketRepository)(nil)

// NewTracingTicketRepository creates a tracing decorator around the given repository.
func NewTracingTicketRepository(next domain.TicketRepository) *TracingTicketRepository {
	return &TracingTicketRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingTicketRepository) Create(ctx context.Context, ticket domain.Ticket) error {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.Create",
		trace.WithAttributes(
			attribute.String("tenant.id", ticket.TenantID),
			attribute.String("queue.id", ticket.QueueID),
			attribute.String("ticket.id", ticket.ID),
			attribute.Int64("ticket.number", ticket.Number),
			attribute.String("ticket.priority", string(ticket.Priority)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, ticket)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingTicketRepository) Get(ctx context.Context, tenantID, ticketID string) (domain.Ticket, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.Get",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("ticket.id", ticketID),
		),
	)
	defer span.End()

	ticket, err := r.next.Get(ctx, tenantID, ticketID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return ticket, err
}

func (r *TracingTicketRepository) Update(ctx context.Context, ticket domain.Ticket, expectedVersion int64) error {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.Update",
		trace.WithAttributes(
			attribute.String("tenant.id", ticket.TenantID),
			attribute.String("ticket.id", ticket.ID),
			attribute.String("ticket.status", string(ticket.Status)),
			attribute.Int64("ticket.expected_version", expectedVersion),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, ticket, expectedVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingTicketRepository) ListWaiting(ctx context.Context, tenantID, queueID string) ([]domain.Ticket, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.ListWaiting",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("queue.id", queueID),
		),
	)
	defer span.End()

	tickets, err := r.next.ListWaiting(ctx, tenantID, queueID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(tickets)))
	}
	return tickets, err
}

func (r *TracingTicketRepository) CountWaiting(ctx context.Context, tenantID, queueID string) (int, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.CountWaiting",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("queue.id", queueID),
		),
	)
	defer span.End()

	count, err := r.next.CountWaiting(ctx, tenantID, queueID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", count))
	}
	return count, err
}

func (r *TracingTicketRepository) ActiveForAgent(ctx context.Context, tenantID, agentID string) (domain.Ticket, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.ActiveForAgent",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("agent.id", agentID),
		),
	)
	defer span.End()

	ticket, err := r.next.ActiveForAgent(ctx, tenantID, agentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return ticket, err
}

func (r *TracingTicketRepository) CountActiveAgents(ctx context.Context, tenantID, queueID string) (int, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.CountActiveAgents",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("queue.id", queueID),
		),
	)
	defer span.End()

	count, err := r.next.CountActiveAgents(ctx, tenantID, queueID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", count))
	}
	return count, err
}
