package app

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// emit hands a domain event to the sink after the transition has
// committed. Delivery failures are logged and never surfaced: the
// domain operation already succeeded and must not be rolled back by a
// notification problem.
func emit(ctx context.Context, pub domain.EventPublisher, event domain.DomainEvent) {
	if err := pub.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			"kind", event.Kind,
			"tenant_id", event.TenantID,
			"ticket_id", event.TicketID,
			"error", err,
		)
	}
}
