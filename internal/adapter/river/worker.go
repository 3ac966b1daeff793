package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// EventWorker processes queue event jobs from the River queue. For now
// it logs the event; future versions will feed display boards, SMS
// notifications, and analytics export.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing queue event",
		"kind", job.Args.EventKind,
		"tenant_id", job.Args.TenantID,
		"queue_id", job.Args.QueueID,
		"ticket_id", job.Args.TicketID,
		"number", job.Args.Number,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
