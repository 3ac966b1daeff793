package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/queueiq/internal/app"
	"github.com/neomorfeo/queueiq/internal/domain"
)

// Services bundles the application services the API exposes.
type Services struct {
	Admin     *app.AdminService
	Tickets   *app.TicketService
	Dispatch  *app.Dispatcher
	Sessions  *app.SessionService
	Estimator *app.Estimator
}

// --- Response shapes ---

// QueueResponse is the API representation of a queue.
type QueueResponse struct {
	ID       string `json:"id" doc:"Unique identifier"`
	UnitID   string `json:"unit_id,omitempty" doc:"Owning unit"`
	Name     string `json:"name" doc:"Display name"`
	Status   string `json:"status" doc:"open, paused, or closed"`
	Capacity int    `json:"capacity" doc:"Max waiting tickets (0 = unlimited)"`
}

// TicketResponse is the API representation of a ticket.
type TicketResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	QueueID     string `json:"queue_id" doc:"Owning queue"`
	ServiceID   string `json:"service_id,omitempty" doc:"Requested service"`
	Number      int64  `json:"number" doc:"Per-queue ticket number"`
	Priority    string `json:"priority" doc:"Dispatch priority"`
	Status      string `json:"status" doc:"Lifecycle state"`
	AgentID     string `json:"agent_id,omitempty" doc:"Claiming agent"`
	ResourceID  string `json:"resource_id,omitempty" doc:"Bound resource"`
	IssuedAt    string `json:"issued_at" doc:"Admission timestamp (RFC 3339)"`
	CalledAt    string `json:"called_at,omitempty" doc:"Claim timestamp"`
	CompletedAt string `json:"completed_at,omitempty" doc:"Terminal timestamp"`
}

// SessionResponse is the API representation of a service session.
type SessionResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	TicketID    string `json:"ticket_id" doc:"Served ticket"`
	AgentID     string `json:"agent_id" doc:"Serving agent"`
	ResourceID  string `json:"resource_id,omitempty" doc:"Occupied resource"`
	Status      string `json:"status" doc:"Lifecycle state"`
	StartedAt   string `json:"started_at" doc:"Start timestamp (RFC 3339)"`
	CompletedAt string `json:"completed_at,omitempty" doc:"Terminal timestamp"`
	PausedForMS int64  `json:"paused_for_ms" doc:"Cumulative paused time in milliseconds"`
}

// ResourceResponse is the API representation of a resource.
type ResourceResponse struct {
	ID     string `json:"id" doc:"Unique identifier"`
	UnitID string `json:"unit_id,omitempty" doc:"Owning unit"`
	Name   string `json:"name" doc:"Display name"`
	Status string `json:"status" doc:"Operational state"`
}

// PositionResponse answers a position query for a waiting ticket.
type PositionResponse struct {
	TicketID        string `json:"ticket_id" doc:"Queried ticket"`
	Position        int    `json:"position" doc:"1-based place in dispatch order"`
	EstimatedWaitMS int64  `json:"estimated_wait_ms" doc:"Estimated wait in milliseconds"`
}

// SnapshotResponse is a read-only view of a queue.
type SnapshotResponse struct {
	Queue        QueueResponse    `json:"queue"`
	Waiting      []TicketResponse `json:"waiting" doc:"Waiting tickets in dispatch order"`
	WaitingCount int              `json:"waiting_count"`
	ActiveAgents int              `json:"active_agents"`
}

func toQueueResponse(q domain.Queue) QueueResponse {
	return QueueResponse{
		ID:       q.ID,
		UnitID:   q.UnitID,
		Name:     q.Name,
		Status:   string(q.Status),
		Capacity: q.Capacity,
	}
}

func toTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		QueueID:     t.QueueID,
		ServiceID:   t.ServiceID,
		Number:      t.Number,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		AgentID:     t.AgentID,
		ResourceID:  t.ResourceID,
		IssuedAt:    t.IssuedAt.Format(time.RFC3339),
		CalledAt:    formatOptional(t.CalledAt),
		CompletedAt: formatOptional(t.CompletedAt),
	}
}

func toSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		TicketID:    s.TicketID,
		AgentID:     s.AgentID,
		ResourceID:  s.ResourceID,
		Status:      string(s.Status),
		StartedAt:   s.StartedAt.Format(time.RFC3339),
		CompletedAt: formatOptional(s.CompletedAt),
		PausedForMS: s.PausedFor.Milliseconds(),
	}
}

func toResourceResponse(r domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:     r.ID,
		UnitID: r.UnitID,
		Name:   r.Name,
		Status: string(r.Status),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// --- Inputs/outputs ---

type CreateQueueInput struct {
	Tenant string `path:"tenant" doc:"Tenant ID"`
	Body   struct {
		UnitID   string `json:"unit_id,omitempty" doc:"Owning unit"`
		Name     string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Capacity int    `json:"capacity,omitempty" minimum:"0" doc:"Max waiting tickets (0 = unlimited)"`
	}
}

type CreateQueueOutput struct {
	Body QueueResponse
}

type SetQueueStatusInput struct {
	Tenant  string `path:"tenant" doc:"Tenant ID"`
	QueueID string `path:"queueID" doc:"Queue ID"`
	Body    struct {
		Status string `json:"status" enum:"open,paused,closed" doc:"New queue status"`
	}
}

type SetQueueStatusOutput struct {
	Body QueueResponse
}

type GetQueueInput struct {
	Tenant  string `path:"tenant" doc:"Tenant ID"`
	QueueID string `path:"queueID" doc:"Queue ID"`
}

type GetQueueOutput struct {
	Body SnapshotResponse
}

type CreateResourceInput struct {
	Tenant string `path:"tenant" doc:"Tenant ID"`
	Body   struct {
		UnitID string `json:"unit_id,omitempty" doc:"Owning unit"`
		Name   string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	}
}

type CreateResourceOutput struct {
	Body ResourceResponse
}

type SetResourceStatusInput struct {
	Tenant     string `path:"tenant" doc:"Tenant ID"`
	ResourceID string `path:"resourceID" doc:"Resource ID"`
	Body       struct {
		Status string `json:"status" enum:"available,maintenance,out_of_order" doc:"New resource status"`
	}
}

type SetResourceStatusOutput struct {
	Body ResourceResponse
}

type CreateTicketInput struct {
	Tenant  string `path:"tenant" doc:"Tenant ID"`
	QueueID string `path:"queueID" doc:"Queue ID"`
	Body    struct {
		ServiceID     string `json:"service_id,omitempty" doc:"Requested service"`
		Priority      string `json:"priority,omitempty" enum:"low,normal,high,vip" doc:"Dispatch priority (default normal)"`
		CustomerName  string `json:"customer_name,omitempty" maxLength:"255" doc:"Customer display name"`
		CustomerPhone string `json:"customer_phone,omitempty" maxLength:"32" doc:"Customer phone"`
	}
}

type CreateTicketOutput struct {
	Body TicketResponse
}

type CallNextInput struct {
	Tenant  string `path:"tenant" doc:"Tenant ID"`
	QueueID string `path:"queueID" doc:"Queue ID"`
	Body    struct {
		AgentID    string `json:"agent_id" minLength:"1" doc:"Claiming agent"`
		ResourceID string `json:"resource_id,omitempty" doc:"Resource to bind"`
	}
}

type CallNextOutput struct {
	Body TicketResponse
}

type CancelTicketInput struct {
	Tenant   string `path:"tenant" doc:"Tenant ID"`
	TicketID string `path:"ticketID" doc:"Ticket ID"`
	Body     struct {
		Reason string `json:"reason,omitempty" doc:"Cancellation reason (no_show marks a no-show)"`
	}
}

type CancelTicketOutput struct {
	Body TicketResponse
}

type GetPositionInput struct {
	Tenant   string `path:"tenant" doc:"Tenant ID"`
	TicketID string `path:"ticketID" doc:"Ticket ID"`
}

type GetPositionOutput struct {
	Body PositionResponse
}

type StartSessionInput struct {
	Tenant   string `path:"tenant" doc:"Tenant ID"`
	TicketID string `path:"ticketID" doc:"Ticket ID"`
	Body     struct {
		AgentID    string `json:"agent_id" minLength:"1" doc:"Serving agent (must hold the ticket)"`
		ResourceID string `json:"resource_id,omitempty" doc:"Resource to occupy"`
	}
}

type StartSessionOutput struct {
	Body SessionResponse
}

type PauseSessionInput struct {
	Tenant    string `path:"tenant" doc:"Tenant ID"`
	SessionID string `path:"sessionID" doc:"Session ID"`
	Body      struct {
		Reason string `json:"reason,omitempty" doc:"Pause reason"`
	}
}

type PauseSessionOutput struct {
	Body SessionResponse
}

type ResumeSessionInput struct {
	Tenant    string `path:"tenant" doc:"Tenant ID"`
	SessionID string `path:"sessionID" doc:"Session ID"`
}

type ResumeSessionOutput struct {
	Body SessionResponse
}

type CompleteSessionInput struct {
	Tenant    string `path:"tenant" doc:"Tenant ID"`
	SessionID string `path:"sessionID" doc:"Session ID"`
	Body      struct {
		Rating   int    `json:"rating,omitempty" minimum:"0" maximum:"5" doc:"Customer rating"`
		Feedback string `json:"feedback,omitempty" maxLength:"2000" doc:"Customer feedback"`
	}
}

type CompleteSessionOutput struct {
	Body SessionResponse
}

type CancelSessionInput struct {
	Tenant    string `path:"tenant" doc:"Tenant ID"`
	SessionID string `path:"sessionID" doc:"Session ID"`
	Body      struct {
		Reason string `json:"reason,omitempty" doc:"Cancellation reason (no_show marks a no-show)"`
	}
}

type CancelSessionOutput struct {
	Body SessionResponse
}

// Register adds all queue API routes to the Huma API.
func Register(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "create-queue",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/queues",
		Summary:     "Create a queue",
		Tags:        []string{"Queues"},
	}, func(ctx context.Context, input *CreateQueueInput) (*CreateQueueOutput, error) {
		queue, err := svc.Admin.CreateQueue(ctx, input.Tenant, input.Body.UnitID, input.Body.Name, input.Body.Capacity)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateQueueOutput{Body: toQueueResponse(queue)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-queue-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/queues/{queueID}/status",
		Summary:     "Open, pause, or close a queue",
		Tags:        []string{"Queues"},
	}, func(ctx context.Context, input *SetQueueStatusInput) (*SetQueueStatusOutput, error) {
		queue, err := svc.Admin.SetQueueStatus(ctx, input.Tenant, input.QueueID, domain.QueueStatus(input.Body.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SetQueueStatusOutput{Body: toQueueResponse(queue)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-queue",
		Method:      http.MethodGet,
		Path:        "/api/v1/{tenant}/queues/{queueID}",
		Summary:     "Get a queue snapshot",
		Tags:        []string{"Queues"},
	}, func(ctx context.Context, input *GetQueueInput) (*GetQueueOutput, error) {
		snap, err := svc.Estimator.Snapshot(ctx, input.Tenant, input.QueueID)
		if err != nil {
			return nil, toHumaError(err)
		}
		waiting := make([]TicketResponse, len(snap.Waiting))
		for i, t := range snap.Waiting {
			waiting[i] = toTicketResponse(t)
		}
		return &GetQueueOutput{Body: SnapshotResponse{
			Queue:        toQueueResponse(snap.Queue),
			Waiting:      waiting,
			WaitingCount: snap.WaitingCount,
			ActiveAgents: snap.ActiveAgents,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-resource",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/resources",
		Summary:     "Create a resource",
		Tags:        []string{"Resources"},
	}, func(ctx context.Context, input *CreateResourceInput) (*CreateResourceOutput, error) {
		resource, err := svc.Admin.CreateResource(ctx, input.Tenant, input.Body.UnitID, input.Body.Name)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateResourceOutput{Body: toResourceResponse(resource)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-resource-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/resources/{resourceID}/status",
		Summary:     "Change a resource's operational status",
		Tags:        []string{"Resources"},
	}, func(ctx context.Context, input *SetResourceStatusInput) (*SetResourceStatusOutput, error) {
		resource, err := svc.Admin.SetResourceStatus(ctx, input.Tenant, input.ResourceID, domain.ResourceStatus(input.Body.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SetResourceStatusOutput{Body: toResourceResponse(resource)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-ticket",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/queues/{queueID}/tickets",
		Summary:     "Admit a customer into a queue",
		Tags:        []string{"Tickets"},
	}, func(ctx context.Context, input *CreateTicketInput) (*CreateTicketOutput, error) {
		ticket, err := svc.Tickets.Create(ctx, input.Tenant, input.QueueID, input.Body.ServiceID,
			domain.Priority(input.Body.Priority),
			domain.Customer{Name: input.Body.CustomerName, Phone: input.Body.CustomerPhone})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateTicketOutput{Body: toTicketResponse(ticket)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "call-next",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/queues/{queueID}/call-next",
		Summary:     "Claim the next waiting ticket for an agent",
		Tags:        []string{"Tickets"},
	}, func(ctx context.Context, input *CallNextInput) (*CallNextOutput, error) {
		ticket, err := svc.Dispatch.CallNext(ctx, input.Tenant, input.QueueID, input.Body.AgentID, input.Body.ResourceID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CallNextOutput{Body: toTicketResponse(ticket)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-ticket",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/tickets/{ticketID}/cancel",
		Summary:     "Cancel a ticket that has not started service",
		Tags:        []string{"Tickets"},
	}, func(ctx context.Context, input *CancelTicketInput) (*CancelTicketOutput, error) {
		ticket, err := svc.Tickets.Cancel(ctx, input.Tenant, input.TicketID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CancelTicketOutput{Body: toTicketResponse(ticket)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-position",
		Method:      http.MethodGet,
		Path:        "/api/v1/{tenant}/tickets/{ticketID}/position",
		Summary:     "Get a waiting ticket's queue position and estimated wait",
		Tags:        []string{"Tickets"},
	}, func(ctx context.Context, input *GetPositionInput) (*GetPositionOutput, error) {
		estimate, err := svc.Estimator.Position(ctx, input.Tenant, input.TicketID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetPositionOutput{Body: PositionResponse{
			TicketID:        estimate.TicketID,
			Position:        estimate.Position,
			EstimatedWaitMS: estimate.EstimatedWait.Milliseconds(),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/tickets/{ticketID}/session",
		Summary:     "Start service on a called ticket",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
		session, err := svc.Sessions.Start(ctx, input.Tenant, input.TicketID, input.Body.AgentID, input.Body.ResourceID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StartSessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pause-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/sessions/{sessionID}/pause",
		Summary:     "Pause an in-progress session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *PauseSessionInput) (*PauseSessionOutput, error) {
		session, err := svc.Sessions.Pause(ctx, input.Tenant, input.SessionID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PauseSessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resume-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/sessions/{sessionID}/resume",
		Summary:     "Resume a paused session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ResumeSessionInput) (*ResumeSessionOutput, error) {
		session, err := svc.Sessions.Resume(ctx, input.Tenant, input.SessionID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ResumeSessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/sessions/{sessionID}/complete",
		Summary:     "Complete an in-progress session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *CompleteSessionInput) (*CompleteSessionOutput, error) {
		session, err := svc.Sessions.Complete(ctx, input.Tenant, input.SessionID, input.Body.Rating, input.Body.Feedback)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CompleteSessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/{tenant}/sessions/{sessionID}/cancel",
		Summary:     "Cancel a non-terminal session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *CancelSessionInput) (*CancelSessionOutput, error) {
		session, err := svc.Sessions.Cancel(ctx, input.Tenant, input.SessionID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CancelSessionOutput{Body: toSessionResponse(session)}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound("not found")
	}
	if errors.Is(err, domain.ErrQueueEmpty) {
		return huma.Error404NotFound(err.Error())
	}
	if errors.Is(err, domain.ErrTicketNotWaiting) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var capErr *domain.QueueAtCapacityError
	if errors.As(err, &capErr) {
		return huma.Error409Conflict(capErr.Error())
	}
	var busyErr *domain.AgentBusyError
	if errors.As(err, &busyErr) {
		return huma.Error409Conflict(busyErr.Error())
	}
	var claimedErr *domain.TicketClaimedError
	if errors.As(err, &claimedErr) {
		return huma.Error409Conflict(claimedErr.Error())
	}
	var resErr *domain.ResourceUnavailableError
	if errors.As(err, &resErr) {
		return huma.Error409Conflict(resErr.Error())
	}

	var closedErr *domain.QueueClosedError
	if errors.As(err, &closedErr) {
		return huma.Error422UnprocessableEntity(closedErr.Error())
	}
	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}
	var termErr *domain.TerminalError
	if errors.As(err, &termErr) {
		return huma.Error422UnprocessableEntity(termErr.Error())
	}
	var mismatchErr *domain.AgentMismatchError
	if errors.As(err, &mismatchErr) {
		return huma.Error422UnprocessableEntity(mismatchErr.Error())
	}
	var activeErr *domain.SessionActiveError
	if errors.As(err, &activeErr) {
		return huma.Error422UnprocessableEntity(activeErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
