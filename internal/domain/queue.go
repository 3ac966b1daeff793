package domain

import "time"

// QueueStatus represents the admission state of a queue.
type QueueStatus string

const (
	QueueOpen   QueueStatus = "open"
	QueuePaused QueueStatus = "paused"
	QueueClosed QueueStatus = "closed"
)

// Queue is an ordered admission point for tickets tied to a unit.
// Capacity of zero means unlimited concurrently waiting tickets.
type Queue struct {
	ID        string
	TenantID  string
	UnitID    string
	Name      string
	Status    QueueStatus
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewQueue creates an open queue.
func NewQueue(id, tenantID, unitID, name string, capacity int, now time.Time) Queue {
	return Queue{
		ID:        id,
		TenantID:  tenantID,
		UnitID:    unitID,
		Name:      name,
		Status:    QueueOpen,
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AcceptsAdmissions reports whether new tickets may join the queue.
func (q Queue) AcceptsAdmissions() bool {
	return q.Status == QueueOpen
}

// AcceptsDispatch reports whether agents may call tickets from the queue.
// Dispatch is disallowed from paused and closed queues alike.
func (q Queue) AcceptsDispatch() bool {
	return q.Status == QueueOpen
}

// ResourceStatus represents the operational state of a service resource.
type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceOccupied    ResourceStatus = "occupied"
	ResourceMaintenance ResourceStatus = "maintenance"
	ResourceOutOfOrder  ResourceStatus = "out_of_order"
)

// Resource is a counter, room, or piece of equipment a session runs
// against. A resource is occupied by at most one in-progress session.
type Resource struct {
	ID       string
	TenantID string
	UnitID   string
	Name     string
	Status   ResourceStatus
}

// NewResource creates an available resource.
func NewResource(id, tenantID, unitID, name string) Resource {
	return Resource{
		ID:       id,
		TenantID: tenantID,
		UnitID:   unitID,
		Name:     name,
		Status:   ResourceAvailable,
	}
}

// StatusChange is one append-only history row recording a ticket
// transition. Rows are written once and never mutated.
type StatusChange struct {
	ID        string
	TenantID  string
	TicketID  string
	From      Status
	To        Status
	Actor     string
	ChangedAt time.Time
}
