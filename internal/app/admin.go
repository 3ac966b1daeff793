package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// AdminService provisions queues and resources and flips their
// operational status. It sits outside the hot dispatch path.
type AdminService struct {
	queues    domain.QueueRepository
	resources domain.ResourceRepository
	clock     domain.Clock
}

// NewAdminService creates an admin service with the given adapters.
func NewAdminService(queues domain.QueueRepository, resources domain.ResourceRepository, clock domain.Clock) *AdminService {
	return &AdminService{
		queues:    queues,
		resources: resources,
		clock:     clock,
	}
}

// CreateQueue provisions an open queue. Capacity zero means unlimited.
func (s *AdminService) CreateQueue(ctx context.Context, tenantID, unitID, name string, capacity int) (domain.Queue, error) {
	if capacity < 0 {
		return domain.Queue{}, fmt.Errorf("negative capacity %d", capacity)
	}

	id, err := generateID()
	if err != nil {
		return domain.Queue{}, fmt.Errorf("generating queue id: %w", err)
	}

	queue := domain.NewQueue(id, tenantID, unitID, name, capacity, s.clock.Now())
	if err := s.queues.Create(ctx, queue); err != nil {
		return domain.Queue{}, fmt.Errorf("creating queue: %w", err)
	}

	return queue, nil
}

// SetQueueStatus opens, pauses, or closes a queue. Tickets already
// waiting are unaffected; only admission and dispatch consult the status.
func (s *AdminService) SetQueueStatus(ctx context.Context, tenantID, queueID string, status domain.QueueStatus) (domain.Queue, error) {
	switch status {
	case domain.QueueOpen, domain.QueuePaused, domain.QueueClosed:
	default:
		return domain.Queue{}, fmt.Errorf("unknown queue status %q", status)
	}

	queue, err := s.queues.Get(ctx, tenantID, queueID)
	if err != nil {
		return domain.Queue{}, err
	}

	queue.Status = status
	queue.UpdatedAt = s.clock.Now()
	if err := s.queues.Update(ctx, queue); err != nil {
		return domain.Queue{}, fmt.Errorf("updating queue: %w", err)
	}

	return queue, nil
}

// CreateResource provisions an available resource.
func (s *AdminService) CreateResource(ctx context.Context, tenantID, unitID, name string) (domain.Resource, error) {
	id, err := generateID()
	if err != nil {
		return domain.Resource{}, fmt.Errorf("generating resource id: %w", err)
	}

	resource := domain.NewResource(id, tenantID, unitID, name)
	if err := s.resources.Create(ctx, resource); err != nil {
		return domain.Resource{}, fmt.Errorf("creating resource: %w", err)
	}

	return resource, nil
}

// SetResourceStatus moves a resource between available, maintenance,
// and out_of_order. Occupied is owned by the session lifecycle and
// cannot be set by hand.
func (s *AdminService) SetResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) (domain.Resource, error) {
	switch status {
	case domain.ResourceAvailable, domain.ResourceMaintenance, domain.ResourceOutOfOrder:
	default:
		return domain.Resource{}, fmt.Errorf("unknown or reserved resource status %q", status)
	}

	resource, err := s.resources.Get(ctx, tenantID, resourceID)
	if err != nil {
		return domain.Resource{}, err
	}

	resource.Status = status
	if err := s.resources.Update(ctx, resource); err != nil {
		return domain.Resource{}, fmt.Errorf("updating resource: %w", err)
	}

	return resource, nil
}
