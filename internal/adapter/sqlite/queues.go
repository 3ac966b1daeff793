package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// Compile-time check: QueueRepository implements domain.QueueRepository.
var _ domain.QueueRepository = (*QueueRepository)(nil)

// QueueRepository implements domain.QueueRepository using SQLite.
type QueueRepository struct {
	db *sql.DB
}

func (r *QueueRepository) Create(ctx context.Context, q domain.Queue) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queues (id, tenant_id, unit_id, name, status, capacity, next_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		q.ID, q.TenantID, q.UnitID, q.Name, string(q.Status), q.Capacity,
		formatTime(q.CreatedAt), formatTime(q.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting queue: %w", err)
	}
	return nil
}

func (r *QueueRepository) Get(ctx context.Context, tenantID, queueID string) (domain.Queue, error) {
	var q domain.Queue
	var status, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, unit_id, name, status, capacity, created_at, updated_at
		 FROM queues WHERE tenant_id = ? AND id = ?`, tenantID, queueID,
	).Scan(&q.ID, &q.TenantID, &q.UnitID, &q.Name, &status, &q.Capacity, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Queue{}, domain.ErrNotFound
		}
		return domain.Queue{}, fmt.Errorf("scanning queue: %w", err)
	}

	q.Status = domain.QueueStatus(status)
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Queue{}, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Queue{}, err
	}

	return q, nil
}

func (r *QueueRepository) Update(ctx context.Context, q domain.Queue) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE queues SET name = ?, status = ?, capacity = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		q.Name, string(q.Status), q.Capacity, formatTime(q.UpdatedAt),
		q.TenantID, q.ID,
	)
	if err != nil {
		return fmt.Errorf("updating queue: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// NextNumber atomically increments the queue's ticket sequence and
// returns the new value. The single UPDATE…RETURNING statement makes
// concurrent admissions draw distinct numbers by construction.
func (r *QueueRepository) NextNumber(ctx context.Context, tenantID, queueID string) (int64, error) {
	var number int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE queues SET next_number = next_number + 1
		 WHERE tenant_id = ? AND id = ? RETURNING next_number`,
		tenantID, queueID,
	).Scan(&number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("drawing queue sequence: %w", err)
	}
	return number, nil
}
