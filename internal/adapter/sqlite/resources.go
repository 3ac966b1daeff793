package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// Compile-time checks.
var (
	_ domain.ResourceRepository = (*ResourceRepository)(nil)
	_ domain.HistoryRepository  = (*HistoryRepository)(nil)
)

// ResourceRepository implements domain.ResourceRepository using SQLite.
type ResourceRepository struct {
	db *sql.DB
}

func (r *ResourceRepository) Create(ctx context.Context, res domain.Resource) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (id, tenant_id, unit_id, name, status) VALUES (?, ?, ?, ?, ?)`,
		res.ID, res.TenantID, res.UnitID, res.Name, string(res.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) Get(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	var res domain.Resource
	var status string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, unit_id, name, status FROM resources WHERE tenant_id = ? AND id = ?`,
		tenantID, resourceID,
	).Scan(&res.ID, &res.TenantID, &res.UnitID, &res.Name, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Resource{}, domain.ErrNotFound
		}
		return domain.Resource{}, fmt.Errorf("scanning resource: %w", err)
	}

	res.Status = domain.ResourceStatus(status)
	return res, nil
}

func (r *ResourceRepository) Update(ctx context.Context, res domain.Resource) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE resources SET name = ?, status = ? WHERE tenant_id = ? AND id = ?`,
		res.Name, string(res.Status), res.TenantID, res.ID,
	)
	if err != nil {
		return fmt.Errorf("updating resource: %w", err)
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

// HistoryRepository implements domain.HistoryRepository using SQLite.
// Rows are append-only; there is no update path.
type HistoryRepository struct {
	db *sql.DB
}

func (r *HistoryRepository) Append(ctx context.Context, c domain.StatusChange) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ticket_status_changes (id, tenant_id, ticket_id, from_status, to_status, actor, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.TicketID, string(c.From), string(c.To), c.Actor, formatTime(c.ChangedAt),
	)
	if err != nil {
		return fmt.Errorf("appending status change: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListForTicket(ctx context.Context, tenantID, ticketID string) ([]domain.StatusChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, ticket_id, from_status, to_status, actor, changed_at
		 FROM ticket_status_changes
		 WHERE tenant_id = ? AND ticket_id = ?
		 ORDER BY changed_at ASC`,
		tenantID, ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing status changes: %w", err)
	}
	defer rows.Close()

	var changes []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		var from, to, changedAt string

		if err := rows.Scan(&c.ID, &c.TenantID, &c.TicketID, &from, &to, &c.Actor, &changedAt); err != nil {
			return nil, fmt.Errorf("scanning status change: %w", err)
		}

		c.From = domain.Status(from)
		c.To = domain.Status(to)
		if c.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	return changes, rows.Err()
}
