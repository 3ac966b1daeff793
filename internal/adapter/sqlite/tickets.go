package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// Compile-time check: TicketRepository implements domain.TicketRepository.
var _ domain.TicketRepository = (*TicketRepository)(nil)

// TicketRepository implements domain.TicketRepository using SQLite.
// Updates are compare-and-set against the version column, so concurrent
// claim and cancel transitions serialize at the database.
type TicketRepository struct {
	db *sql.DB
}

const ticketColumns = `id, tenant_id, queue_id, service_id, number, priority, status,
	customer_name, customer_phone, issued_at, called_at, started_at, completed_at,
	agent_id, resource_id, version`

// waitingOrder sorts by dispatch rank: priority first, then issue time,
// then ticket number. Must match domain.Ticket.DispatchesBefore.
const waitingOrder = `ORDER BY CASE priority
		WHEN 'vip' THEN 3 WHEN 'high' THEN 2 WHEN 'normal' THEN 1 ELSE 0 END DESC,
	issued_at ASC, number ASC`

func (r *TicketRepository) Create(ctx context.Context, t domain.Ticket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (`+ticketColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.QueueID, t.ServiceID, t.Number, string(t.Priority), string(t.Status),
		t.Customer.Name, t.Customer.Phone, formatTime(t.IssuedAt),
		nullTime(t.CalledAt), nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.AgentID, t.ResourceID, t.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ticket number %d already issued in queue %s: %w", t.Number, t.QueueID, err)
		}
		return fmt.Errorf("inserting ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) Get(ctx context.Context, tenantID, ticketID string) (domain.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE tenant_id = ? AND id = ?`,
		tenantID, ticketID,
	))
}

func (r *TicketRepository) Update(ctx context.Context, t domain.Ticket, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, priority = ?, called_at = ?, started_at = ?,
			completed_at = ?, agent_id = ?, resource_id = ?, version = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		string(t.Status), string(t.Priority),
		nullTime(t.CalledAt), nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.AgentID, t.ResourceID, t.Version,
		t.TenantID, t.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating ticket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a lost compare-and-set from a missing row.
		if _, err := r.Get(ctx, t.TenantID, t.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *TicketRepository) ListWaiting(ctx context.Context, tenantID, queueID string) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE tenant_id = ? AND queue_id = ? AND status = ? `+waitingOrder,
		tenantID, queueID, string(domain.StatusWaiting),
	)
	if err != nil {
		return nil, fmt.Errorf("listing waiting tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicketFromRows(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

func (r *TicketRepository) CountWaiting(ctx context.Context, tenantID, queueID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE tenant_id = ? AND queue_id = ? AND status = ?`,
		tenantID, queueID, string(domain.StatusWaiting),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting waiting tickets: %w", err)
	}
	return count, nil
}

func (r *TicketRepository) ActiveForAgent(ctx context.Context, tenantID, agentID string) (domain.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE tenant_id = ? AND agent_id = ? AND status IN (?, ?) LIMIT 1`,
		tenantID, agentID, string(domain.StatusCalled), string(domain.StatusInProgress),
	))
}

func (r *TicketRepository) CountActiveAgents(ctx context.Context, tenantID, queueID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT agent_id) FROM tickets
		 WHERE tenant_id = ? AND queue_id = ? AND status IN (?, ?)`,
		tenantID, queueID, string(domain.StatusCalled), string(domain.StatusInProgress),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active agents: %w", err)
	}
	return count, nil
}

// scanTicket scans a single row from QueryRow into a domain.Ticket.
func scanTicket(row *sql.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var priority, status, issuedAt string
	var calledAt, startedAt, completedAt sql.NullString

	err := row.Scan(&t.ID, &t.TenantID, &t.QueueID, &t.ServiceID, &t.Number, &priority, &status,
		&t.Customer.Name, &t.Customer.Phone, &issuedAt, &calledAt, &startedAt, &completedAt,
		&t.AgentID, &t.ResourceID, &t.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Ticket{}, domain.ErrNotFound
		}
		return domain.Ticket{}, fmt.Errorf("scanning ticket: %w", err)
	}

	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	if t.IssuedAt, err = parseTime(issuedAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.CalledAt, err = timePtr(calledAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.StartedAt, err = timePtr(startedAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.CompletedAt, err = timePtr(completedAt); err != nil {
		return domain.Ticket{}, err
	}

	return t, nil
}

// scanTicketFromRows scans a single row from Rows (used in ListWaiting).
func scanTicketFromRows(rows *sql.Rows) (domain.Ticket, error) {
	var t domain.Ticket
	var priority, status, issuedAt string
	var calledAt, startedAt, completedAt sql.NullString

	err := rows.Scan(&t.ID, &t.TenantID, &t.QueueID, &t.ServiceID, &t.Number, &priority, &status,
		&t.Customer.Name, &t.Customer.Phone, &issuedAt, &calledAt, &startedAt, &completedAt,
		&t.AgentID, &t.ResourceID, &t.Version)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("scanning ticket row: %w", err)
	}

	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	if t.IssuedAt, err = parseTime(issuedAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.CalledAt, err = timePtr(calledAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.StartedAt, err = timePtr(startedAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.CompletedAt, err = timePtr(completedAt); err != nil {
		return domain.Ticket{}, err
	}

	return t, nil
}
