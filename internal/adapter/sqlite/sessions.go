package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/queueiq/internal/domain"
)

// Compile-time check: SessionRepository implements domain.SessionRepository.
var _ domain.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements domain.SessionRepository using SQLite.
type SessionRepository struct {
	db *sql.DB
}

const sessionColumns = `id, tenant_id, ticket_id, queue_id, agent_id, resource_id, status,
	started_at, paused_at, paused_for, completed_at, rating, feedback, version`

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TenantID, s.TicketID, s.QueueID, s.AgentID, s.ResourceID, string(s.Status),
		formatTime(s.StartedAt), nullTime(s.PausedAt), int64(s.PausedFor),
		nullTime(s.CompletedAt), s.Rating, s.Feedback, s.Version,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE tenant_id = ? AND id = ?`,
		tenantID, sessionID,
	))
}

func (r *SessionRepository) Update(ctx context.Context, s domain.Session, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, paused_at = ?, paused_for = ?, completed_at = ?,
			rating = ?, feedback = ?, version = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		string(s.Status), nullTime(s.PausedAt), int64(s.PausedFor), nullTime(s.CompletedAt),
		s.Rating, s.Feedback, s.Version,
		s.TenantID, s.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.Get(ctx, s.TenantID, s.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *SessionRepository) ActiveForTicket(ctx context.Context, tenantID, ticketID string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE tenant_id = ? AND ticket_id = ? AND status IN (?, ?) LIMIT 1`,
		tenantID, ticketID, string(domain.StatusInProgress), string(domain.StatusPaused),
	))
}

func (r *SessionRepository) ListRecentCompleted(ctx context.Context, tenantID, queueID string, limit int) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE tenant_id = ? AND queue_id = ? AND status = ?
		 ORDER BY completed_at DESC LIMIT ?`,
		tenantID, queueID, string(domain.StatusCompleted), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing completed sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		var status, startedAt string
		var pausedAt, completedAt sql.NullString
		var pausedFor int64

		err := rows.Scan(&s.ID, &s.TenantID, &s.TicketID, &s.QueueID, &s.AgentID, &s.ResourceID,
			&status, &startedAt, &pausedAt, &pausedFor, &completedAt, &s.Rating, &s.Feedback, &s.Version)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}

		s.Status = domain.Status(status)
		if s.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if s.PausedAt, err = timePtr(pausedAt); err != nil {
			return nil, err
		}
		s.PausedFor = time.Duration(pausedFor)
		if s.CompletedAt, err = timePtr(completedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// scanSession scans a single row from QueryRow into a domain.Session.
func scanSession(row *sql.Row) (domain.Session, error) {
	var s domain.Session
	var status, startedAt string
	var pausedAt, completedAt sql.NullString
	var pausedFor int64

	err := row.Scan(&s.ID, &s.TenantID, &s.TicketID, &s.QueueID, &s.AgentID, &s.ResourceID,
		&status, &startedAt, &pausedAt, &pausedFor, &completedAt, &s.Rating, &s.Feedback, &s.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("scanning session: %w", err)
	}

	s.Status = domain.Status(status)
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return domain.Session{}, err
	}
	if s.PausedAt, err = timePtr(pausedAt); err != nil {
		return domain.Session{}, err
	}
	s.PausedFor = time.Duration(pausedFor)
	if s.CompletedAt, err = timePtr(completedAt); err != nil {
		return domain.Session{}, err
	}

	return s, nil
}
