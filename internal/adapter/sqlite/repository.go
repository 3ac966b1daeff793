package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps the SQLite connection and hands out the per-entity
// repositories that share it.
type DB struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready DB.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready DB. Use this when the *sql.DB has been pre-configured
// (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*DB, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// DB returns the underlying database connection for use by other
// adapters (e.g., river).
func (d *DB) DB() *sql.DB {
	return d.db
}

// Tickets returns the ticket repository.
func (d *DB) Tickets() *TicketRepository { return &TicketRepository{db: d.db} }

// Queues returns the queue repository.
func (d *DB) Queues() *QueueRepository { return &QueueRepository{db: d.db} }

// Sessions returns the session repository.
func (d *DB) Sessions() *SessionRepository { return &SessionRepository{db: d.db} }

// Resources returns the resource repository.
func (d *DB) Resources() *ResourceRepository { return &ResourceRepository{db: d.db} }

// History returns the status-change history repository.
func (d *DB) History() *HistoryRepository { return &HistoryRepository{db: d.db} }

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width: always nine fractional digits, always UTC.
// RFC3339Nano trims trailing zeros, so its text does not sort in
// chronological order ('.' < 'Z') and ORDER BY issued_at would break FIFO.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime also accepts trimmed fractional seconds so rows written
// before the fixed-width format still scan.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

// nullTime converts an optional timestamp to its column value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// timePtr converts a scanned nullable column back to an optional timestamp.
func timePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
