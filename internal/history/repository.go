package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
)

const (
	// observerTimeout bounds one observer write.
	observerTimeout = 5 * time.Second

	// timestampLayout is fixed width so created_at sorts lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Logger is the structured logger used by this package.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Repository stores door history in SQLite.
type Repository struct {
	db     *sql.DB
	logger Logger
}

var (
	_ garage.StateObserver   = (*Repository)(nil)
	_ garage.CommandObserver = (*Repository)(nil)
)

// NewRepository creates a repository on an open, migrated connection.
func NewRepository(db *sql.DB, logger Logger) *Repository {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Repository{db: db, logger: logger}
}

// OnStateChange records c. Write errors are logged, never returned.
func (r *Repository) OnStateChange(c garage.StateChange) {
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()

	if err := r.RecordEvent(ctx, c); err != nil {
		r.logger.Warn("failed to record door event",
			"accessory_id", c.AccessoryID,
			"characteristic", c.Characteristic,
			"error", err,
		)
	}
}

// OnCommand records res. Write errors are logged, never returned.
func (r *Repository) OnCommand(res garage.CommandResult) {
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()

	if err := r.RecordCommand(ctx, res); err != nil {
		r.logger.Warn("failed to record door command",
			"accessory_id", res.AccessoryID,
			"command_id", res.ID,
			"error", err,
		)
	}
}

// RecordEvent inserts one slot change.
func (r *Repository) RecordEvent(ctx context.Context, c garage.StateChange) error {
	if c.AccessoryID == "" {
		return ErrAccessoryRequired
	}

	snapshot, err := json.Marshal(c.State)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO door_events (id, accessory_id, characteristic, value, source, snapshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		c.AccessoryID,
		string(c.Characteristic),
		c.Value,
		string(c.Source),
		string(snapshot),
		formatTimestamp(c.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting door event: %w", err)
	}
	return nil
}

// RecordCommand inserts one command result under a fresh row id. The
// command id is stored as given and need not be unique.
func (r *Repository) RecordCommand(ctx context.Context, res garage.CommandResult) error {
	if res.AccessoryID == "" {
		return ErrAccessoryRequired
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO door_commands
		 (id, command_id, accessory_id, target, method, url, success, status_code, error, duration_ms, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		res.ID,
		res.AccessoryID,
		int(res.Target),
		res.Method,
		res.URL,
		boolToInt(res.Success),
		res.StatusCode,
		res.Error,
		res.Duration.Milliseconds(),
		string(res.Source),
		formatTimestamp(res.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting door command: %w", err)
	}
	return nil
}

// ListEvents returns events newest first.
func (r *Repository) ListEvents(ctx context.Context, f Filter) ([]Event, error) {
	if f.AccessoryID == "" {
		return nil, ErrAccessoryRequired
	}

	query := `SELECT id, accessory_id, characteristic, value, source, snapshot, created_at
		 FROM door_events
		 WHERE accessory_id = ?`
	args := []any{f.AccessoryID}
	if f.Characteristic != "" {
		query += " AND characteristic = ?"
		args = append(args, f.Characteristic)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, f.limit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying door events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, f.limit())
	for rows.Next() {
		var e Event
		var snapshot, createdAt string
		if err := rows.Scan(&e.ID, &e.AccessoryID, &e.Characteristic, &e.Value, &e.Source, &snapshot, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning door event: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &e.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
		}
		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating door events: %w", err)
	}

	return events, nil
}

// ListCommands returns command results newest first.
func (r *Repository) ListCommands(ctx context.Context, f Filter) ([]Command, error) {
	if f.AccessoryID == "" {
		return nil, ErrAccessoryRequired
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, command_id, accessory_id, target, method, url, success, status_code, error, duration_ms, source, created_at
		 FROM door_commands
		 WHERE accessory_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		f.AccessoryID,
		f.limit(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying door commands: %w", err)
	}
	defer rows.Close()

	commands := make([]Command, 0, f.limit())
	for rows.Next() {
		var c Command
		var success int
		var createdAt string
		if err := rows.Scan(&c.ID, &c.CommandID, &c.AccessoryID, &c.Target, &c.Method, &c.URL, &success,
			&c.StatusCode, &c.Error, &c.DurationMS, &c.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning door command: %w", err)
		}
		c.Success = success != 0
		if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating door commands: %w", err)
	}

	return commands, nil
}

// Prune deletes events and commands older than olderThan and returns the
// number of rows removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := formatTimestamp(time.Now().Add(-olderThan))

	var total int64
	for _, table := range []string{"door_events", "door_commands"} {
		result, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff) // #nosec G202 -- table name is a constant
		if err != nil {
			return total, fmt.Errorf("deleting from %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("checking rows affected: %w", err)
		}
		total += n
	}

	return total, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp parses a created_at value. RFC3339Nano also accepts
// the fixed width layout and second precision rows.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02 15:04:05", value)
	if fallbackErr == nil {
		return fallback.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
