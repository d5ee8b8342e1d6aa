package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// State history source values.
const (
	SourcePoll    = "poll"
	SourceCommand = "command"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry represents a single climate entity state snapshot.
//
// Each entry stores a full snapshot of the entity state at the time the
// change was observed. This provides a local audit trail even when the
// time-series database is unavailable.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// EntityID is the climate entity identifier.
	EntityID string `json:"entity_id"`

	// State is the JSON snapshot of the entity state.
	State map[string]any `json:"state"`

	// Source identifies how the snapshot was recorded (poll, command).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the snapshot (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves climate state history in SQLite.
//
// All methods are safe for concurrent use and store UTC timestamps.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new state history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *Repository: Repository instance ready for use
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecordState inserts a new state history entry for a climate entity.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Climate entity identifier
//   - state: State snapshot to persist
//   - source: Origin of the snapshot (poll, command)
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) RecordState(ctx context.Context, entityID string, state map[string]any, source string) error {
	if entityID == "" {
		return fmt.Errorf("entity id is required")
	}
	if source == "" {
		source = SourcePoll
	}
	if state == nil {
		state = map[string]any{}
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO climate_state_history (entity_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		entityID,
		string(stateJSON),
		source,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}

	return nil
}

// GetHistory returns recent state snapshots for an entity, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Climate entity identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) GetHistory(ctx context.Context, entityID string, limit int) ([]Entry, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_id, state, source, created_at
		 FROM climate_state_history
		 WHERE entity_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		entityID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var stateJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.EntityID, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}

		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}

		timestamp, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes history entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM climate_state_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}
