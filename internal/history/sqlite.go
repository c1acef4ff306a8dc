package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timestampLayout is fixed width so created_at sorts as text in time order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteRepository implements Repository on the light_history table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordChange inserts one change.
func (r *SQLiteRepository) RecordChange(ctx context.Context, clientID string, change fade.Change) error {
	if clientID == "" {
		return ErrClientIDRequired
	}

	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	cause := change.Cause
	if cause == "" {
		cause = fade.CauseBrightness
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO light_history (client_id, state, from_level, level, cause, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		clientID,
		change.State.String(),
		change.From,
		change.Target,
		string(cause),
		formatTimestamp(at),
	)
	if err != nil {
		return fmt.Errorf("inserting light history: %w", err)
	}
	return nil
}

// Latest returns the newest entry for clientID.
func (r *SQLiteRepository) Latest(ctx context.Context, clientID string) (Entry, error) {
	entries, err := r.GetHistory(ctx, clientID, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// GetHistory returns entries for clientID ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - clientID: Device client identifier
//   - limit: Maximum entries to return (default 50, max 200)
func (r *SQLiteRepository) GetHistory(ctx context.Context, clientID string, limit int) ([]Entry, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client_id, state, from_level, level, cause, created_at
		 FROM light_history
		 WHERE client_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		clientID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying light history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var state, cause, createdAt string
		if err := rows.Scan(&e.ID, &e.ClientID, &state, &e.From, &e.Level, &cause, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning light history: %w", err)
		}

		e.State = fade.Off
		if state == fade.On.String() {
			e.State = fade.On
		}
		e.Cause = fade.Cause(cause)

		e.CreatedAt, err = time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating light history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than now-olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("history: olderThan must be positive")
	}

	cutoff := formatTimestamp(time.Now().Add(-olderThan))
	result, err := r.db.ExecContext(ctx, "DELETE FROM light_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting light history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// formatTimestamp renders t in UTC using timestampLayout.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
