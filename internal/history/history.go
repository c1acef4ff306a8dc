package history

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

var (
	// ErrNotFound is returned when no entry exists for the client.
	ErrNotFound = errors.New("history: no entries")

	// ErrClientIDRequired is returned when an operation has no client id.
	ErrClientIDRequired = errors.New("history: client id is required")
)

// Entry is one journalled light change.
type Entry struct {
	ID        int64
	ClientID  string
	State     fade.LightState
	From      int
	Level     int
	Cause     fade.Cause
	CreatedAt time.Time
}

// Repository stores and retrieves light change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// RecordChange appends one change for clientID.
	RecordChange(ctx context.Context, clientID string, change fade.Change) error

	// Latest returns the most recent entry for clientID, or ErrNotFound.
	Latest(ctx context.Context, clientID string) (Entry, error)

	// GetHistory returns up to limit entries, newest first.
	GetHistory(ctx context.Context, clientID string, limit int) ([]Entry, error)

	// Prune deletes entries older than olderThan and returns the count.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
