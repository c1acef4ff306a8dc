package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

// Restorer brings a light back to a journalled state.
type Restorer interface {
	Restore(state fade.LightState, level int) error
}

// RestoreLatest replays the newest entry for clientID onto light. It
// reports false when nothing has been journalled yet.
func RestoreLatest(ctx context.Context, repo Repository, clientID string, light Restorer) (bool, error) {
	entry, err := repo.Latest(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading latest light state: %w", err)
	}

	if err := light.Restore(entry.State, entry.Level); err != nil {
		return false, fmt.Errorf("restoring light state: %w", err)
	}
	return true, nil
}
