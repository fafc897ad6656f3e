package dialoguenode

import (
	"context"
	"fmt"

	contractx "github.com/inmobot/inmobot/bot/contract"
	statex "github.com/inmobot/inmobot/bot/state"
)

// SaveSession persists a changed session. Idle sessions are deleted rather
// than stored.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if !in.Dirty {
		return in, nil
	}

	if in.Session.IsIdle() {
		if err := store.Delete(ctx, in.Session.ChatID); err != nil {
			return nil, fmt.Errorf("delete session: %w", err)
		}
		return in, nil
	}

	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return in, nil
}
