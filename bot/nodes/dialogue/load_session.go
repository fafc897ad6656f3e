package dialoguenode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/inmobot/inmobot/bot/contract"
	statex "github.com/inmobot/inmobot/bot/state"
)

// LoadSession attaches the chat's stored session, or a fresh Idle one.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.Event.ChatID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrStateNotFound):
		sess = statex.NewSession(in.Event.ChatID, in.Event.User.ID, in.Now)
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}

	in.Session = sess
	return in, nil
}
