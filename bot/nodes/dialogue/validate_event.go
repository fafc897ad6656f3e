package dialoguenode

import (
	"fmt"
	"time"

	contractx "github.com/inmobot/inmobot/bot/contract"
	statex "github.com/inmobot/inmobot/bot/state"
)

type GraphInput struct {
	Event contractx.Event
}

type GraphOutput struct {
	Reply contractx.Reply
}

type GraphState struct {
	Event contractx.Event
	Now   time.Time

	Session *statex.Session
	// Dirty is set when the session step changed and must be persisted.
	Dirty bool

	Reply contractx.Reply
}

func ValidateEvent(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	ev := in.Event
	if ev.ChatID == 0 {
		return nil, fmt.Errorf("%w: chat id is empty", contractx.ErrInvalidEvent)
	}
	if ev.User.ID == 0 {
		return nil, fmt.Errorf("%w: user id is empty", contractx.ErrInvalidEvent)
	}

	switch ev.Kind {
	case contractx.EventCommand:
		if ev.Command == "" {
			return nil, fmt.Errorf("%w: command name is empty", contractx.ErrInvalidEvent)
		}
	case contractx.EventText:
	case contractx.EventCallback:
		if ev.Data == "" {
			return nil, fmt.Errorf("%w: callback data is empty", contractx.ErrInvalidEvent)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", contractx.ErrInvalidEvent, ev.Kind)
	}

	now := nowFn().UTC()
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = now
	}

	return &GraphState{
		Event: ev,
		Now:   now,
	}, nil
}
