package contract

import "context"

// Completer produces a reply for free text. The returned string is always
// user-presentable; err (when non-nil) carries the FailureKind behind a
// fallback text.
type Completer interface {
	Reply(ctx context.Context, userText string, userID int64) (string, error)
}

// EventHandler handles one inbound event and returns the reply to render.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev Event) (Reply, error)
}
