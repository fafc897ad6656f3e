package contract

import "time"

type EventKind string

const (
	EventCommand  EventKind = "command"
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
)

// User is the chat-platform profile attached to an event.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Event is one inbound chat update, independent of the transport library.
type Event struct {
	Kind   EventKind `json:"kind"`
	ChatID int64     `json:"chat_id"`
	User   User      `json:"user"`

	// Command holds the command name without the leading slash.
	Command string `json:"command,omitempty"`
	// Text is the message text, or the command arguments for EventCommand.
	Text string `json:"text,omitempty"`
	// Data is the callback payload of a pressed button.
	Data string `json:"data,omitempty"`

	// MessageID is the message the button was attached to.
	MessageID  int       `json:"message_id,omitempty"`
	CallbackID string    `json:"callback_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

type ParseMode string

const (
	ParsePlain    ParseMode = ""
	ParseMarkdown ParseMode = "Markdown"
)

// Reply is what the orchestrator wants rendered back to the chat.
type Reply struct {
	Text      string     `json:"text"`
	Buttons   [][]Button `json:"buttons,omitempty"`
	ParseMode ParseMode  `json:"parse_mode,omitempty"`
	// EditMessageID > 0 replaces that message instead of sending a new one.
	EditMessageID int `json:"edit_message_id,omitempty"`
}

func (r Reply) IsEmpty() bool {
	return r.Text == ""
}

// ButtonColumn lays buttons out one per row.
func ButtonColumn(buttons ...Button) [][]Button {
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	return rows
}
