package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inmobot/inmobot/bot/lead"
)

// Step is the intake position of a session. Each variant carries exactly the
// fields collected so far.
type Step interface {
	stepName() string
}

// Idle means no intake is in progress.
type Idle struct{}

type AwaitingName struct {
	ClientType lead.ClientType
}

type AwaitingPhone struct {
	ClientType lead.ClientType
	FullName   string
}

type AwaitingEmail struct {
	ClientType lead.ClientType
	FullName   string
	Phone      string
}

func (Idle) stepName() string          { return "idle" }
func (AwaitingName) stepName() string  { return "awaiting_name" }
func (AwaitingPhone) stepName() string { return "awaiting_phone" }
func (AwaitingEmail) stepName() string { return "awaiting_email" }

// StepName returns the discriminator used in logs and in the JSON encoding.
func StepName(s Step) string {
	if s == nil {
		return Idle{}.stepName()
	}
	return s.stepName()
}

var (
	ErrUnknownStep    = errors.New("unknown session step")
	ErrInvalidSession = errors.New("session chat id is empty")
	ErrNilSession     = errors.New("session is nil")
)

// Session is the per-chat intake state.
type Session struct {
	ChatID    int64
	UserID    int64
	Step      Step
	UpdatedAt time.Time
}

func NewSession(chatID, userID int64, now time.Time) *Session {
	return &Session{
		ChatID:    chatID,
		UserID:    userID,
		Step:      Idle{},
		UpdatedAt: now.UTC(),
	}
}

// IsIdle reports whether no intake is in progress.
func (s *Session) IsIdle() bool {
	if s == nil || s.Step == nil {
		return true
	}
	_, ok := s.Step.(Idle)
	return ok
}

// Advance moves the session to next and stamps it.
func (s *Session) Advance(next Step, now time.Time) {
	if next == nil {
		next = Idle{}
	}
	s.Step = next
	s.UpdatedAt = now.UTC()
}

// Reset returns the session to Idle.
func (s *Session) Reset(now time.Time) {
	s.Advance(Idle{}, now)
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ChatID == 0 {
		return ErrInvalidSession
	}
	switch st := s.Step.(type) {
	case nil, Idle:
		return nil
	case AwaitingName:
		return validClientType(st.ClientType)
	case AwaitingPhone:
		return validClientType(st.ClientType)
	case AwaitingEmail:
		return validClientType(st.ClientType)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownStep, st)
	}
}

func validClientType(ct lead.ClientType) error {
	if _, ok := lead.ParseClientType(string(ct)); !ok {
		return fmt.Errorf("invalid client type %q", ct)
	}
	return nil
}

type sessionJSON struct {
	ChatID     int64     `json:"chat_id"`
	UserID     int64     `json:"user_id"`
	Step       string    `json:"step"`
	ClientType string    `json:"client_type,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		ChatID:    s.ChatID,
		UserID:    s.UserID,
		Step:      StepName(s.Step),
		UpdatedAt: s.UpdatedAt,
	}
	switch st := s.Step.(type) {
	case nil, Idle:
	case AwaitingName:
		out.ClientType = string(st.ClientType)
	case AwaitingPhone:
		out.ClientType = string(st.ClientType)
		out.FullName = st.FullName
	case AwaitingEmail:
		out.ClientType = string(st.ClientType)
		out.FullName = st.FullName
		out.Phone = st.Phone
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownStep, st)
	}
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	ct := lead.ClientType(in.ClientType)
	var step Step
	switch in.Step {
	case "", Idle{}.stepName():
		step = Idle{}
	case AwaitingName{}.stepName():
		step = AwaitingName{ClientType: ct}
	case AwaitingPhone{}.stepName():
		step = AwaitingPhone{ClientType: ct, FullName: in.FullName}
	case AwaitingEmail{}.stepName():
		step = AwaitingEmail{ClientType: ct, FullName: in.FullName, Phone: in.Phone}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStep, in.Step)
	}

	*s = Session{
		ChatID:    in.ChatID,
		UserID:    in.UserID,
		Step:      step,
		UpdatedAt: in.UpdatedAt,
	}
	return nil
}
