package contract

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidEvent = errors.New("chat event is invalid")
)

// FailureKind classifies errors coming back from external services so the
// orchestrator can pick a reply with a switch.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureAuth        FailureKind = "auth"
	FailureRateLimit   FailureKind = "rate_limit"
	FailureUnavailable FailureKind = "unavailable"
	FailureConfig      FailureKind = "config"
)

// KindError tags an underlying error with a FailureKind and the operation
// that produced it.
type KindError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

func NewKindError(kind FailureKind, op string, err error) error {
	return &KindError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the FailureKind carried by err. Errors without a kind are
// reported as FailureUnavailable; nil is FailureNone.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return FailureUnavailable
}

// KindFromStatus maps an HTTP status code from a remote service.
func KindFromStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return FailureAuth
	case status == 429:
		return FailureRateLimit
	default:
		return FailureUnavailable
	}
}
