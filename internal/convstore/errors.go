package convstore

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUnavailable  ErrorCode = "UNAVAILABLE"
	ErrorStore        ErrorCode = "STORE_ERROR"
)

var (
	ErrMissingConversationID = errors.New("convstore: conversation id is required")
	ErrMissingUserID         = errors.New("convstore: user id is required")
	ErrEmptyMessage          = errors.New("convstore: message is required")
	ErrUnavailable           = errors.New("convstore: document store unavailable")

	errStoreClosing = errors.New("convstore: store is closing")
)

// Error classifies a failure inside the store. It never crosses the exported
// API; it is what gets logged and counted before a degraded value is returned.
type Error struct {
	Op     string
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("convstore: %s %s (%s)", e.Op, e.Code, e.Reason)
	}
	return fmt.Sprintf("convstore: %s %s (%s): %v", e.Op, e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(op string, code ErrorCode, reason string, err error) *Error {
	return &Error{Op: op, Code: code, Reason: reason, Err: err}
}
