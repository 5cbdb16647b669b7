package models

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindNetwork    ErrorKind = "NETWORK"
	KindService    ErrorKind = "SERVICE"
	KindUnknown    ErrorKind = "UNKNOWN"
)

const (
	MsgEmptyUsername   = "Please enter a GitHub username."
	MsgInvalidUsername = "GitHub usernames are up to 39 letters, digits or single hyphens, and cannot start or end with a hyphen."
	MsgUnknown         = "An unknown error occurred."
)

// Error carries a user-facing message. Error() returns only that message so
// it can be shown verbatim; the cause stays reachable through Unwrap.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func ErrValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the text to display for err: its message when it has one,
// the generic fallback otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); strings.TrimSpace(msg) != "" {
		return msg
	}
	return MsgUnknown
}
