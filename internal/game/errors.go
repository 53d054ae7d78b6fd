package game

import (
	"errors"
	"fmt"
)

// Code is the stable, client-visible reason an operation was refused.
type Code string

const (
	CodeNotOwner         Code = "not_owner"
	CodeAlreadyActive    Code = "already_active"
	CodeUnknownKind      Code = "unknown_kind"
	CodeNotFound         Code = "not_found"
	CodeAlreadyJoined    Code = "already_joined"
	CodeFull             Code = "full"
	CodeWrongPhase       Code = "wrong_phase"
	CodeAlreadySubmitted Code = "already_submitted"
	CodeNotAlive         Code = "not_alive"
	CodeInvalidTarget    Code = "invalid_target"
	CodeInvalidInput     Code = "invalid_input"
	CodeSessionClosed    Code = "session_closed"
	CodeInternal         Code = "internal"
)

// Error is a precondition or lookup failure reported to the single caller.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotOwner         = &Error{Code: CodeNotOwner, Message: "not the room owner"}
	ErrAlreadyActive    = &Error{Code: CodeAlreadyActive, Message: "a game is already active for this room"}
	ErrUnknownKind      = &Error{Code: CodeUnknownKind, Message: "unknown game kind"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyJoined    = &Error{Code: CodeAlreadyJoined, Message: "already joined"}
	ErrFull             = &Error{Code: CodeFull, Message: "lobby is full"}
	ErrWrongPhase       = &Error{Code: CodeWrongPhase, Message: "not allowed in the current phase"}
	ErrAlreadySubmitted = &Error{Code: CodeAlreadySubmitted, Message: "already submitted this round"}
	ErrNotAlive         = &Error{Code: CodeNotAlive, Message: "eliminated players cannot act"}
	ErrInvalidTarget    = &Error{Code: CodeInvalidTarget, Message: "invalid target"}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrSessionClosed    = &Error{Code: CodeSessionClosed, Message: "session is closed"}
)

// CodeOf extracts the taxonomy code of err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
