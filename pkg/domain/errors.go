package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSessionNotFound is returned when an actor has no active session in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrorKind classifies a rejected event.
type ErrorKind string

const (
	// KindInput is malformed user input: re-prompt, state unchanged.
	KindInput ErrorKind = "input"
	// KindValidation is a well-formed but illegal action: reject, state unchanged.
	KindValidation ErrorKind = "validation"
	// KindCollaborator is a failure of an external service: report and return.
	KindCollaborator ErrorKind = "collaborator"
	// KindFatal is a broken invariant: the session is discarded.
	KindFatal ErrorKind = "fatal"
)

// Error is a user-facing rejection.
type Error struct {
	Kind    ErrorKind
	Message string
	// Positions lists offending 1-based item positions, if any.
	Positions []int
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Positions) > 0 {
		msg += ": " + JoinPositions(e.Positions)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown to the actor.
func (e *Error) UserMessage() string {
	if len(e.Positions) > 0 {
		return e.Message + ": " + JoinPositions(e.Positions)
	}
	return e.Message
}

// InputError reports malformed input.
func InputError(format string, args ...any) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports an illegal action, optionally naming item positions.
func ValidationError(msg string, positions ...int) *Error {
	return &Error{Kind: KindValidation, Message: msg, Positions: positions}
}

// CollaboratorError reports a failed external call.
func CollaboratorError(msg string, err error) *Error {
	return &Error{Kind: KindCollaborator, Message: msg, Err: err}
}

// FatalError reports a violated internal invariant.
func FatalError(err error) *Error {
	return &Error{Kind: KindFatal, Message: "Something went wrong, so the calculation was discarded. Please start over.", Err: err}
}

// KindOf returns the kind of err, or KindFatal for foreign errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindFatal
}

// JoinPositions renders positions as "1, 3, 4".
func JoinPositions(positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
