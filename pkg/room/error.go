package room

import (
	"errors"
	"fmt"

	"matatu-server/pkg/matatu"
)

// ErrorKind classifies an error returned to a caller
type ErrorKind string

// error kinds
const (
	// ErrorValidation is a malformed action
	ErrorValidation ErrorKind = "validation"
	// ErrorIllegalMove is a rule violation
	ErrorIllegalMove ErrorKind = "illegalMove"
	// ErrorNotYourTurn is an action by the wrong player
	ErrorNotYourTurn ErrorKind = "notYourTurn"
	// ErrorRoomState is a join or action against a room in the wrong state
	ErrorRoomState ErrorKind = "roomState"
	// ErrorInsufficientStake means the player cannot cover the room's stake
	ErrorInsufficientStake ErrorKind = "insufficientStake"
	// ErrorNotFound is an unknown room, card index, or player
	ErrorNotFound ErrorKind = "notFound"
	// ErrorConcurrencyConflict is a stale state reference
	ErrorConcurrencyConflict ErrorKind = "concurrencyConflict"
)

// Error is a structured, user-safe error. Every rejected action carries a
// kind and a human-readable reason; nothing else leaves the server.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

func (e *Error) Error() string {
	return e.Reason
}

// NewError returns a structured error
func NewError(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{
		Kind:   kind,
		Reason: fmt.Sprintf(format, a...),
	}
}

// asRoomError maps engine errors onto the taxonomy. A *Error passes
// through untouched.
func asRoomError(err error) *Error {
	var roomErr *Error
	if errors.As(err, &roomErr) {
		return roomErr
	}

	kind := ErrorValidation
	switch {
	case errors.Is(err, matatu.ErrNotYourTurn):
		kind = ErrorNotYourTurn
	case errors.Is(err, matatu.ErrIllegalMove),
		errors.Is(err, matatu.ErrNothingToDeclare):
		kind = ErrorIllegalMove
	case errors.Is(err, matatu.ErrInvalidCardIndex),
		errors.Is(err, matatu.ErrPlayerNotInGame):
		kind = ErrorNotFound
	case errors.Is(err, matatu.ErrGameOver),
		errors.Is(err, matatu.ErrGameNotActive),
		errors.Is(err, matatu.ErrSeatingClosed),
		errors.Is(err, matatu.ErrDuplicatePlayer):
		kind = ErrorRoomState
	}

	return &Error{
		Kind:   kind,
		Reason: err.Error(),
	}
}
