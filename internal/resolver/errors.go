package resolver

import "fmt"

// Code classifies a resolution failure for the transport layer.
type Code string

const (
	CodeGameNotFound  Code = "GAME_NOT_FOUND"
	CodeGameEnded     Code = "GAME_ENDED"
	CodeGameFull      Code = "GAME_FULL"
	CodeInvalidCode   Code = "INVALID_CODE"
	CodeNotYourTurn   Code = "NOT_YOUR_TURN"
	CodePieceNotFound Code = "PIECE_NOT_FOUND"
	CodePieceCaptured Code = "PIECE_CAPTURED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeInvalidMove   Code = "INVALID_MOVE"
	CodeBadRequest    Code = "BAD_REQUEST"

	// CodeInternal marks state corruption or infrastructure failure. It is
	// never caused by player input.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a classified resolution failure.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Declined builds a player-recoverable error.
func Declined(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Internal wraps a state-corruption or infrastructure failure. The command
// aborts; nothing about it should be retried by the player.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, cause: cause}
}
