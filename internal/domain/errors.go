package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable half of a structured error event.
type ErrorCode string

const (
	CodeAuthenticationRequired       ErrorCode = "authentication_required"
	CodeForbidden                    ErrorCode = "forbidden"
	CodeNotFound                     ErrorCode = "not_found"
	CodeInvalidPayload               ErrorCode = "invalid_payload"
	CodeRoundAlreadyActive           ErrorCode = "round_already_active"
	CodeInsufficientQuestions        ErrorCode = "insufficient_questions"
	CodeDuplicateResponse            ErrorCode = "duplicate_response"
	CodeNotYourTurn                  ErrorCode = "not_your_turn"
	CodePrerequisiteRoundsIncomplete ErrorCode = "prerequisite_rounds_incomplete"
	CodePersistenceUnavailable       ErrorCode = "persistence_unavailable"
	CodeInternal                     ErrorCode = "internal"
)

// Error carries a structured code and message back to the originating client.
// A rejected command leaves session state untouched.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Shortage is set for insufficient_questions errors only.
	Shortage int `json:"shortage,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func ErrAuthenticationRequired() *Error {
	return Errorf(CodeAuthenticationRequired, "authentication required")
}

func ErrForbidden(action string, role Role) *Error {
	return Errorf(CodeForbidden, "role %s may not %s", role, action)
}

func ErrNotFound(what, id string) *Error {
	return Errorf(CodeNotFound, "%s %s not found", what, id)
}

func ErrInvalidPayload(detail string) *Error {
	return Errorf(CodeInvalidPayload, "invalid payload: %s", detail)
}

func ErrRoundAlreadyActive(roundID string) *Error {
	return Errorf(CodeRoundAlreadyActive, "round %s is active; participant order is frozen", roundID)
}

func ErrInsufficientQuestions(required, available int) *Error {
	e := Errorf(CodeInsufficientQuestions, "need %d questions, only %d available", required, available)
	e.Shortage = required - available
	return e
}

func ErrDuplicateResponse(participantID, questionID string) *Error {
	return Errorf(CodeDuplicateResponse, "participant %s already answered question %s", participantID, questionID)
}

func ErrNotYourTurn(participantID string) *Error {
	return Errorf(CodeNotYourTurn, "it is not participant %s's turn", participantID)
}

func ErrPrerequisiteRoundsIncomplete(rounds []int) *Error {
	return Errorf(CodePrerequisiteRoundsIncomplete, "earlier rounds still active: %v", rounds)
}

func ErrPersistence(err error) *Error {
	return Errorf(CodePersistenceUnavailable, "persistence failure, retry: %v", err)
}
