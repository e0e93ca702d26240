package domain

import "errors"

// Error kinds surfaced to callers of the user service.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Store-level errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Error carries a human-readable message and unwraps to its kind, so callers
// can branch with errors.Is(err, ErrBadRequest).
type Error struct {
	kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

// BadRequest covers invalid input, insufficient authorization and wrong passwords.
func BadRequest(msg string) *Error {
	return &Error{kind: ErrBadRequest, Message: msg}
}

// NotFound is returned when a referenced user does not exist.
func NotFound(msg string) *Error {
	return &Error{kind: ErrNotFound, Message: msg}
}
