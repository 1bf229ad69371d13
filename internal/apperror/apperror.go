// Package apperror defines the application error taxonomy.
//
// Services return these domain errors; the HTTP layer maps them to status
// codes in one place (handler.writeError). Nothing below the handler layer
// knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // sentinel identifying the category
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthenticated returns an AppError for requests with missing or invalid
// credentials. HTTP handlers map this to 401.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// InvalidCredentials is the constant-shape login failure. Both "no such
// user" and "wrong password" produce this exact error so a caller cannot
// probe which emails are registered.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "invalid email or password",
	}
}
