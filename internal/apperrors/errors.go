// Package apperrors holds the error taxonomy shared by services and handlers.
// Services wrap one of these sentinels with fmt.Errorf("%w: ...") and the
// HTTP layer maps them with errors.Is.
package apperrors

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
