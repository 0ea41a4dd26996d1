package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrCacheMiss    = errors.New("cache miss")
)

// Refined errors wrap one of the categories above so callers can match either
// the specific cause or the category with errors.Is.
var (
	ErrDuplicateUsername     = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrDuplicateEmail        = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrDuplicateContactEmail = fmt.Errorf("%w: contact with this email already exists", ErrConflict)
	ErrInvalidCredentials    = fmt.Errorf("%w: incorrect login or password", ErrUnauthorized)
	ErrEmailNotConfirmed     = fmt.Errorf("%w: email not confirmed", ErrUnauthorized)
)
