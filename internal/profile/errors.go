package profile

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrEmailConflict     = errors.New("email already in use")
	ErrEmailUnavailable  = errors.New("email unavailable")
	ErrNotFound          = errors.New("profile not found")
	ErrInternal          = errors.New("internal error")
)

// InputError names the offending field. It matches ErrInvalidInput with errors.Is.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string { return fmt.Sprintf("%s %s", e.Field, e.Reason) }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error { return &InputError{Field: field, Reason: reason} }

func internal(op string, err error) error { return fmt.Errorf("%w: %s: %v", ErrInternal, op, err) }
