package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacking privileges.
	ErrForbidden = errors.New("forbidden")

	ErrUserNotFound error = notFoundError("user not found")
	ErrItemNotFound error = notFoundError("item not found")
	ErrLineNotFound error = notFoundError("item not in cart")
)

// notFoundError is a specific not-found message that still matches ErrNotFound.
type notFoundError string

func (e notFoundError) Error() string { return string(e) }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError carries every field problem found in a request.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Msg)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Invalid builds a ValidationError without field detail.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// InvalidField builds a ValidationError for a single field.
func InvalidField(field, msg string) error {
	return &ValidationError{Message: "validation failed", Fields: []FieldError{{Field: field, Msg: msg}}}
}
