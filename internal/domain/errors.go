package domain

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Email or password not match")
	ErrUnauthenticated    = errors.New("No authorization token was found")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrForbidden          = errors.New("You don't have enough permissions")
	ErrNotFound           = errors.New("not found")
	ErrKeyUnavailable     = errors.New("Error reading private key file")
	ErrSigningKey         = errors.New("signing key error")
	ErrPersistence        = errors.New("persistence error")
	ErrSearchUnavailable  = errors.New("search is not configured")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// ValidationError collects every field that failed its checks.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Path+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Add records a body field failure.
func (e *ValidationError) Add(path, msg string) {
	e.Fields = append(e.Fields, FieldError{Type: "field", Msg: msg, Path: path, Location: "body"})
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
