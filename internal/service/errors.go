package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// It is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrConflict is returned when an email is already registered.
	ErrConflict = errors.New("user already exists with this email")
	// ErrNotFound is returned when the target user does not exist.
	ErrNotFound = errors.New("user not found")
)

// ValidationError aggregates field level input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
