package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrValidation      = errors.New("validation failed")
)

// ForbiddenError reports the role a guard required and the role the caller had.
type ForbiddenError struct {
	Required []Role
	Actual   Role
}

func (e *ForbiddenError) Error() string {
	req := make([]string, len(e.Required))
	for i, r := range e.Required {
		req[i] = string(r)
	}
	return fmt.Sprintf("%s access required (role=%s)", strings.Join(req, " or "), e.Actual)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// ValidationError maps offending field names to a human readable reason.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
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

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError carries a client-safe description of the clash.
type ConflictError struct {
	Message string
}

func NewConflictError(msg string) *ConflictError { return &ConflictError{Message: msg} }

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
