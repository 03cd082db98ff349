// Package service holds the marketplace business rules.  Every operation
// takes the caller explicitly, asks the policy gate before touching
// storage and reports failures with the error values below so handlers can
// map them to status codes without knowing the rules.
package service

import (
    "errors"
    "fmt"
    "sort"
    "strings"

    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

var (
    ErrUnauthenticated = policy.ErrUnauthenticated
    ErrForbidden       = policy.ErrForbidden
    ErrNotFound        = errors.New("not found")
    ErrInvalidState    = errors.New("invalid state")
    ErrBadCredentials  = errors.New("invalid email or password")
)

// ValidationError carries one code per invalid input field.
type ValidationError struct {
    Fields validation.Violations
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
    return "validation failed: " + strings.Join(parts, ", ")
}

// invalid returns a *ValidationError when v holds anything, nil otherwise.
func invalid(v validation.Violations) error {
    if v.Empty() {
        return nil
    }
    return &ValidationError{Fields: v}
}

func invalidField(field, code string) error {
    return &ValidationError{Fields: validation.Violations{field: code}}
}

func notFound(what string) error {
    return fmt.Errorf("%s %w", what, ErrNotFound)
}

// InvalidState wraps ErrInvalidState with a message meant for the client.
func InvalidState(msg string) error {
    return fmt.Errorf("%w: %s", ErrInvalidState, msg)
}

// StateMessage returns the client-facing part of an InvalidState error.
func StateMessage(err error) string {
    msg := err.Error()
    return strings.TrimPrefix(msg, ErrInvalidState.Error()+": ")
}

// lookup maps repository.ErrNotFound to a NotFound error naming what.
func lookup(err error, what string) error {
    if errors.Is(err, repository.ErrNotFound) {
        return notFound(what)
    }
    return err
}
