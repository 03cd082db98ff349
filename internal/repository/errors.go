// Package repository defines the gorm-backed data access layer and the
// sentinel errors shared by all repositories.  Higher layers use these
// values to tell a missing row from a conflict or a lost race.
package repository

import (
    "errors"
    "strings"

    "gorm.io/gorm"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique pair already exists (for
// example a favori that was already added).
var ErrConflict = errors.New("conflict")

// ErrStale is returned by guarded updates when the row no longer holds
// the expected status, typically because a concurrent request changed it
// first.
var ErrStale = errors.New("stale status")

// notFound maps gorm's record-not-found to ErrNotFound.
func notFound(err error) error {
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return ErrNotFound
    }
    return err
}

// isDuplicate reports whether err is a unique-constraint violation.
// gorm translates it when TranslateError is enabled; the message checks
// cover drivers opened without it.
func isDuplicate(err error) bool {
    if err == nil {
        return false
    }
    if errors.Is(err, gorm.ErrDuplicatedKey) {
        return true
    }
    msg := err.Error()
    return containsAny(msg, "1062", "Duplicate entry", "UNIQUE constraint failed", "duplicate key value")
}

func containsAny(s string, subs ...string) bool {
    for _, sub := range subs {
        if strings.Contains(s, sub) {
            return true
        }
    }
    return false
}
