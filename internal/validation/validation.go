// Package validation collects per-field input violations.  Validators
// only record the first problem found for a field.
package validation

import (
    "net/mail"
    "strings"
    "time"
    "unicode/utf8"
)

// Violations maps a field name to a short machine-readable code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records msg for field unless the field already failed.
func (v Violations) Add(field, msg string) {
    if _, ok := v[field]; !ok {
        v[field] = msg
    }
}

func Required(field, value string, v Violations) {
    if strings.TrimSpace(value) == "" {
        v.Add(field, "required")
    }
}

// MaxLen counts characters, not bytes.
func MaxLen(field, value string, max int, v Violations) {
    if utf8.RuneCountInString(value) > max {
        v.Add(field, "too_long")
    }
}

func MinLen(field, value string, min int, v Violations) {
    if utf8.RuneCountInString(value) < min {
        v.Add(field, "too_short")
    }
}

func OneOf(field, value string, allowed []string, v Violations) {
    for _, a := range allowed {
        if value == a {
            return
        }
    }
    v.Add(field, "invalid_choice")
}

func Email(field, value string, v Violations) {
    if _, err := mail.ParseAddress(value); err != nil || !strings.Contains(value, "@") {
        v.Add(field, "invalid_email")
    }
}

func MinFloat(field string, val, min float64, v Violations) {
    if val < min {
        v.Add(field, "too_small")
    }
}

func NonNegativeInt(field string, val int, v Violations) {
    if val < 0 {
        v.Add(field, "must_be_non_negative")
    }
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
    if val < minVal || val > maxVal {
        v.Add(field, "out_of_range")
    }
}

func PositiveID(field string, id uint64, v Violations) {
    if id == 0 {
        v.Add(field, "required")
    }
}

// After requires t to be strictly later than ref.
func After(field string, t, ref time.Time, code string, v Violations) {
    if !t.After(ref) {
        v.Add(field, code)
    }
}
