// Package validate holds the input rules shared by the domain services:
// string fields must be non-blank after trimming and must never contain the
// record delimiter, since that would corrupt the flat-file encoding.
package validate

import (
	"fmt"
	"strings"

	"github.com/stlalpha/scrollkeep/internal/store"
)

// Error is a recoverable bad-input error naming the offending field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Errorf builds a field-named validation error.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Require trims value and rejects blank input and input containing the field
// delimiter. The trimmed value is returned.
func Require(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &Error{Field: field, Reason: "cannot be empty"}
	}
	if strings.Contains(trimmed, store.Delimiter) {
		return "", &Error{Field: field, Reason: "cannot contain the '|' character"}
	}
	return trimmed, nil
}
