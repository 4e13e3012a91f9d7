package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned for a user, role or warehouse name that
// cannot be safely placed into a statement.
var ErrInvalidIdentifier = errors.New("invalid Snowflake identifier")

var (
	unquotedIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)
	quotedIdentifier   = regexp.MustCompile(`^"(?:[^"]|"")+"$`)
)

// ValidateIdentifier accepts an unquoted Snowflake identifier or a double
// quoted one with embedded quotes doubled.
func ValidateIdentifier(kind, name string) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidIdentifier, kind)
	}
	if n != name || !(unquotedIdentifier.MatchString(n) || quotedIdentifier.MatchString(n)) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, name)
	}
	return nil
}
