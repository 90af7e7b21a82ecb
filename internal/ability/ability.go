// Package ability defines the ability string grammar and the grant closure
// shared by every authorization check.
package ability

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Wildcard grants every ability, including ones not yet catalogued.
const Wildcard = "*"

// ManageAction is the action that grants every other ability of its feature.
const ManageAction = "manage"

// ErrMalformed reports an ability string that does not follow the feature.action grammar.
var ErrMalformed = errors.New("ability: malformed ability")

var pattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// Valid reports whether s is a well-formed ability string.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// Validate returns ErrMalformed for anything that is neither a well-formed
// ability nor the wildcard.
func Validate(s string) error {
	if s == Wildcard || Valid(s) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrMalformed, s)
}

// Feature returns the segment before the first dot.
func Feature(s string) string {
	if idx := strings.IndexByte(s, '.'); idx > 0 {
		return s[:idx]
	}
	return ""
}

// Manage returns the feature.manage ability for s, or "" when s has no feature prefix.
func Manage(s string) string {
	feature := Feature(s)
	if feature == "" {
		return ""
	}
	return feature + "." + ManageAction
}

// IsClientScoped reports whether the ability carries a client segment
// (tasks.client.view).
func IsClientScoped(s string) bool {
	return strings.Contains(s, ".client.")
}

// HasAction reports whether the final segment of s is one of actions.
func HasAction(s string, actions ...string) bool {
	for _, action := range actions {
		if strings.HasSuffix(s, "."+action) {
			return true
		}
	}
	return false
}
