package web

import (
	"regexp"
	"strconv"
)

// Validation patterns for user input.
var (
	// idPattern requires an alphanumeric first character, which rejects
	// --flag injection and path tricks. Task ids are opaque but always
	// start with [a-zA-Z0-9].
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
)

// isValidID checks if a string is a safe task identifier.
func isValidID(s string) bool {
	return len(s) > 0 && len(s) <= 200 && idPattern.MatchString(s)
}

// parseLimit parses a ?limit= query value. Empty or garbage falls back
// to def; the result is clamped to [1, max].
func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
