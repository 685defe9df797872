package api

import (
	"regexp"
	"strings"
)

type (
	// StepID is the stable key of a step within a walkthrough definition
	StepID string

	// RecipeID identifies a registered walkthrough recipe
	RecipeID string

	// SessionID identifies an in-flight walkthrough run
	SessionID string
)

// InvalidIDChars matches characters not permitted in recipe IDs. Valid
// characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
