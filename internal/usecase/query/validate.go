package query

import (
	"regexp"
	"strings"

	"github.com/profoak/profoak-api/internal/domain/faults"
)

const maxQueryLength = 200

var (
	unsafeChars = regexp.MustCompile(`[<>"'&]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeQuery normalizes a user-facing search query: trim, cap at 200
// characters, drop markup-dangerous characters, collapse whitespace,
// lowercase.
func SanitizeQuery(query string) string {
	s := strings.TrimSpace(query)
	if len(s) > maxQueryLength {
		s = s[:maxQueryLength]
	}
	s = unsafeChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// ValidateQuery rejects queries that survive sanitization in a shape we
// still refuse to embed.
func ValidateQuery(query string) error {
	if query == "" || len(query) > maxQueryLength {
		return faults.Validationf("query must be between 1 and %d characters", maxQueryLength)
	}
	if unsafeChars.MatchString(query) {
		return faults.Validationf("query contains forbidden characters")
	}
	if strings.Contains(query, "javascript:") || strings.Contains(query, "data:") {
		return faults.Validationf("query contains a protocol injection attempt")
	}
	return nil
}

// ValidateLimit enforces the tool contract's result-count bounds.
func ValidateLimit(limit int) error {
	if limit < 1 || limit > 10 {
		return faults.Validationf("limit must be between 1 and 10, got %d", limit)
	}
	return nil
}
