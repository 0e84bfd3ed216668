package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSensitiveColumns are masked when NewSanitizer is given no list.
var DefaultSensitiveColumns = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

// Sanitizer masks bound parameters whose column looks sensitive so that
// secrets never reach the log. A bulk statement knows the column of every
// parameter, so masking is exact rather than statement-wide.
type Sanitizer struct {
	maskValue string
	patterns  []*regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given column name fragments.
// If none are provided, DefaultSensitiveColumns is used.
func NewSanitizer(sensitiveColumns []string) *Sanitizer {
	if len(sensitiveColumns) == 0 {
		sensitiveColumns = DefaultSensitiveColumns
	}

	patterns := make([]*regexp.Regexp, 0, len(sensitiveColumns))
	for _, col := range sensitiveColumns {
		// "_" counts as a boundary so user_password and password_hash match.
		pattern := regexp.MustCompile(`(?i)(^|[^a-z0-9])` + regexp.QuoteMeta(col) + `($|[^a-z0-9])`)
		patterns = append(patterns, pattern)
	}

	return &Sanitizer{
		maskValue: "***REDACTED***",
		patterns:  patterns,
	}
}

// IsSensitive reports whether the column name matches a sensitive pattern.
func (s *Sanitizer) IsSensitive(column string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(column) {
			return true
		}
	}
	return false
}

// MaskColumns returns a copy of params in which every value whose column
// (paramColumns[i]) is sensitive is replaced by the mask. If the two slices
// disagree in length nothing can be attributed, so every value is masked.
// params is never modified.
func (s *Sanitizer) MaskColumns(paramColumns []string, params []any) []any {
	if len(params) == 0 {
		return params
	}

	masked := make([]any, len(params))
	if len(paramColumns) != len(params) {
		for i := range masked {
			masked[i] = s.maskValue
		}
		return masked
	}

	cache := make(map[string]bool)
	for i, p := range params {
		col := paramColumns[i]
		sensitive, ok := cache[col]
		if !ok {
			sensitive = s.IsSensitive(col)
			cache[col] = sensitive
		}
		if sensitive {
			masked[i] = s.maskValue
		} else {
			masked[i] = p
		}
	}
	return masked
}

// FormatParams renders parameters for a log line. Mask them first.
func (s *Sanitizer) FormatParams(params []any) string {
	if len(params) == 0 {
		return "[]"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue truncates long values to keep log lines bounded.
func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)

	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
