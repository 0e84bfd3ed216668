// Package security guards the SQL fragments a bulk statement inlines
// verbatim (unescaped values, raw expressions, update assignments) and
// provides audit logging of executed writes.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDangerousFragment is returned when an inlined fragment matches an
// injection pattern.
var ErrDangerousFragment = errors.New("dangerous SQL fragment")

// Validator checks inlined SQL fragments against injection patterns.
type Validator struct {
	patterns []*regexp.Regexp
	strict   bool
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict enables strict validation mode (more aggressive).
func WithStrict(strict bool) ValidatorOption {
	return func(v *Validator) {
		v.strict = strict
	}
}

// WithPatterns adds extra regular expressions (matched against the upper
// cased fragment). Invalid patterns are ignored.
func WithPatterns(patterns ...string) ValidatorOption {
	return func(v *Validator) {
		v.patterns = append(v.patterns, compilePatterns(patterns)...)
	}
}

// NewValidator creates a validator with the default dangerous patterns.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		patterns: compilePatterns(dangerousPatterns),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.strict {
		v.patterns = append(v.patterns, compilePatterns(strictPatterns)...)
	}

	return v
}

// dangerousPatterns never appear in a legitimate value expression such as
// NOW(), counter + 1 or COALESCE(VALUES(`x`), `x`).
var dangerousPatterns = []string{
	// Comments
	`--`,
	`/\*`,
	`#`,

	// Stacked statements
	`;`,

	// UNION-based attacks
	`UNION\s+(ALL\s+)?SELECT`,

	// Subqueries and exfiltration
	`\bSELECT\b`,
	`INFORMATION_SCHEMA`,
	`\bINTO\s+(OUT|DUMP)FILE\b`,
	`\bLOAD_FILE\s*\(`,

	// Timing attacks
	`\bSLEEP\s*\(`,
	`BENCHMARK\s*\(`,

	// Boolean-based blind injection
	`\bOR\s+1\s*=\s*1\b`,
	`\bOR\s+'1'\s*=\s*'1'`,
}

// strictPatterns may reject legitimate expressions.
var strictPatterns = []string{
	`'`,           // string literals
	`"`,           // quoted literals
	`\bOR\b`,      // any OR
	`\bAND\b`,     // any AND
	`\bEXEC\w*\b`, // EXEC / EXECUTE
}

// ValidateFragment checks a single fragment that will be inlined into the
// statement text. Empty fragments are rejected: an empty inlined value
// would produce invalid SQL.
func (v *Validator) ValidateFragment(fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return fmt.Errorf("%w: empty fragment", ErrDangerousFragment)
	}

	normalized := strings.ToUpper(fragment)
	for _, pattern := range v.patterns {
		if pattern.MatchString(normalized) {
			return fmt.Errorf("%w: %q matches %s", ErrDangerousFragment, fragment, pattern.String())
		}
	}
	return nil
}

// ValidateFragments validates every fragment and returns the first error.
func (v *Validator) ValidateFragments(fragments []string) error {
	for _, f := range fragments {
		if err := v.ValidateFragment(f); err != nil {
			return err
		}
	}
	return nil
}

// compilePatterns compiles string patterns to regexp.Regexp.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}
