package security

import (
	"errors"
	"testing"
)

func TestValidator_ValidateFragment(t *testing.T) {
	tests := []struct {
		name      string
		fragment  string
		strict    bool
		wantError bool
	}{
		// Legitimate expressions
		{name: "now", fragment: "NOW()"},
		{name: "arithmetic", fragment: "counter + 1"},
		{name: "values_function", fragment: "COALESCE(VALUES(`name`), `name`)"},
		{name: "if_expression", fragment: "IF(`a` > 0 AND `b` > 0, 1, 0)"},
		{name: "string_literal", fragment: "'active'"},
		{name: "numeric", fragment: "42"},

		// Injection attempts
		{name: "comment_dash", fragment: "1 -- drop", wantError: true},
		{name: "comment_c", fragment: "1 /* x */", wantError: true},
		{name: "comment_hash", fragment: "1 # x", wantError: true},
		{name: "stacked", fragment: "1); DROP TABLE users", wantError: true},
		{name: "union", fragment: "1 UNION ALL SELECT password FROM users", wantError: true},
		{name: "subquery", fragment: "(select max(id) from users)", wantError: true},
		{name: "sleep", fragment: "sleep(5)", wantError: true},
		{name: "benchmark", fragment: "BENCHMARK(1000000, MD5(1))", wantError: true},
		{name: "outfile", fragment: "1 INTO OUTFILE '/tmp/x'", wantError: true},
		{name: "tautology", fragment: "0 or 1=1", wantError: true},
		{name: "empty", fragment: "  ", wantError: true},

		// Strict mode
		{name: "strict_literal", fragment: "'active'", strict: true, wantError: true},
		{name: "strict_and", fragment: "IF(`a` AND `b`, 1, 0)", strict: true, wantError: true},
		{name: "strict_now", fragment: "NOW()", strict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(WithStrict(tt.strict))
			err := v.ValidateFragment(tt.fragment)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateFragment(%q) error = %v, wantError %v", tt.fragment, err, tt.wantError)
			}
			if err != nil && !errors.Is(err, ErrDangerousFragment) {
				t.Errorf("error %v does not wrap ErrDangerousFragment", err)
			}
		})
	}
}

func TestValidator_ValidateFragments(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateFragments([]string{"NOW()", "counter + 1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.ValidateFragments([]string{"NOW()", "1; DELETE FROM t"}); err == nil {
		t.Fatal("expected error for stacked statement")
	}
	if err := v.ValidateFragments(nil); err != nil {
		t.Fatalf("nil slice should validate, got %v", err)
	}
}

func TestValidator_WithPatterns(t *testing.T) {
	v := NewValidator(WithPatterns(`\bUUID\s*\(`, `(`))

	if err := v.ValidateFragment("UUID()"); err == nil {
		t.Fatal("expected custom pattern to reject UUID()")
	}
	if err := v.ValidateFragment("NOW()"); err != nil {
		t.Fatalf("invalid custom pattern must be ignored, got %v", err)
	}
}
