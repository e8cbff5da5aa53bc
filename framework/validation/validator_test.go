package validation_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-container/framework/validation"
)

// ── helpers ──────────────────────────────────────────────────────────────────

// pass asserts the validator passes for the given data/rules.
func pass(t *testing.T, label string, data map[string]string, rules validation.Rules) {
	t.Helper()
	t.Run(label, func(t *testing.T) {
		v := validation.Make(data, rules)
		if v.Fails() {
			t.Errorf("expected PASS, got FAIL: %+v", v.Errors().Bag)
		}
	})
}

// fail asserts the validator fails with an error on the given field.
func fail(t *testing.T, label, field string, data map[string]string, rules validation.Rules) {
	t.Helper()
	t.Run(label, func(t *testing.T) {
		v := validation.Make(data, rules)
		if v.Passes() {
			t.Errorf("expected FAIL on field %q, but validator PASSED", field)
		}
		if v.Errors().First(field) == "" {
			t.Errorf("expected error on field %q, got %+v", field, v.Errors().Bag)
		}
	})
}

// ── rules ────────────────────────────────────────────────────────────────────

func TestValidation_Required(t *testing.T) {
	r := validation.Rules{"name": "required"}

	pass(t, "non-empty value", map[string]string{"name": "Alice"}, r)
	fail(t, "empty string", "name", map[string]string{"name": ""}, r)
	fail(t, "whitespace only", "name", map[string]string{"name": "   "}, r)
	fail(t, "missing key", "name", map[string]string{}, r)
}

func TestValidation_Sometimes(t *testing.T) {
	r := validation.Rules{"port": "sometimes|integer"}

	pass(t, "absent", map[string]string{}, r)
	pass(t, "valid", map[string]string{"port": "3306"}, r)
	fail(t, "invalid", "port", map[string]string{"port": "http"}, r)
}

func TestValidation_Range(t *testing.T) {
	r := validation.Rules{"port": "integer|gte:1|lte:65535"}

	pass(t, "in range", map[string]string{"port": "8080"}, r)
	fail(t, "zero", "port", map[string]string{"port": "0"}, r)
	fail(t, "too large", "port", map[string]string{"port": "70000"}, r)
	fail(t, "gte on text", "n", map[string]string{"n": "x"}, validation.Rules{"n": "gte:1"})
}

func TestValidation_Charsets(t *testing.T) {
	pass(t, "alpha_num", map[string]string{"c": "utf8mb4"}, validation.Rules{"c": "alpha_num"})
	fail(t, "alpha_num quote", "c", map[string]string{"c": "utf8'"}, validation.Rules{"c": "alpha_num"})
	pass(t, "alpha_dash", map[string]string{"c": "utf8mb4_unicode_ci"}, validation.Rules{"c": "alpha_dash"})
	fail(t, "alpha_dash space", "c", map[string]string{"c": "a b"}, validation.Rules{"c": "alpha_dash"})
}

func TestValidation_InMaxRegex(t *testing.T) {
	pass(t, "in", map[string]string{"f": "json"}, validation.Rules{"f": "in:text, json"})
	fail(t, "not in", "f", map[string]string{"f": "xml"}, validation.Rules{"f": "in:text,json"})
	fail(t, "max", "tag", map[string]string{"tag": "abcdef"}, validation.Rules{"tag": "max:5"})
	pass(t, "regex", map[string]string{"tag": "app.mailer"}, validation.Rules{"tag": `regex:^[\w.-]+$`})
	fail(t, "regex mismatch", "tag", map[string]string{"tag": "a b"}, validation.Rules{"tag": `regex:^[\w.-]+$`})
}

func TestValidation_UnknownRule(t *testing.T) {
	fail(t, "unknown", "x", map[string]string{"x": "1"}, validation.Rules{"x": "uuid"})
}

func TestValidation_MessageFormat(t *testing.T) {
	v := validation.Make(map[string]string{"name": ""}, validation.Rules{"name": "required"})
	_ = v.Fails()
	if got, want := v.Errors().First("name"), "The name field is required."; got != want {
		t.Errorf("message: got %q want %q", got, want)
	}
}

func TestValidation_FailsIsIdempotent(t *testing.T) {
	v := validation.Make(map[string]string{}, validation.Rules{"name": "required"})
	_ = v.Fails()
	_ = v.Fails()
	if n := len(v.Errors().Bag["name"]); n != 1 {
		t.Errorf("expected 1 message, got %d", n)
	}
}

func TestValidation_Validate(t *testing.T) {
	v := validation.Make(map[string]string{"b": "x"}, validation.Rules{"a": "required", "b": "integer"})
	err := v.Validate()

	var bag *validation.Errors
	if !errors.As(err, &bag) {
		t.Fatalf("expected *validation.Errors, got %T", err)
	}
	if got := bag.Fields(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("fields: got %v", got)
	}
	if want := "The a field is required. The b must be an integer."; err.Error() != want {
		t.Errorf("Error(): got %q want %q", err.Error(), want)
	}

	if err := validation.Make(map[string]string{"a": "1"}, validation.Rules{"a": "required"}).Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
