package validator

import (
	"errors"
	"strings"
	"testing"

	"gatemaster/internal/domain"
)

func TestStructNamesFieldsByTag(t *testing.T) {
	v := New()
	err := v.Struct(domain.Registration{Username: "asha", Email: "not-an-email", Password: "longenough", Password2: "different"})

	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %T %v", err, err)
	}
	if _, ok := fields["email"]; !ok {
		t.Fatalf("expected email error, got %v", fields)
	}
	if msg, ok := fields["password2"]; !ok || !strings.Contains(msg, "password2") {
		t.Fatalf("expected translated password2 error, got %v", fields)
	}
	if _, ok := fields["username"]; ok {
		t.Fatalf("username is valid, got %v", fields)
	}
}

func TestStructRequired(t *testing.T) {
	err := New().Struct(domain.Credentials{Username: "asha"})
	if err == nil {
		t.Fatalf("expected missing password to fail")
	}
	if got := err.Error(); got != "validation failed: password: password is a required field" {
		t.Fatalf("unexpected message %q", got)
	}
	if err := New().Struct(domain.Credentials{Username: "asha", Password: "pw"}); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
}

func TestFieldErrorsSorted(t *testing.T) {
	err := FieldErrors{"b": "second", "a": "first"}
	if got := err.Error(); got != "validation failed: a: first; b: second" {
		t.Fatalf("unexpected order %q", got)
	}
}
