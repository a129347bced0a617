package logger

import (
	"strings"
	"testing"
)

func TestSanitizeMasksSecrets(t *testing.T) {
	s := NewSanitizer("super-secret-password", "key1234")

	message := "login failed for super-secret-password using key1234"
	sanitized := s.Sanitize(message)

	if strings.Contains(sanitized, "super-secret-password") {
		t.Fatalf("long secret leaked: %q", sanitized)
	}

	if strings.Contains(sanitized, "key1234") {
		t.Fatalf("short secret leaked: %q", sanitized)
	}

	if !strings.Contains(sanitized, "su***rd") {
		t.Fatalf("expected partial mask for long secret, got %q", sanitized)
	}
}

func TestSanitizeIgnoresShortValues(t *testing.T) {
	s := NewSanitizer("ab", "   ", "")

	message := "ab is fine to keep"
	if got := s.Sanitize(message); got != message {
		t.Fatalf("short values must not be masked, got %q", got)
	}
}

func TestSanitizeNoSecrets(t *testing.T) {
	s := NewSanitizer()

	message := "nothing to mask"
	if got := s.Sanitize(message); got != message {
		t.Fatalf("expected unchanged message, got %q", got)
	}
}
