package redact

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTextDisabledByDefault(t *testing.T) {
	SetEnabled(false)
	in := "reach me at jane@example.com"
	if got := Text(in); got != in {
		t.Fatalf("expected passthrough when disabled, got %q", got)
	}
}

func TestTextRedactsEmailAndPhone(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("email jane@example.com or call +62 812-3456-7890 now")
	if strings.Contains(got, "jane@example.com") {
		t.Fatalf("email not redacted: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_EMAIL]") || !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("expected placeholders, got %q", got)
	}
}

func TestExcerptAlwaysRedactsAndBounds(t *testing.T) {
	SetEnabled(false)
	long := "contact me at jane@example.com " + strings.Repeat("x", 300)
	got := Excerpt(long, 120)
	if strings.Contains(got, "jane@example.com") {
		t.Fatalf("excerpt must redact regardless of toggle: %q", got)
	}
	if len(got) > 124 {
		t.Fatalf("excerpt not bounded: %d", len(got))
	}
}

func TestExcerptKeepsMultibyteRunesIntact(t *testing.T) {
	long := strings.Repeat("මට දුකයි ", 40)
	got := Excerpt(long, 120)
	if !utf8.ValidString(got) {
		t.Fatalf("excerpt split a rune: %q", got)
	}
	if len(got) > 124 {
		t.Fatalf("excerpt not bounded: %d", len(got))
	}
}
