package errorsx

import (
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonLLMGenerate)
	if Reason(err) != ReasonLLMGenerate {
		t.Fatalf("expected reason %s, got %s", ReasonLLMGenerate, Reason(err))
	}
	if !HasReason(err, ReasonLLMGenerate) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonTranslatePrimary)
	second := Wrap(first, ReasonTranslateFallback)
	if Reason(second) != ReasonTranslatePrimary {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestValidationError(t *testing.T) {
	err := Invalid("text", "required")
	if !IsValidation(err) {
		t.Fatalf("expected validation error")
	}
	if err.Error() != "text: required" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	wrapped := fmt.Errorf("request rejected: %w", err)
	if !IsValidation(wrapped) {
		t.Fatalf("expected validation detected through wrapping")
	}
	if IsValidation(assertErr{}) {
		t.Fatalf("did not expect validation for plain error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
