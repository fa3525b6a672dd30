package errors

import (
	"fmt"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.Component != ComponentUnknown {
		t.Errorf("Expected component 'unknown', got '%s'", ee.Component)
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic', got '%s'", ee.Category)
	}
}

func TestBuilderChaining(t *testing.T) {
	t.Parallel()

	ee := Newf("detection failed for entry %s", "abc").
		Component("entries").
		Category(CategoryModelUnavailable).
		Context("entry_id", "abc").
		Build()

	if ee.Component != "entries" {
		t.Errorf("Expected component 'entries', got '%s'", ee.Component)
	}
	if ee.Category != CategoryModelUnavailable {
		t.Errorf("Expected category 'model-unavailable', got '%s'", ee.Category)
	}
	if got := ee.GetContext()["entry_id"]; got != "abc" {
		t.Errorf("Expected context entry_id 'abc', got '%v'", got)
	}
}

func TestSentinelUnwrapping(t *testing.T) {
	t.Parallel()

	wrapped := New(fmt.Errorf("model load: %w", ErrDetectionUnavailable)).
		Category(CategoryModelUnavailable).
		Build()

	if !Is(wrapped, ErrDetectionUnavailable) {
		t.Error("Expected wrapped error to match ErrDetectionUnavailable")
	}
	if Is(wrapped, ErrNotFound) {
		t.Error("Did not expect wrapped error to match ErrNotFound")
	}
}

func TestCategoryMatching(t *testing.T) {
	t.Parallel()

	a := Newf("a").Category(CategoryValidation).Build()
	b := Newf("b").Category(CategoryValidation).Build()
	c := Newf("c").Category(CategoryDatabase).Build()

	if !Is(a, b) {
		t.Error("Expected errors with the same category to match")
	}
	if Is(a, c) {
		t.Error("Did not expect errors with different categories to match")
	}
}
