package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBankError_Error(t *testing.T) {
	err := New(CodeValidation, "summary is required")
	expected := "[VALIDATION] summary is required"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestBankError_Wrap(t *testing.T) {
	inner := fmt.Errorf("unable to open database file")
	err := Wrap(CodeStorageUnavailable, "open workspace store", inner)

	if err.Error() != "[STORAGE_UNAVAILABLE] open workspace store: unable to open database file" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	// Unwrap should return inner
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find inner error")
	}
}

func TestBankError_WithSuggestion(t *testing.T) {
	err := New(CodeAPIKeyMissing, "OPENAI_API_KEY not set").
		WithSuggestion("Set the OPENAI_API_KEY environment variable or add api_key to membank.yaml")

	if err.Suggestion != "Set the OPENAI_API_KEY environment variable or add api_key to membank.yaml" {
		t.Errorf("unexpected suggestion: %s", err.Suggestion)
	}
}

func TestBankError_ErrorsAs(t *testing.T) {
	err := Wrap(CodeProviderError, "embedding request failed", fmt.Errorf("status 503"))

	var bankErr *BankError
	if !errors.As(err, &bankErr) {
		t.Fatal("errors.As should work")
	}
	if bankErr.Code != CodeProviderError {
		t.Errorf("expected code %q, got %q", CodeProviderError, bankErr.Code)
	}
}

func TestAsCode(t *testing.T) {
	err := New(CodeNotFound, "no such decision")
	if AsCode(err) != CodeNotFound {
		t.Errorf("expected code %q, got %q", CodeNotFound, AsCode(err))
	}

	// Non-BankError
	plain := fmt.Errorf("plain error")
	if AsCode(plain) != "" {
		t.Error("expected empty code for non-BankError")
	}
}

func TestSuggestion(t *testing.T) {
	err := New(CodeConfigInvalid, "bad provider").WithSuggestion("use openai, local or off")
	if Suggestion(err) != "use openai, local or off" {
		t.Errorf("expected 'use openai, local or off', got %q", Suggestion(err))
	}

	// Non-BankError
	if Suggestion(fmt.Errorf("plain")) != "" {
		t.Error("expected empty suggestion for non-BankError")
	}
}

func TestBankError_WrappedAs(t *testing.T) {
	inner := New(CodeEmbeddingSync, "vector upsert failed")
	wrapped := fmt.Errorf("sync pipeline: %w", inner)

	var bankErr *BankError
	if !errors.As(wrapped, &bankErr) {
		t.Fatal("errors.As should unwrap through fmt.Errorf")
	}
	if bankErr.Code != CodeEmbeddingSync {
		t.Errorf("expected code %q, got %q", CodeEmbeddingSync, bankErr.Code)
	}
}
