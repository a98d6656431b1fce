package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION"
	CodeEmbeddingSync      = "EMBEDDING_SYNC"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeProviderError      = "PROVIDER_ERROR"
	CodeAPIKeyMissing      = "API_KEY_MISSING"
)

// BankError is a structured error with a code and actionable suggestion.
type BankError struct {
	Code       string // machine-readable code (e.g. STORAGE_UNAVAILABLE)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *BankError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *BankError) Unwrap() error {
	return e.Err
}

// New creates a BankError with the given code and message.
func New(code, message string) *BankError {
	return &BankError{Code: code, Message: message}
}

// Newf creates a BankError with a formatted message.
func Newf(code, format string, args ...any) *BankError {
	return &BankError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a BankError wrapping an existing error.
func Wrap(code, message string, err error) *BankError {
	return &BankError{Code: code, Message: message, Err: err}
}

// WithSuggestion returns a copy with the suggestion set.
func (e *BankError) WithSuggestion(suggestion string) *BankError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *BankError) Is(target error) bool {
	var be *BankError
	if errors.As(target, &be) {
		return e.Code == be.Code
	}
	return false
}

// AsCode extracts the BankError code from an error, or "" if not a BankError.
func AsCode(err error) string {
	var be *BankError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not a BankError.
func Suggestion(err error) string {
	var be *BankError
	if errors.As(err, &be) {
		return be.Suggestion
	}
	return ""
}
