// Package errors provides structured error types for the page composer.
//
// This package defines error codes and types that enable:
//   - Recoverable lookups (absent keys, unknown widgets) that callers can branch on
//   - Machine-readable error codes carried across the message channel
//   - User-friendly error messages for inline panel errors
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND / NOT_FOUND: Lookups of absent keys, widgets or components
//   - NETWORK_*: Network-related errors
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeKeyNotFound, "no entry for key %q", key)
//	if errors.Is(err, errors.ErrCodeKeyNotFound) {
//	    // recoverable: the caller decides
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to load %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidOrder  Code = "INVALID_ORDER"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeRequired      Code = "REQUIRED_FIELD"

	// Lookup errors
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeKeyNotFound       Code = "KEY_NOT_FOUND"
	ErrCodeUnknownTypeTag    Code = "UNKNOWN_TYPE_TAG"
	ErrCodeComponentNotFound Code = "COMPONENT_NOT_FOUND"
	ErrCodeSessionNotFound   Code = "SESSION_NOT_FOUND"

	// Layout errors
	ErrCodeDetached Code = "DETACHED"
	ErrCodeNoLayout Code = "NO_LAYOUT"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// KeyNotFound is a shorthand for the recoverable lookup failure of ordered collections.
func KeyNotFound(key any) *Error {
	return New(ErrCodeKeyNotFound, "no entry found for key %v", key)
}

// StatusError carries the HTTP status of a failed backend request so panels can
// render "statusText, statusCode" style messages.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned statusText: %s, statusCode: %d for request.url=%s", e.Status, e.StatusCode, e.URL)
}

// Code returns the error code for this error type.
func (e *StatusError) Code() Code {
	if e.StatusCode == 404 {
		return ErrCodeNotFound
	}
	return ErrCodeNetwork
}
