// Package errors provides structured error types for schemagraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the engine
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The engine surfaces four families of failures distinctly:
//   - GENERATION_FAILED: the schema collaborator could not be read
//   - INVALID_LAYOUT: an unknown layout algorithm was requested
//   - EXPORT_*: an output backend failed or is unavailable
//   - PERSISTENCE_FAILED: the storage collaborator failed
//
// A missing saved diagram is never an error: lookups report absence
// explicitly.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid schema name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeGeneration, origErr, "list tables of %s", schema)
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
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidIdentifier Code = "INVALID_IDENTIFIER"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"
	ErrCodeInvalidLayout     Code = "INVALID_LAYOUT"

	// Resource not found errors
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeUnknownConnection Code = "UNKNOWN_CONNECTION"

	// Engine errors
	ErrCodeGeneration        Code = "GENERATION_FAILED"
	ErrCodeSuperseded        Code = "SUPERSEDED"
	ErrCodeExport            Code = "EXPORT_FAILED"
	ErrCodeExportUnavailable Code = "EXPORT_UNAVAILABLE"
	ErrCodePersistence       Code = "PERSISTENCE_FAILED"

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

// IsRecoverable reports whether the failure leaves engine state untouched
// and the caller may simply retry or pick another option. Export failures,
// superseded generations and persistence failures all qualify.
func IsRecoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeExport, ErrCodeExportUnavailable, ErrCodeSuperseded, ErrCodePersistence, ErrCodeGeneration:
		return true
	}
	return false
}
