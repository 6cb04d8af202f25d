// Package errors provides structured error types for sage.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for sage operations.
const (
	// Config errors
	CodeConfigInvalidProfile = "CONFIG_001" // Missing or unknown profile
	CodeConfigInvalidValue   = "CONFIG_002" // Invalid config or bundle value

	// Installation record errors
	CodeRecordMissing   = "RECORD_001" // No manifest present
	CodeRecordMalformed = "RECORD_002" // Manifest is not valid JSON

	// Content errors
	CodeSourceMissing     = "SOURCE_001" // Source path absent from the package
	CodeSettingsMalformed = "SETTINGS_001"

	// Lock errors
	CodeLockHeld = "LOCK_001" // Another run holds the target lock

	// IO errors
	CodeIOReadError   = "IO_001" // Read error
	CodeIOWriteError  = "IO_002" // Write error
	CodeIORemoveError = "IO_003" // Remove error
	CodeIOCopyError   = "IO_004" // Copy/move error
)

// SageError is the structured error type for sage operations.
type SageError struct {
	Code    string         `json:"code"`              // Error code (e.g., "RECORD_001")
	Message string         `json:"message"`           // Human-readable message
	Details map[string]any `json:"details,omitempty"` // Context (path, profile, etc.)
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *SageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SageError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *SageError) WithDetail(key string, value any) *SageError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *SageError) WithCause(err error) *SageError {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with cause error message.
func (e *SageError) MarshalJSON() ([]byte, error) {
	type alias SageError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new SageError.
func New(code, message string) *SageError {
	return &SageError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new SageError with formatted message.
func Newf(code, format string, args ...any) *SageError {
	return &SageError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a SageError.
func Wrap(code, message string, err error) *SageError {
	return &SageError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted SageError.
func Wrapf(code string, err error, format string, args ...any) *SageError {
	return &SageError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// --- Config Errors ---

// InvalidProfile creates an error for a missing or unknown profile.
// An empty name means no profile was selected at all.
func InvalidProfile(name string, known []string) *SageError {
	if name == "" {
		return Newf(CodeConfigInvalidProfile, "no install profile selected: use one of %v", known).
			WithDetail("known", known)
	}
	return Newf(CodeConfigInvalidProfile, "unknown install profile %q: use one of %v", name, known).
		WithDetail("profile", name).
		WithDetail("known", known)
}

// ConfigInvalidValue creates an error for invalid config value.
func ConfigInvalidValue(field string, value any, reason string) *SageError {
	return Newf(CodeConfigInvalidValue, "invalid config value for %s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// --- Record Errors ---

// RecordMissing creates an error for an absent installation manifest.
func RecordMissing(path string) *SageError {
	return Newf(CodeRecordMissing, "no installation record found at %s", path).
		WithDetail("path", path)
}

// RecordMalformed creates an error for an unreadable installation manifest.
func RecordMalformed(path string, err error) *SageError {
	return Wrap(CodeRecordMalformed, "installation record is not valid JSON", err).
		WithDetail("path", path)
}

// --- Content Errors ---

// SourceMissing creates an error for a source path absent from the package.
func SourceMissing(source string) *SageError {
	return Newf(CodeSourceMissing, "source not found in package: %s", source).
		WithDetail("source", source)
}

// SettingsMalformed creates an error for a settings file that does not parse.
func SettingsMalformed(path string, err error) *SageError {
	return Wrap(CodeSettingsMalformed, "settings file is not valid JSON", err).
		WithDetail("path", path)
}

// --- Lock Errors ---

// LockHeld creates an error for a target directory locked by another run.
func LockHeld(path string, pid int) *SageError {
	e := Newf(CodeLockHeld, "another sage run is using %s", path).
		WithDetail("path", path)
	if pid > 0 {
		e.WithDetail("pid", pid)
	}
	return e
}

// --- IO Errors ---

// IOReadError creates an error for read failures.
func IOReadError(path string, err error) *SageError {
	return Wrap(CodeIOReadError, "failed to read", err).
		WithDetail("path", path)
}

// IOWriteError creates an error for write failures.
func IOWriteError(path string, err error) *SageError {
	return Wrap(CodeIOWriteError, "failed to write", err).
		WithDetail("path", path)
}

// IORemoveError creates an error for remove failures.
func IORemoveError(path string, err error) *SageError {
	return Wrap(CodeIORemoveError, "failed to remove", err).
		WithDetail("path", path)
}

// IOCopyError creates an error for copy or move failures.
func IOCopyError(src, dst string, err error) *SageError {
	return Wrapf(CodeIOCopyError, err, "failed to copy %s to %s", src, dst).
		WithDetail("src", src).
		WithDetail("dst", dst)
}

// HasCode checks if an error is a SageError with the given code.
// It handles wrapped errors by unwrapping to find a SageError.
func HasCode(err error, code string) bool {
	var serr *SageError
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

// Code returns the error code if err is a SageError, empty string otherwise.
// It handles wrapped errors by unwrapping to find a SageError.
func Code(err error) string {
	var serr *SageError
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ""
}
