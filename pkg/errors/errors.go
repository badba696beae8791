package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	// Record store errors
	ErrRecordNotFound   ErrorCode = "RECORD_NOT_FOUND"
	ErrDuplicateRecord  ErrorCode = "DUPLICATE_RECORD"
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrPersistFailure   ErrorCode = "PERSIST_FAILURE"

	// Blob store errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrIOFailure    ErrorCode = "IO_FAILURE"

	// Lifecycle errors
	ErrFileExpired        ErrorCode = "FILE_EXPIRED"
	ErrUnsupportedType    ErrorCode = "UNSUPPORTED_TYPE"
	ErrFileTooBig         ErrorCode = "FILE_TOO_BIG"
	ErrFileEmpty          ErrorCode = "FILE_EMPTY"
	ErrIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"

	// Validation errors
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Generic errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with user-friendly messaging
type AppError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	UserMessage string                 `json:"user_message"`
	Cause       error                  `json:"-"` // Don't serialize the underlying error
	Context     map[string]interface{} `json:"context,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// WithContext attaches a key/value pair to the error context and
// returns the error for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		UserMessage: getUserFriendlyMessage(code, message),
		Cause:       cause,
		Timestamp:   time.Now(),
	}
}

// WrapError wraps an existing error with application error context.
// If the error is already an AppError its code is preserved.
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewAppError(code, message, err)
}

// IsCode reports whether err is (or wraps) an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// CodeOf extracts the error code from err, or ErrInternalError if err
// carries no application code.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalError
}

// UserMessageOf extracts a user-facing message from err, falling back
// to a generic one for errors without an application code.
func UserMessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.GetUserMessage()
	}
	return "An unexpected error occurred. Please try again."
}

// ClassifyError attempts to classify a generic error into an AppError
func ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	// Filesystem errors
	if errors.Is(err, fs.ErrNotExist) {
		return NewAppError(ErrFileNotFound, "File not found", err)
	}
	if errors.Is(err, fs.ErrPermission) {
		return NewAppError(ErrIOFailure, "Permission denied", err)
	}

	errStr := strings.ToLower(err.Error())

	// Database errors (based on driver message patterns)
	if strings.Contains(errStr, "database") || strings.Contains(errStr, "sql") {
		if strings.Contains(errStr, "no rows") {
			return NewAppError(ErrRecordNotFound, "Record not found", err)
		}
		if strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "duplicate") {
			return NewAppError(ErrDuplicateRecord, "Duplicate record", err)
		}
		return NewAppError(ErrStoreUnavailable, "Database error", err)
	}

	return NewAppError(ErrInternalError, "An unexpected error occurred", err)
}

// getUserFriendlyMessage returns a user-friendly message for the error code
func getUserFriendlyMessage(code ErrorCode, originalMessage string) string {
	switch code {
	case ErrRecordNotFound, ErrFileNotFound:
		return "The file you're looking for could not be found. It may have been moved or deleted."
	case ErrFileExpired:
		return "This file has expired and is no longer available."
	case ErrUnsupportedType:
		return "This file type is not allowed. Please choose a supported file type."
	case ErrFileTooBig:
		return "The file is too large to upload. Please choose a smaller file."
	case ErrFileEmpty:
		return "The file appears to be empty. Please choose a file with content."
	case ErrDuplicateRecord:
		return "A file with this identifier already exists. Please try the upload again."
	case ErrStoreUnavailable:
		return "The file database is currently unavailable. Please try again later."
	case ErrPersistFailure:
		return "Failed to save file information. Please try again."
	case ErrIOFailure, ErrIntegrityViolation:
		return "A storage error occurred. Please try again."
	case ErrInvalidInput:
		return "The provided input is invalid. Please check your input and try again."
	case ErrInvalidConfig:
		return "There's a configuration error. Please check your settings."
	default:
		if originalMessage != "" {
			return originalMessage
		}
		return "An unexpected error occurred. Please try again."
	}
}
