package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource (file, record) was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeParse indicates a malformed row or field
	ErrorTypeParse ErrorType = "PARSE"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeUnauthorized indicates there is no credential to send
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeAuthExpired indicates the server rejected the credential
	ErrorTypeAuthExpired ErrorType = "AUTH_EXPIRED"

	// ErrorTypeNetwork indicates a transport failure
	ErrorTypeNetwork ErrorType = "NETWORK"

	// ErrorTypeServer indicates a non-success HTTP status
	ErrorTypeServer ErrorType = "SERVER"

	// ErrorTypeDecoding indicates a response body did not match the expected shape
	ErrorTypeDecoding ErrorType = "DECODING"

	// ErrorTypeCacheCorrupt indicates a cache entry could not be decoded
	ErrorTypeCacheCorrupt ErrorType = "CACHE_CORRUPT"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Status  int
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Type == ErrorTypeServer && e.Status != 0 {
		if msg == "" {
			msg = fmt.Sprintf("request failed with status code %d", e.Status)
		} else {
			msg = fmt.Sprintf("request failed (%d): %s", e.Status, msg)
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Err:     err,
	}
}

// NewParseError creates a new parse error
func NewParseError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewAuthExpiredError creates a new auth expired error
func NewAuthExpiredError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthExpired,
		Message: message,
		Status:  401,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewServerError creates a new server error for a non-success status
func NewServerError(status int, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeServer,
		Message: message,
		Status:  status,
	}
}

// NewDecodingError creates a new decoding error
func NewDecodingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeDecoding,
		Message: message,
		Err:     err,
	}
}

// NewCacheCorruptError creates a new cache corrupt error
func NewCacheCorruptError(key string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeCacheCorrupt,
		Message: fmt.Sprintf("cache entry %q is corrupt", key),
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain holds an AppError of type t.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsAuthExpired reports whether the session layer should sign the user out.
func IsAuthExpired(err error) bool {
	return IsType(err, ErrorTypeAuthExpired)
}

// IsTransient reports whether a retry may succeed: network failures and 5xx.
func IsTransient(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeServer:
		return appErr.Status >= 500
	default:
		return false
	}
}
