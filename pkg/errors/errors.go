package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones of a predefined error
// still satisfy errors.Is against the original.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid credentials.")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "Authentication required.")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "Internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Share access errors.
var (
	ErrInvalidLink      = New("INVALID_LINK", http.StatusForbidden, "Invalid link.")
	ErrLinkExpired      = New("LINK_EXPIRED", http.StatusGone, "Link expired.")
	ErrLinkExhausted    = New("LINK_EXHAUSTED", http.StatusGone, "Link already used.")
	ErrPasswordRequired = New("PASSWORD_REQUIRED", http.StatusUnauthorized, "Password required.")
	ErrPasswordInvalid  = New("PASSWORD_INVALID", http.StatusUnauthorized, "Invalid password.")
	ErrWrongKind        = New("WRONG_KIND", http.StatusBadRequest, "This link does not contain a file.")
	ErrAlreadyReported  = New("ALREADY_REPORTED", http.StatusBadRequest, "You already reported this link.")
	ErrUploadTooLarge   = New("UPLOAD_TOO_LARGE", http.StatusBadRequest, "File too large.")
	ErrInvalidToken     = New("INVALID_TOKEN", http.StatusBadRequest, "Invalid token.")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsPasswordPrompt reports whether the client should ask the user for a share password.
func IsPasswordPrompt(err error) bool {
	return errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrPasswordInvalid)
}
