package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewAuthError marks sign-in/session failures. Surfaced to the user, never
// retried automatically.
func NewAuthError(message string, err error) error {
	return &DomainError{Code: "AUTH_FAILED", Message: message, HTTPStatus: http.StatusUnauthorized, Err: err}
}

// NewProfileFetchError marks a profile read failure. The session mirror
// degrades to a nil profile; nothing above it treats this as fatal.
func NewProfileFetchError(err error) error {
	return &DomainError{Code: "PROFILE_FETCH_FAILED", Message: "could not load profile", HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

// NewDeviceError marks camera unavailability. Non-fatal; the upload path
// stays open.
func NewDeviceError(err error) error {
	return &DomainError{Code: "DEVICE_UNAVAILABLE", Message: "could not access camera", HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

// NewAnalysisError marks an analysis failure. The workflow keeps the image
// so the user can retry.
func NewAnalysisError(err error) error {
	return &DomainError{Code: "ANALYSIS_FAILED", Message: "analysis failed", HTTPStatus: http.StatusBadGateway, Err: err}
}

// NewPersistenceError marks a record-store write failure after a successful
// analysis. Retry is user-initiated.
func NewPersistenceError(err error) error {
	return &DomainError{Code: "PERSISTENCE_FAILED", Message: "could not save scan result", HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
