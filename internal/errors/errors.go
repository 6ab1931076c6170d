package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeUpstream          ErrorType = "upstream"
	ErrorTypeContractViolation ErrorType = "contract_violation"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeInternal          ErrorType = "internal"
)

// Error codes returned to clients in the "code" field.
const (
	CodeMissingPhoto         = "missing_photo"
	CodeInvalidPostType      = "invalid_post_type"
	CodeInvalidRegenerate    = "invalid_regenerate_target"
	CodeUnsupportedMediaType = "unsupported_media_type"
	CodeInvalidRequest       = "invalid_request"
	CodeAnalysisUpstream     = "analysis_upstream_error"
	CodeAnalysisContract     = "analysis_contract_violation"
	CodeInternal             = "internal_error"
)

var (
	ErrMissingPhoto       = errors.New("photo is required")
	ErrNoPreview          = errors.New("no preview available")
	ErrMissingCredentials = errors.New("missing credentials")
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches an upstream diagnostic to the error.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewUpstreamError creates an error for a failed call to an external service
func NewUpstreamError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUpstream,
		Code:       CodeAnalysisUpstream,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewContractViolation creates an error for a reachable service that returned an unusable payload
func NewContractViolation(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeContractViolation,
		Code:       CodeAnalysisContract,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewTimeoutError creates a timeout error. Timeouts of outbound calls are
// reported with the upstream code so clients see a single failure class.
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Code:       CodeAnalysisUpstream,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetCode extracts the client-facing error code from an error
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return CodeInternal
}
