package errors

import (
	"errors"
	"fmt"
)

// Error types for different failure domains in the pipeline
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeUnauthorized  ErrorType = "unauthorized"
	ErrorTypeFetch         ErrorType = "fetch"
	ErrorTypeEmptyData     ErrorType = "empty_data"
	ErrorTypeSummarization ErrorType = "summarization"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		Retryable:  false,
		StatusCode: 401,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewFetchError marks a network/API failure or missing credentials at the
// acquisition boundary. The orchestrator recovers from it locally by skipping
// the run, so it never propagates to a caller as a 5xx.
func NewFetchError(source, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeFetch,
		Code:       "FETCH_FAILED",
		Message:    fmt.Sprintf("%s fetch failed: %s", source, message),
		Retryable:  true,
		StatusCode: 502,
		Details:    map[string]interface{}{"source": source},
	}
}

// NewEmptyDataError marks a valid upstream response carrying zero records.
func NewEmptyDataError(source, country string) *AppError {
	return &AppError{
		Type:       ErrorTypeEmptyData,
		Code:       "EMPTY_DATA",
		Message:    fmt.Sprintf("no %s data for %s", source, country),
		Retryable:  true,
		StatusCode: 404,
		Details:    map[string]interface{}{"source": source, "country": country},
	}
}

// NewSummarizationError marks a summarizer collaborator failure. The
// orchestrator substitutes a deterministic fallback rendering instead of
// failing the run.
func NewSummarizationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeSummarization,
		Code:       "SUMMARIZATION_FAILED",
		Message:    message,
		Retryable:  true,
		StatusCode: 502,
	}
}

// ErrCountryNotFound rejects requests for countries outside the watch list.
var ErrCountryNotFound = NewNotFoundError("country")

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsNoData reports whether an error should degrade the run to
// skipped-no-data rather than fail the batch: both fetch failures and
// legitimately empty responses qualify.
func IsNoData(err error) bool {
	return IsType(err, ErrorTypeFetch) || IsType(err, ErrorTypeEmptyData)
}

// FromError extracts the structured error from an error chain, wrapping
// anything unstructured as a generic internal error.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("An internal error occurred").WithCause(err)
}
