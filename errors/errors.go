package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a class of failure on the API surface
type ErrorCode string

const (
	ErrorCode_OK                ErrorCode = "OK"
	ErrorCode_INTERNAL          ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT  ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_UNAUTHENTICATED   ErrorCode = "UNAUTHENTICATED"
	ErrorCode_NOT_FOUND         ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS    ErrorCode = "ALREADY_EXISTS"
	ErrorCode_MALFORMED_INPUT   ErrorCode = "MALFORMED_INPUT"
	ErrorCode_STALE_REVIEW      ErrorCode = "STALE_REVIEW"
	ErrorCode_NOT_REVIEWABLE    ErrorCode = "NOT_REVIEWABLE"
	ErrorCode_INVALID_STATE     ErrorCode = "INVALID_STATE"
	ErrorCode_EXPORT_FAILED     ErrorCode = "EXPORT_FAILED"
	ErrorCode_NOT_RETRYABLE     ErrorCode = "NOT_RETRYABLE"
	ErrorCode_DIRECTORY_FAILURE ErrorCode = "DIRECTORY_FAILURE"
)

func (c ErrorCode) String() string {
	return string(c)
}

// AppError is the error type handlers translate into HTTP responses
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrUnauthenticated(message string) AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrAlreadyExists(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ALREADY_EXISTS,
		Message:  fmt.Sprintf("%s already exists", resource),
	}
}

// Ingestion Errors
func ErrMalformedAnalysis(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_MALFORMED_INPUT,
		Message:  "Analysis payload is malformed",
	}
}

// Review Errors
func ErrStaleReview(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_STALE_REVIEW,
		Message:  "Item was modified by another reviewer",
	}
}

func ErrNotReviewable(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_NOT_REVIEWABLE,
		Message:  "Item is no longer open for review",
	}
}

func ErrInvalidState(message string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_INVALID_STATE,
		Message:  message,
	}
}

// Export Errors
func ErrExportFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_EXPORT_FAILED,
		Message:  "Export delivery failed",
	}
}

func ErrNotRetryable(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_NOT_RETRYABLE,
		Message:  "Export record is not in a retryable state",
	}
}

func ErrDirectoryFailure(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_DIRECTORY_FAILURE,
		Message:  "Contact directory lookup failed",
	}
}
