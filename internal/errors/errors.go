package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType groups failures by how callers should react to them.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeProcessing  ErrorType = "processing"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeInternal    ErrorType = "internal"
)

// Sentinels returned (wrapped) by the imaging core.
var (
	ErrEmptyImage        = stderrors.New("image buffer is empty")
	ErrUnsupportedFormat = stderrors.New("unsupported image format")
	ErrInvalidThreshold  = stderrors.New("threshold must be within [0, 1]")
	ErrInvalidPadding    = stderrors.New("padding must be non-negative")
	ErrInvalidSize       = stderrors.New("canonical size must be positive")
	ErrDegenerateCrop    = stderrors.New("face crop has zero area")
	ErrModelUnavailable  = stderrors.New("detector model unavailable")
	ErrUnknownMethod     = stderrors.New("unknown comparison method")
)

// AppError is the error shape the service and transport layers exchange.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: status, Cause: cause}
}

func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

func NewProcessingError(message string, cause error) *AppError {
	return newAppError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

func NewUnavailableError(message string, cause error) *AppError {
	return newAppError(ErrorTypeUnavailable, http.StatusServiceUnavailable, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// WithDetails returns a copy of e carrying extra detail text.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Classify maps core sentinels onto an AppError. Errors that already are
// AppErrors pass through untouched.
func Classify(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case stderrors.Is(err, ErrEmptyImage),
		stderrors.Is(err, ErrUnsupportedFormat),
		stderrors.Is(err, ErrInvalidThreshold),
		stderrors.Is(err, ErrInvalidPadding),
		stderrors.Is(err, ErrInvalidSize),
		stderrors.Is(err, ErrUnknownMethod):
		return NewValidationError(message, err)
	case stderrors.Is(err, ErrModelUnavailable):
		return NewUnavailableError(message, err)
	case stderrors.Is(err, ErrDegenerateCrop):
		return NewProcessingError(message, err)
	}
	return NewInternalError(message, err)
}

// IsType reports whether err (or anything it wraps) is an AppError of type t.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
