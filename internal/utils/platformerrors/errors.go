package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type contextKey string

// RequestIDKey carries the per-request identifier set by the HTTP middleware.
const RequestIDKey contextKey = "requestID"

// RequestIDFromContext extracts the request ID, if any.
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeStream        ErrorType = "STREAM"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal      ErrorType = "INTERNAL"
	ErrorTypeDatabaseError ErrorType = "DATABASE_ERROR"
)

// Layer represents the application layer where the error occurred.
type Layer string

const (
	LayerStore   Layer = "store"
	LayerDomain  Layer = "domain"
	LayerHandler Layer = "handler"
	LayerAgent   Layer = "agent"
)

// PlatformError is an error with category, layer and request metadata.
type PlatformError struct {
	Type      ErrorType
	Layer     Layer
	Message   string
	Err       error
	RequestID string
	Timestamp time.Time
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Layer, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Layer, e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// New creates a PlatformError with the given category.
func New(ctx context.Context, layer Layer, errorType ErrorType, message string, err error) *PlatformError {
	return &PlatformError{
		Type:      errorType,
		Layer:     layer,
		Message:   message,
		Err:       err,
		RequestID: RequestIDFromContext(ctx),
		Timestamp: time.Now().UTC(),
	}
}

// AsError wraps err with layer context, preserving an existing category.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	if err == nil {
		return nil
	}
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return New(ctx, layer, platformErr.Type, fmt.Sprintf("%s: %s", message, platformErr.Message), platformErr)
	}
	return New(ctx, layer, ErrorTypeInternal, message, err)
}

// IsNotFound reports whether err carries the NOT_FOUND category.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// TypeOf returns the error category, defaulting to INTERNAL.
func TypeOf(err error) ErrorType {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Type
	}
	return ErrorTypeInternal
}

// ErrorTypeToHTTPStatus maps error categories to HTTP status codes.
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeStream, ErrorTypeInternal, ErrorTypeDatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
