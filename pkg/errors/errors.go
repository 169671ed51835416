package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	// Validation and request errors
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeMissingField  ErrorType = "MISSING_FIELD"
	ErrorTypeClarification ErrorType = "CLARIFICATION_NEEDED"
	ErrorTypeUnsupported   ErrorType = "UNSUPPORTED"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeRateLimit     ErrorType = "RATE_LIMIT"

	// Credential errors
	ErrorTypeNotConnected  ErrorType = "NOT_CONNECTED"
	ErrorTypeReauthNeeded  ErrorType = "REAUTH_REQUIRED"
	ErrorTypeRefreshFailed ErrorType = "REFRESH_FAILED"

	// Infrastructure errors
	ErrorTypeProvider ErrorType = "PROVIDER_ERROR"
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError is the shared error shape carried across layers. Every error that
// reaches the HTTP boundary is one of these; the HTTPStatus field decides the
// response code and Type/Message form the body.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
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

// WithCause wraps an underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithDetail attaches a key/value detail for the response body.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewMissingFieldError reports an unmet executor precondition, such as an
// email node with no resolvable recipient.
func NewMissingFieldError(message string) *AppError {
	return &AppError{Type: ErrorTypeMissingField, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewClarificationNeededError reports a time ambiguity that blocks execution.
func NewClarificationNeededError(message string) *AppError {
	return &AppError{Type: ErrorTypeClarification, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewUnsupportedError reports a node type outside the executable set.
func NewUnsupportedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnsupported, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewNotConnectedError reports that no credential is stored for the provider.
func NewNotConnectedError(provider string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotConnected,
		Message:    fmt.Sprintf("%s integration not connected", provider),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewReauthRequiredError reports a revoked or expired refresh token. The
// caller must re-run the authorization flow; a retry will not help.
func NewReauthRequiredError(provider string) *AppError {
	return &AppError{
		Type:       ErrorTypeReauthNeeded,
		Message:    fmt.Sprintf("%s refresh token expired or revoked; reconnect required", provider),
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewRefreshFailedError reports a transient token refresh failure.
func NewRefreshFailedError(provider string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeRefreshFailed,
		Message:    fmt.Sprintf("failed to refresh %s access token", provider),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewProviderError reports a non-2xx or otherwise failed provider call.
func NewProviderError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeProvider, Message: message, Cause: err, HTTPStatus: http.StatusBadGateway}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{Type: ErrorTypeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NewRateLimitError reports a throttled request.
func NewRateLimitError() *AppError {
	return &AppError{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", HTTPStatus: http.StatusTooManyRequests}
}

// NewDatabaseError creates a storage error.
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDatabase,
		Message:    fmt.Sprintf("database operation '%s' failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// GetAppError extracts an AppError from an error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotConnected reports whether err means no stored credential.
func IsNotConnected(err error) bool { return IsType(err, ErrorTypeNotConnected) }

// IsReauthRequired reports whether err means the refresh token is dead.
func IsReauthRequired(err error) bool { return IsType(err, ErrorTypeReauthNeeded) }

// IsUnsupported reports whether err means the node type is not executable.
func IsUnsupported(err error) bool { return IsType(err, ErrorTypeUnsupported) }

// IsNotFound reports whether err is a not-found error of either flavor.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound) || IsType(err, ErrorTypeNotConnected)
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Wrap wraps an error with additional context, preserving an existing
// AppError's type and status.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}
