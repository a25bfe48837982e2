package dto

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication errors
	ErrorCodeInvalidCredentials ErrorCode = "AUTH_001"
	ErrorCodeInvalidToken       ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken       ErrorCode = "AUTH_006"
	ErrorCodeUnauthorized       ErrorCode = "AUTH_008"
	ErrorCodeForbidden          ErrorCode = "AUTH_009"

	// Resource errors
	ErrorCodeResourceNotFound      ErrorCode = "RES_001"
	ErrorCodeResourceAlreadyExists ErrorCode = "RES_002"
	ErrorCodeConflict              ErrorCode = "RES_004"

	// QR check-in errors
	ErrorCodeQrTokenInvalid ErrorCode = "QR_001"
	ErrorCodeQrTokenExpired ErrorCode = "QR_002"

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = "VAL_001"

	// Server errors
	ErrorCodeInternalServer     ErrorCode = "SRV_001"
	ErrorCodeStorageUnavailable ErrorCode = "SRV_002"
	ErrorCodeRateLimited        ErrorCode = "SRV_004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityInfo     ErrorSeverity = "INFO"
	ErrorSeverityWarning  ErrorSeverity = "WARNING"
	ErrorSeverityError    ErrorSeverity = "ERROR"
	ErrorSeverityCritical ErrorSeverity = "CRITICAL"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Field     string        `json:"field,omitempty"`
	Severity  ErrorSeverity `json:"severity"`
	Details   interface{}   `json:"details,omitempty"`
	DebugInfo string        `json:"debugInfo,omitempty"`
}

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success   bool         `json:"success"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewErrorDetail creates a new error detail
func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{
		Code:     code,
		Message:  message,
		Severity: ErrorSeverityError,
	}
}

// WithField adds a field name to the error detail
func (e *ErrorDetail) WithField(field string) *ErrorDetail {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error
func (e *ErrorDetail) WithSeverity(severity ErrorSeverity) *ErrorDetail {
	e.Severity = severity
	return e
}

// WithDetails adds additional details to the error
func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}

// WithDebugInfo adds debug information (for development/testing only)
func (e *ErrorDetail) WithDebugInfo(format string, args ...interface{}) *ErrorDetail {
	e.DebugInfo = fmt.Sprintf(format, args...)
	return e
}

// NewErrorResponse creates a standard error response
func NewErrorResponse(errorDetail *ErrorDetail) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     errorDetail,
		Timestamp: time.Now(),
	}
}

// HandleValidationError converts binding errors into an ErrorDetail. Field
// level failures from the validator are listed one message per field.
func HandleValidationError(err error) *ErrorDetail {
	detail := NewErrorDetail(ErrorCodeValidationFailed, "Invalid request data")

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return detail.WithDetails(err.Error())
	}

	messages := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages[lowerFirst(fe.Field())] = formatFieldError(fe)
	}
	if len(fieldErrs) == 1 {
		detail.WithField(lowerFirst(fieldErrs[0].Field()))
	}
	return detail.WithDetails(messages)
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "timeslot":
		return fe.Field() + " must be a valid class period"
	case "attendancestatus":
		return fe.Field() + " must be PRESENT, ABSENT or LATE"
	default:
		return fe.Field() + " validation failed: " + fe.Tag()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// MapError translates an application error into its HTTP status and error
// detail. Unknown errors map to 500 with a generic message.
func MapError(err error) (int, *ErrorDetail) {
	msg := func(fallback string) string {
		if m := apperrors.Message(err); m != "" {
			return m
		}
		return fallback
	}

	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, HandleValidationError(err)
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, NewErrorDetail(ErrorCodeValidationFailed, msg("Invalid request data"))
	case errors.Is(err, apperrors.ErrUsernameTaken):
		return http.StatusConflict, NewErrorDetail(ErrorCodeResourceAlreadyExists, msg("Username already taken"))
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, NewErrorDetail(ErrorCodeConflict, msg("Resource conflict"))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, NewErrorDetail(ErrorCodeResourceNotFound, msg("Resource not found"))
	case errors.Is(err, apperrors.ErrQrTokenInvalid):
		return http.StatusBadRequest, NewErrorDetail(ErrorCodeQrTokenInvalid, "QR code is invalid or no longer active").
			WithSeverity(ErrorSeverityWarning)
	case errors.Is(err, apperrors.ErrQrTokenExpired):
		return http.StatusGone, NewErrorDetail(ErrorCodeQrTokenExpired, "QR code has expired, ask your teacher for a new one").
			WithSeverity(ErrorSeverityWarning)
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, NewErrorDetail(ErrorCodeForbidden, msg("You do not have permission to perform this action"))
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, NewErrorDetail(ErrorCodeInvalidCredentials, "Invalid username or password")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, NewErrorDetail(ErrorCodeExpiredToken, "Access token has expired")
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrInvalidFormat):
		return http.StatusUnauthorized, NewErrorDetail(ErrorCodeInvalidToken, "Invalid access token")
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, NewErrorDetail(ErrorCodeRateLimited, "Too many requests, slow down").
			WithSeverity(ErrorSeverityWarning)
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, NewErrorDetail(ErrorCodeStorageUnavailable, "Storage is temporarily unavailable, please retry").
			WithSeverity(ErrorSeverityCritical)
	default:
		return http.StatusInternalServerError, NewErrorDetail(ErrorCodeInternalServer, "An unexpected error occurred").
			WithSeverity(ErrorSeverityCritical)
	}
}
