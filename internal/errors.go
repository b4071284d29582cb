package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidPassword  ErrorCode = "INVALID_PASSWORD"
	ErrCodeInvalidTitle     ErrorCode = "INVALID_TITLE"
	ErrCodeInvalidPosition  ErrorCode = "INVALID_POSITION"

	ErrCodeOtpNotRequested ErrorCode = "OTP_NOT_REQUESTED"
	ErrCodeOtpExpired      ErrorCode = "OTP_EXPIRED"
	ErrCodeOtpMismatch     ErrorCode = "OTP_MISMATCH"
	ErrCodeMailDispatch    ErrorCode = "MAIL_DISPATCH_FAILED"

	ErrCodeInvalidReference  ErrorCode = "INVALID_REFERENCE"
	ErrCodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
	ErrCodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	ErrCodeRoleNotFound      ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	ErrCodeProjectNotFound   ErrorCode = "PROJECT_NOT_FOUND"
	ErrCodeColumnNotFound    ErrorCode = "COLUMN_NOT_FOUND"
	ErrCodeCardNotFound      ErrorCode = "CARD_NOT_FOUND"
	ErrCodeInviteNotFound    ErrorCode = "INVITATION_NOT_FOUND"
	ErrCodeInviteExpired     ErrorCode = "INVITATION_EXPIRED"
	ErrCodeAlreadyMember     ErrorCode = "ALREADY_MEMBER"
	ErrCodeEmailTaken        ErrorCode = "EMAIL_TAKEN"
	ErrCodeUserNotVerified   ErrorCode = "USER_NOT_VERIFIED"
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUserInactive      ErrorCode = "USER_INACTIVE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// OTP lifecycle and RBAC gate errors. Handlers map these straight to HTTP
// statuses; services return them as-is instead of wrapping.
var (
	ErrOtpNotRequested = NewNotFoundError("no code was requested for this email", ErrCodeOtpNotRequested)
	ErrOtpExpired      = NewValidationError("code has expired, request a new one", ErrCodeOtpExpired)
	ErrOtpMismatch     = NewValidationError("code does not match", ErrCodeOtpMismatch)

	ErrInvalidReference = NewValidationError("referenced permission does not exist", ErrCodeInvalidReference)
	ErrPermissionDenied = NewForbiddenError("insufficient permissions", ErrCodePermissionDenied)
	ErrUnauthenticated  = NewUnauthorizedError("authentication required", ErrCodeUnauthenticated)

	ErrUserNotFound      = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrRoleNotFound      = NewNotFoundError("role not found", ErrCodeRoleNotFound)
	ErrProjectNotFound   = NewNotFoundError("project not found", ErrCodeProjectNotFound)
	ErrColumnNotFound    = NewNotFoundError("column not found", ErrCodeColumnNotFound)
	ErrCardNotFound      = NewNotFoundError("card not found", ErrCodeCardNotFound)
	ErrInviteNotFound    = NewNotFoundError("invitation not found", ErrCodeInviteNotFound)
	ErrInviteExpired     = NewValidationError("invitation has expired", ErrCodeInviteExpired)
	ErrAlreadyMember     = NewConflictError("user is already a project member", ErrCodeAlreadyMember)
	ErrEmailTaken        = NewConflictError("email is already registered", ErrCodeEmailTaken)
	ErrUserNotVerified   = NewForbiddenError("email address is not verified", ErrCodeUserNotVerified)
	ErrInvalidCredential = NewUnauthorizedError("invalid email or password", ErrCodeInvalidCredential)
	ErrInvalidToken      = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired      = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)
	ErrUserInactive      = NewForbiddenError("user account is inactive", ErrCodeUserInactive)
)

// NewMailDispatchError wraps a mail provider failure; a fresh value per call
// so the cause never leaks between requests.
func NewMailDispatchError(cause error) *AppError {
	return NewExternalError("failed to deliver email", ErrCodeMailDispatch, cause)
}

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
