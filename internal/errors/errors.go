package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleNotFound is returned when a role name or ID does not resolve.
	ErrRoleNotFound = errors.New("role not found")
	// ErrUsernameTaken is returned when registering with an existing username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmailTaken is returned when registering with an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials covers both unknown identifier and wrong password
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	// ErrAccountLocked is returned for any login attempt against a locked account.
	ErrAccountLocked = errors.New("account is locked, please contact an administrator")
	// ErrAccountInactive is returned when the account has been deactivated.
	ErrAccountInactive = errors.New("account is not active")
	// ErrIncorrectPassword is returned on a password change with a wrong current password.
	ErrIncorrectPassword = errors.New("current password is incorrect")
)

// ErrorResponse represents a standardized error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError pairs a domain error with an HTTP status.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message, Code: code}
}

// ToErrorResponse converts an HTTPError to its response body.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown errors collapse
// to an opaque 500 so internal detail never leaks.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrRoleNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "ROLE_NOT_FOUND")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrAccountLocked):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "ACCOUNT_LOCKED")
	case errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrIncorrectPassword):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INCORRECT_PASSWORD")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
