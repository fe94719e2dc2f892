package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials is returned when identifier or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPortalMismatch is returned when a principal signs in through the wrong portal.
	ErrPortalMismatch = errors.New("access denied: this portal is not for your role")
	// ErrAccountInactive is returned when the principal's profile is inactive.
	ErrAccountInactive = errors.New("account is not active")
	// ErrProfileMissing is returned when a credential has no profile document.
	ErrProfileMissing = errors.New("user data not found")
	// ErrUserAlreadyExists is returned when provisioning a duplicate email or username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUsernameTaken is returned when a profile update collides with another username.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrWeakPassword is returned when a candidate password fails the password policy.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidRole is returned when a role string is not one of the known roles.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidStatus is returned for an unknown attendance status.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrNoRecipients is returned when a notification has no targets.
	ErrNoRecipients = errors.New("at least one recipient is required")
	// ErrInvalidReportType is returned for an unknown report type.
	ErrInvalidReportType = errors.New("invalid report type")
	// ErrInvalidDateRange is returned when a date filter cannot be parsed.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrInvalidInput is returned when a request is well-formed but semantically invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotRecipient is returned when a principal touches a notification not addressed to them.
	ErrNotRecipient = errors.New("notification is not addressed to this user")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
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
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrPortalMismatch):
		return NewHTTPError(http.StatusForbidden, ErrPortalMismatch.Error(), "PORTAL_MISMATCH")
	case errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusForbidden, ErrAccountInactive.Error(), "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrProfileMissing):
		return NewHTTPError(http.StatusForbidden, ErrProfileMissing.Error(), "PROFILE_MISSING")
	case errors.Is(err, ErrUserAlreadyExists):
		return NewHTTPError(http.StatusConflict, ErrUserAlreadyExists.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, ErrUsernameTaken.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrWeakPassword):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "WEAK_PASSWORD")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidRefreshToken.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, ErrInvalidRole):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRole.Error(), "INVALID_ROLE")
	case errors.Is(err, ErrInvalidStatus):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidStatus.Error(), "INVALID_STATUS")
	case errors.Is(err, ErrNoRecipients):
		return NewHTTPError(http.StatusBadRequest, ErrNoRecipients.Error(), "NO_RECIPIENTS")
	case errors.Is(err, ErrInvalidReportType):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidReportType.Error(), "INVALID_REPORT_TYPE")
	case errors.Is(err, ErrInvalidDateRange):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidDateRange.Error(), "INVALID_DATE_RANGE")
	case errors.Is(err, ErrInvalidInput):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, ErrNotRecipient):
		return NewHTTPError(http.StatusForbidden, ErrNotRecipient.Error(), "NOT_RECIPIENT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
