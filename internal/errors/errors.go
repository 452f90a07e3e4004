package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingCredentials is returned when a password or both identifiers are absent.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrPasswordTooLong is returned when a password exceeds the bcrypt input limit.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidVerificationToken is returned when no account holds the verification token.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	// ErrVerificationTokenExpired is returned when the verification token is past its expiry.
	ErrVerificationTokenExpired = errors.New("verification token expired")
	// ErrEmailAlreadyVerified is returned when resending to a verified account.
	ErrEmailAlreadyVerified = errors.New("email already verified")
	// ErrEmailRequired is returned when resend is called without an email.
	ErrEmailRequired = errors.New("email required")
	// ErrNoFieldsToUpdate is returned when a profile update carries nothing.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidStatus is returned for an unknown alert status filter.
	ErrInvalidStatus = errors.New("invalid alert status")
	// ErrInvalidRole is returned for an unknown role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrCannotDeleteSelf is returned when an admin tries to delete their own account.
	ErrCannotDeleteSelf = errors.New("cannot delete own account")
	// ErrContactNameRequired is returned when a contact has no name.
	ErrContactNameRequired = errors.New("contact name required")
	// ErrContactChannelRequired is returned when a personal contact has neither phone nor email.
	ErrContactChannelRequired = errors.New("contact phone or email required")
	// ErrContactRoleRequired is returned when a global contact has no role.
	ErrContactRoleRequired = errors.New("contact role required")

	// ErrInvalidCredentials is returned for an unknown identifier or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for a malformed, expired or revoked bearer token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingToken is returned when no bearer token was sent.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrEmailNotVerified is returned on login before the email is verified.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrAdminRequired is returned when a non-admin calls an admin route.
	ErrAdminRequired = errors.New("admin access required")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrEmployeeIDTaken is returned when the employee ID is already registered.
	ErrEmployeeIDTaken = errors.New("employee ID already registered")
	// ErrSOSAlreadyActive is returned when starting an SOS while one is active.
	ErrSOSAlreadyActive = errors.New("sos already active")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoActiveSOS is returned when cancelling without an active SOS.
	ErrNoActiveSOS = errors.New("no active sos")
	// ErrAlertNotFound is returned when an alert is not found.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAlertNotActive is returned when resolving an alert that is already cancelled or resolved.
	ErrAlertNotActive = errors.New("alert not active")
	// ErrNotificationNotFound is returned when a notification is missing or owned by someone else.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrContactNotFound is returned when a contact is missing or owned by someone else.
	ErrContactNotFound = errors.New("emergency contact not found")
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

// mapping pairs a sentinel with its response. message is the client-facing text.
type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{ErrMissingCredentials, http.StatusBadRequest, "MISSING_CREDENTIALS", "Email or employeeId and password are required"},
	{ErrPasswordTooLong, http.StatusBadRequest, "PASSWORD_TOO_LONG", "Password must be at most 72 bytes"},
	{ErrInvalidVerificationToken, http.StatusBadRequest, "INVALID_VERIFICATION_TOKEN", "Invalid or expired verification token"},
	{ErrVerificationTokenExpired, http.StatusBadRequest, "VERIFICATION_TOKEN_EXPIRED", "Verification token has expired"},
	{ErrEmailAlreadyVerified, http.StatusBadRequest, "EMAIL_ALREADY_VERIFIED", "Email already verified"},
	{ErrEmailRequired, http.StatusBadRequest, "EMAIL_REQUIRED", "Email is required"},
	{ErrNoFieldsToUpdate, http.StatusBadRequest, "NO_FIELDS_TO_UPDATE", "No fields to update"},
	{ErrInvalidLocation, http.StatusBadRequest, "INVALID_LOCATION", "Latitude must be within [-90, 90] and longitude within [-180, 180]"},
	{ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS", "Invalid alert status"},
	{ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE", "Role must be employee or admin"},
	{ErrCannotDeleteSelf, http.StatusBadRequest, "CANNOT_DELETE_SELF", "Cannot delete your own account"},
	{ErrContactNameRequired, http.StatusBadRequest, "CONTACT_NAME_REQUIRED", "Contact name is required"},
	{ErrContactChannelRequired, http.StatusBadRequest, "CONTACT_CHANNEL_REQUIRED", "Phone or email is required"},
	{ErrContactRoleRequired, http.StatusBadRequest, "CONTACT_ROLE_REQUIRED", "Contact role is required"},

	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token"},
	{ErrMissingToken, http.StatusUnauthorized, "MISSING_TOKEN", "Missing bearer token"},

	{ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Email not verified. Please check your email for the verification link."},
	{ErrAdminRequired, http.StatusForbidden, "ADMIN_REQUIRED", "Admin access required"},

	{ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", "Email already registered"},
	{ErrEmployeeIDTaken, http.StatusConflict, "EMPLOYEE_ID_TAKEN", "Employee ID already registered"},
	{ErrSOSAlreadyActive, http.StatusConflict, "SOS_ALREADY_ACTIVE", "SOS already active"},

	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{ErrNoActiveSOS, http.StatusNotFound, "NO_ACTIVE_SOS", "No active SOS"},
	{ErrAlertNotFound, http.StatusNotFound, "ALERT_NOT_FOUND", "Alert not found"},
	{ErrAlertNotActive, http.StatusNotFound, "ALERT_NOT_ACTIVE", "Alert is not active"},
	{ErrNotificationNotFound, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found"},
	{ErrContactNotFound, http.StatusNotFound, "CONTACT_NOT_FOUND", "Emergency contact not found"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped sentinels are matched with errors.Is.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.message, m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
}

// IsDomain reports whether err maps to a non-500 response.
func IsDomain(err error) bool {
	return MapErrorToHTTP(err).StatusCode != http.StatusInternalServerError
}

// Validation wraps a request validation failure as a 400.
func Validation(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, "VALIDATION_ERROR")
}
