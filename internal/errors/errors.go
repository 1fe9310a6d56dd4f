package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so transports can map it without inspecting messages.
type Kind int

const (
	// KindInternal is an unexpected failure; details are never shown to clients.
	KindInternal Kind = iota
	// KindValidation marks missing or malformed input.
	KindValidation
	// KindConflict marks duplicate or reserved identities.
	KindConflict
	// KindAuthentication marks unknown credentials, bad passwords, bad codes and bad tokens.
	KindAuthentication
	// KindAuthorization marks authenticated callers that are not allowed to proceed.
	KindAuthorization
	// KindNotFound marks a referenced record or file that does not exist.
	KindNotFound
	// KindTooManyRequests marks a locked-out identity.
	KindTooManyRequests
	// KindDependency marks a collaborator (file store, provider) that failed.
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

// New creates a classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds a KindValidation error.
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// KindOf reports the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrInvalidCredentials is returned for unknown email, missing password or wrong password.
	ErrInvalidCredentials = New(KindAuthentication, "INVALID_CREDENTIALS", "invalid email or password")
	// ErrInvalidCode is returned for a verification code that does not match or has expired.
	ErrInvalidCode = New(KindAuthentication, "INVALID_CODE", "invalid or expired code")
	// ErrMissingToken is returned when a protected request has no bearer token.
	ErrMissingToken = New(KindAuthentication, "MISSING_TOKEN", "missing token")
	// ErrInvalidToken is returned for a malformed or badly signed token.
	ErrInvalidToken = New(KindAuthentication, "INVALID_TOKEN", "invalid token")
	// ErrTokenExpired is returned for a token past its expiry.
	ErrTokenExpired = New(KindAuthentication, "TOKEN_EXPIRED", "token expired")
	// ErrUnknownPrincipal is returned when a token references a user that no longer exists.
	ErrUnknownPrincipal = New(KindAuthentication, "USER_NOT_FOUND", "user not found")

	// ErrAccountSuspended is returned for suspended accounts.
	ErrAccountSuspended = New(KindAuthorization, "ACCOUNT_SUSPENDED", "account suspended")
	// ErrPendingApproval is returned for instructors awaiting approval.
	ErrPendingApproval = New(KindAuthorization, "PENDING_APPROVAL", "instructor application pending approval")
	// ErrApplicationRejected is returned for rejected instructors.
	ErrApplicationRejected = New(KindAuthorization, "APPLICATION_REJECTED", "instructor application rejected, contact the administrator")
	// ErrNotVerified is returned when an unverified account tries to log in.
	ErrNotVerified = New(KindAuthorization, "EMAIL_NOT_VERIFIED", "email not verified")
	// ErrForbidden is returned when the caller's role is not allowed.
	ErrForbidden = New(KindAuthorization, "FORBIDDEN", "forbidden")
	// ErrProtectedAccount is returned on attempts to modify the pinned admin account.
	ErrProtectedAccount = New(KindAuthorization, "PROTECTED_ACCOUNT", "the main administrator account cannot be modified")
	// ErrAdminSuspension is returned on attempts to suspend any admin.
	ErrAdminSuspension = New(KindAuthorization, "ADMIN_SUSPENSION", "administrators cannot be suspended")
	// ErrAdminExternalLogin is returned when the pinned admin tries an external provider.
	ErrAdminExternalLogin = New(KindAuthorization, "ADMIN_EXTERNAL_LOGIN", "the administrator account must sign in with a password")

	// ErrAdminRoleReserved is returned when registration requests the admin role.
	ErrAdminRoleReserved = New(KindConflict, "ADMIN_ROLE_RESERVED", "administrator accounts cannot be registered")
	// ErrAdminEmailReserved is returned when registration uses the pinned admin email.
	ErrAdminEmailReserved = New(KindConflict, "ADMIN_EMAIL_RESERVED", "this email is reserved for the administrator account")
	// ErrEmailTaken is returned for duplicate emails.
	ErrEmailTaken = New(KindConflict, "EMAIL_TAKEN", "a user with this email already exists")
	// ErrAlreadyDecided is returned when an instructor application already reached the opposite final state.
	ErrAlreadyDecided = New(KindConflict, "APPLICATION_ALREADY_DECIDED", "instructor application already decided")
	// ErrProviderLinked is returned when the provider identity belongs to another account.
	ErrProviderLinked = New(KindConflict, "PROVIDER_ID_TAKEN", "this external identity is linked to another account")

	// ErrCVRequired is returned when an instructor registers without a CV.
	ErrCVRequired = Validation("CV_REQUIRED", "CV required")
	// ErrCentreRequired is returned when an instructor registers without a profession centre.
	ErrCentreRequired = Validation("CENTER_REQUIRED", "center required")
	// ErrPasswordTooShort is returned for passwords under the minimum length.
	ErrPasswordTooShort = Validation("PASSWORD_TOO_SHORT", "password must be at least 8 characters")
	// ErrPasswordTooLong is returned for passwords the hash cannot accept.
	ErrPasswordTooLong = Validation("PASSWORD_TOO_LONG", "password must be at most 72 bytes")
	// ErrInvalidEmail is returned for emails that do not look like local@domain.tld.
	ErrInvalidEmail = Validation("INVALID_EMAIL", "invalid email format")
	// ErrMissingFields is returned when required registration fields are empty.
	ErrMissingFields = Validation("MISSING_FIELDS", "all required fields must be provided")
	// ErrInvalidRole is returned for a role outside student and instructor.
	ErrInvalidRole = Validation("INVALID_ROLE", "invalid role")
	// ErrInvalidStatus is returned for a status outside active and suspended.
	ErrInvalidStatus = Validation("INVALID_STATUS", "invalid status")
	// ErrNotInstructor is returned when an approval targets a non-instructor.
	ErrNotInstructor = Validation("NOT_INSTRUCTOR", "user is not an instructor")
	// ErrInvalidCV is returned for CV uploads that are not PDF files.
	ErrInvalidCV = Validation("INVALID_CV", "only PDF files are allowed")
	// ErrCVTooLarge is returned for CV uploads over the size limit.
	ErrCVTooLarge = Validation("CV_TOO_LARGE", "file too large (max 5MB)")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	// ErrNothingToVerify is returned by resend when no unverified account matches.
	ErrNothingToVerify = New(KindNotFound, "NOTHING_TO_VERIFY", "user not found or already verified")
	// ErrCVNotFound is returned when an instructor has no stored CV.
	ErrCVNotFound = New(KindNotFound, "CV_NOT_FOUND", "CV not found")

	// ErrTooManyAttempts is returned while an email is locked out.
	ErrTooManyAttempts = New(KindTooManyRequests, "TOO_MANY_ATTEMPTS", "too many failed attempts, try again later")

	// ErrFileStore is returned when the CV could not be stored.
	ErrFileStore = New(KindDependency, "FILE_STORE_UNAVAILABLE", "file storage unavailable")
	// ErrProviderUnavailable is returned when an identity provider call fails.
	ErrProviderUnavailable = New(KindDependency, "PROVIDER_UNAVAILABLE", "identity provider unavailable")
	// ErrProviderRejected is returned when a provider token is invalid or lacks an email.
	ErrProviderRejected = New(KindAuthentication, "PROVIDER_TOKEN_INVALID", "identity provider token invalid")
	// ErrInvalidOAuthState is returned when a redirect callback carries an unknown or reused state.
	ErrInvalidOAuthState = New(KindAuthentication, "INVALID_OAUTH_STATE", "invalid or expired sign-in state")
	// ErrProviderDisabled is returned when a provider has no credentials configured.
	ErrProviderDisabled = New(KindNotFound, "PROVIDER_DISABLED", "identity provider not configured")
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

// StatusCode returns the HTTP status for a kind.
func StatusCode(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return NewHTTPError(StatusCode(e.Kind), e.Message, e.Code)
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
