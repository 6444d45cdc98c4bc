package eterror

import (
	"net/http"

	"github.com/pkg/errors"
)

// Tags rendered in API error payloads. Authentication failures all share
// TagInvalidAuth so a caller cannot tell unknown, revoked and expired apart.
const (
	TagInvalidAuth      = "invalid-auth"
	TagDuplicateToken   = "duplicate-token"
	TagStoreUnavailable = "store-unavailable"
	TagTooManyAttempts  = "too-many-attempts"
)

type (
	// An Error represents the error format that can be rendered by the
	// trainer server.
	Error struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(e error) int {
	if eterr, ok := errors.Cause(e).(*Error); ok {
		return eterr.HTTPCode
	}
	return http.StatusInternalServerError
}

// New returns a new Error with the given message.
func New(message string) *Error {
	return &Error{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new Error with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *Error {
	return &Error{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// InvalidCredential is returned when a presented secret is unknown or
// revoked. The payload is identical to Unauthorized on purpose.
func InvalidCredential() *Error {
	return NewWithTagCode(http.StatusUnauthorized, TagInvalidAuth, "Invalid login credentials.")
}

// Unauthorized is returned when a session reference is missing, unknown or
// expired. The payload is identical to InvalidCredential on purpose.
func Unauthorized() *Error {
	return NewWithTagCode(http.StatusUnauthorized, TagInvalidAuth, "Invalid login credentials.")
}

// DuplicateToken is returned when registering a token that already exists,
// active or revoked. The issuer retries with a fresh token.
func DuplicateToken() *Error {
	return NewWithTagCode(http.StatusConflict, TagDuplicateToken, "Token already registered.")
}

// TooManyAttempts is returned when a client address spent its failed
// sign-in budget and is temporarily blocked.
func TooManyAttempts() *Error {
	return NewWithTagCode(http.StatusTooManyRequests, TagTooManyAttempts, "Too many login attempts. Try again later.")
}

// StoreUnavailable wraps a backing-store failure as a transient error.
func StoreUnavailable(cause error) error {
	return errors.Wrap(
		NewWithTagCode(http.StatusServiceUnavailable, TagStoreUnavailable, "Storage temporarily unavailable."),
		cause.Error(),
	)
}

// Error implements error interface.
func (e *Error) Error() string {
	return e.FieldError.Message
}

// Tag returns the error's tag, or an empty string for foreign errors.
func Tag(e error) string {
	if eterr, ok := errors.Cause(e).(*Error); ok {
		return eterr.FieldError.Tag
	}
	return ""
}

// IsUnauthorized returns true for authentication/authorization failures.
func IsUnauthorized(e error) bool {
	return Tag(e) == TagInvalidAuth
}

// IsDuplicateToken returns true when a token registration collided.
func IsDuplicateToken(e error) bool {
	return Tag(e) == TagDuplicateToken
}

// IsStoreUnavailable returns true for transient backing-store failures.
func IsStoreUnavailable(e error) bool {
	return Tag(e) == TagStoreUnavailable
}
