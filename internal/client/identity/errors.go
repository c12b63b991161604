package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized provider error codes.
const (
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserDisabled      = "auth/user-disabled"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodeSessionExpired    = "auth/user-token-expired"
	CodeNetwork           = "auth/network-request-failed"
	CodeNoSession         = "auth/no-current-user"
	CodeInternal          = "auth/internal-error"
)

// Error is a provider failure with a normalized Code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "identity: " + e.Code
	}
	return fmt.Sprintf("identity: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the normalized code of err, or "" when err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// codeFromREST maps the REST API message ("EMAIL_NOT_FOUND",
// "TOO_MANY_ATTEMPTS_TRY_LATER : ...") to a normalized code.
func codeFromREST(message string) string {
	key, _, _ := strings.Cut(message, " ")
	switch key {
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "INVALID_LOGIN_CREDENTIALS":
		return CodeInvalidCredential
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "USER_DISABLED":
		return CodeUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "INVALID_ID_TOKEN":
		return CodeSessionExpired
	default:
		return CodeInternal
	}
}
