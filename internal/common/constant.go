// Package common contains shared constants and small helpers used across
// the community app client packages.
package common

// Secure storage keys.
const (
	// AuthTokenKey holds the last known backend bearer token.
	AuthTokenKey = "auth_token"
	// IdentitySessionKey holds the identity provider refresh credential.
	IdentitySessionKey = "identity_session"
)

// RequestIDHeaderName is the HTTP header carrying a per-request correlation id
// on outbound backend calls.
const RequestIDHeaderName = "X-Request-ID"
