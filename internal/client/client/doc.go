// Package client is the backend gateway of the community app: a thin
// request/response layer over the REST API.
//
// # Overview
//
// The Client interface lists the auth endpoints used by the session core:
// Signup, Login (legacy account migration), Me, UpdateProfile,
// ForgotPassword and ResetPassword. HTTPClient implements it over net/http
// with JSON bodies.
//
// Every request reads the bearer token from a TokenSource at dispatch time,
// so a token installed a moment earlier is always the one sent. Requests
// carry an X-Request-ID header.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors matched with errors.Is:
//
//   - ErrUnauthorized: the backend answered 401. The persisted token has been
//     invalidated before the error is returned.
//   - ErrUnavailable: network failure or timeout. A GET that times out is
//     retried exactly once with a longer timeout; other methods are not retried.
//
// Any other non-2xx response is returned as *APIError, which carries the
// backend message and the approval fields (accountStatus, requiresApproval,
// rejectionReason) when the body has them.
package client
