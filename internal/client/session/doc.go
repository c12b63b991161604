// Package session reconciles the identity provider session with the backend
// user record and publishes the result.
//
// # Overview
//
// A Reconciler listens to provider session changes. For each change it runs a
// reconciliation pass: fetch the provider token, install it as the backend
// bearer token, load the user record with GET /auth/me and apply the approval
// gate. Only approved users are published. Pending and rejected accounts are
// signed out of the provider and the session collapses to Unauthenticated.
// Any failure along the way clears the session.
//
// Passes and explicit operations (Login, Signup, Logout, RefreshUser) draw
// numbers from one monotonic counter. A pass installs tokens and publishes
// only while its number is the latest, so a slow pass can never overwrite the
// outcome of a newer one. Starting a pass also cancels the context of the
// previous in-flight pass. While an explicit operation runs, the provider
// events it causes do not start passes of their own.
//
// # Errors
//
// Approval outcomes are returned as *AuthError; use IsPendingApproval and
// IsAccountRejected. Gateway and provider errors are passed through.
package session
