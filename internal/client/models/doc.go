// Package models defines the client-side data models of the community app:
// the backend-owned user record and the REST request/response shapes.
package models
