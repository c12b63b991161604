// Package cli provides the interactive community app command-line client.
//
// It wires configuration, the secure store, the token store, the backend
// gateway, the identity provider and the session reconciler, then runs a
// REPL on top of them. Session changes published by the reconciler are
// echoed to the terminal as they happen.
//
// Commands: login, signup, logout, whoami, refresh, profile, forgot, reset,
// status, stats, help, exit.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
