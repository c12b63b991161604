// Package securestore is the secure persistent key/value storage used by the
// session client for the bearer token and the identity provider session.
//
// # Overview
//
// Store is the contract consumed by the rest of the client:
// GetSecureItem, SetSecureItem and DeleteSecureItem. Two implementations exist:
//
//   - SQLiteStore keeps items in a local SQLite database (modernc.org/sqlite),
//     schema managed by embedded goose migrations. Values are sealed with
//     AES-GCM under a key derived with argon2id from a caller secret and a
//     per-database random salt.
//   - MemoryStore keeps items in process memory; used for ephemeral sessions
//     and in tests.
//
// A missing item is reported as (nil, nil) by GetSecureItem.
package securestore
