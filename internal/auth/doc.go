// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides credential storage contracts, password hashing,
// registration and login, and session binding for gatehouse.
//
// # Domain Types
//
// User is the stored credential record and is only handled by UserStore
// implementations and Service. Everything returned to callers is a Profile,
// which carries no password hash.
//
// # Services
//
//   - Service - registration, login and profile lookup
//   - TokenSessions - opaque random session tokens, stored hashed
//   - SignedSessions - HS256-signed session tokens with server-side revocation
//
// Storage backends live in the memory, postgres and redis subpackages.
//
// # Errors
//
// Every returned error is an oops error carrying one of the Code* constants
// and, where applicable, wraps one of the Err* sentinels. Only errors coded
// CodeStorageFailure indicate a server-side fault.
package auth
