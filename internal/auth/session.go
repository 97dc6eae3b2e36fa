// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/samber/oops"
)

// SessionTokenBytes is the amount of randomness in an opaque session token.
// Tokens are hex encoded, so they are twice as long on the wire.
const SessionTokenBytes = 32

// SessionManager binds session tokens to an authenticated email.
// Sessions do not expire; a token stays valid until it is revoked.
type SessionManager interface {
	// Issue creates a new token bound to email.
	Issue(ctx context.Context, email string) (string, error)

	// Resolve returns the email bound to token. Missing, malformed, tampered
	// and revoked tokens fail with an error wrapping ErrSessionInvalid.
	Resolve(ctx context.Context, token string) (string, error)

	// Revoke removes the binding. Revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error
}

// SessionStore is the server-side table behind a SessionManager.
type SessionStore interface {
	// Save binds key to email, replacing any previous binding.
	Save(ctx context.Context, key, email string) error

	// Lookup returns the email bound to key, or an error wrapping ErrNotFound.
	Lookup(ctx context.Context, key string) (string, error)

	// Delete removes the binding. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}

// GenerateSessionToken creates a secure random token and its hash.
// The token is given to the client, the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashSessionToken(token), nil
}

// HashSessionToken returns the hex SHA-256 of token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// wellFormedToken reports whether token looks like GenerateSessionToken output.
func wellFormedToken(token string) bool {
	if len(token) != SessionTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// TokenSessions issues opaque random tokens and keeps only their hashes in
// the store, so a leaked store does not yield usable tokens.
type TokenSessions struct {
	store SessionStore
}

var _ SessionManager = (*TokenSessions)(nil)

// NewTokenSessions creates a TokenSessions backed by store.
func NewTokenSessions(store SessionStore) (*TokenSessions, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	return &TokenSessions{store: store}, nil
}

// Issue creates a new token bound to email.
func (s *TokenSessions) Issue(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", oops.Code("SESSION_INVALID_SUBJECT").Errorf("email cannot be empty")
	}

	token, hash, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, hash, email); err != nil {
		return "", StorageFailure("save session", err)
	}
	return token, nil
}

// Resolve returns the email bound to token.
func (s *TokenSessions) Resolve(ctx context.Context, token string) (string, error) {
	if !wellFormedToken(token) {
		return "", sessionInvalid("malformed")
	}

	email, err := s.store.Lookup(ctx, HashSessionToken(token))
	if errors.Is(err, ErrNotFound) {
		return "", sessionInvalid("unknown")
	}
	if err != nil {
		return "", StorageFailure("lookup session", err)
	}
	return email, nil
}

// Revoke removes the binding for token.
func (s *TokenSessions) Revoke(ctx context.Context, token string) error {
	if !wellFormedToken(token) {
		return nil
	}
	if err := s.store.Delete(ctx, HashSessionToken(token)); err != nil {
		return StorageFailure("delete session", err)
	}
	return nil
}
