// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

// SessionStore implements auth.SessionStore using the sessions table.
type SessionStore struct {
	pool Pool
}

var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Save binds key to email, replacing an existing binding.
func (s *SessionStore) Save(ctx context.Context, key, email string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (key, email)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET email = EXCLUDED.email
	`, key, email)
	if err != nil {
		return oops.Code(auth.CodeStorageFailure).
			With("operation", "insert session").
			Wrap(err)
	}
	return nil
}

// Lookup returns the email bound to key.
func (s *SessionStore) Lookup(ctx context.Context, key string) (string, error) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT email FROM sessions WHERE key = $1`, key).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code(auth.CodeStorageFailure).
			With("operation", "get session").
			Wrap(err)
	}
	return email, nil
}

// Delete removes the binding for key. Missing keys are ignored.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE key = $1`, key); err != nil {
		return oops.Code(auth.CodeStorageFailure).
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}
