// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis provides a Redis-backed auth.SessionStore.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

// DefaultKeyPrefix namespaces session keys in a shared Redis database.
const DefaultKeyPrefix = "gatehouse:session:"

// SessionStore keeps session bindings as plain Redis strings with no TTL.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore returns a store using client. An empty prefix selects
// DefaultKeyPrefix.
func NewSessionStore(client goredis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(k string) string {
	return s.prefix + k
}

// Save binds key to email, replacing any previous binding.
func (s *SessionStore) Save(ctx context.Context, key, email string) error {
	if err := s.client.Set(ctx, s.key(key), email, 0).Err(); err != nil {
		return oops.Code(auth.CodeStorageFailure).
			With("operation", "save session").
			Wrap(err)
	}
	return nil
}

// Lookup returns the email bound to key.
func (s *SessionStore) Lookup(ctx context.Context, key string) (string, error) {
	email, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code(auth.CodeStorageFailure).
			With("operation", "lookup session").
			Wrap(err)
	}
	return email, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return oops.Code(auth.CodeStorageFailure).
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return oops.Code(auth.CodeStorageFailure).With("operation", "ping redis").Wrap(err)
	}
	return nil
}
