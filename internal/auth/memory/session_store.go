// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

// SessionStore keeps session bindings in a map.
type SessionStore struct {
	mu       sync.RWMutex
	bindings map[string]string
}

var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{bindings: make(map[string]string)}
}

// Save binds key to email.
func (s *SessionStore) Save(_ context.Context, key, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[key] = email
	return nil
}

// Lookup returns the email bound to key.
func (s *SessionStore) Lookup(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.bindings[key]
	if !ok {
		return "", oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	return email, nil
}

// Delete removes the binding for key.
func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, key)
	return nil
}

// Len returns the number of live bindings.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bindings)
}
