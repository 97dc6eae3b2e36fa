// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process storage backends for auth. Data does not
// survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

// UserStore keeps users in a map indexed by email.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]*auth.User
	byID    map[ulid.ULID]*auth.User
	now     func() time.Time
}

var _ auth.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byEmail: make(map[string]*auth.User),
		byID:    make(map[ulid.ULID]*auth.User),
		now:     time.Now,
	}
}

// Create inserts a user. The uniqueness check and the insert happen under
// the same write lock.
func (s *UserStore) Create(_ context.Context, name, email, passwordHash string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, auth.AlreadyExistsError(email)
	}

	u := &auth.User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	s.byEmail[email] = u
	s.byID[u.ID] = u

	clone := *u
	return &clone, nil
}

// FindByEmail returns a copy of the user with the given email.
func (s *UserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, oops.Code(auth.CodeUserNotFound).With("email", email).Wrap(auth.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

// UpdatePasswordHash replaces the stored hash for id.
func (s *UserStore) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return oops.Code(auth.CodeUserNotFound).With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}
