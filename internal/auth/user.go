// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is a stored credential record. PasswordHash is the hasher output and
// must never leave the storage and service layers.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
}

// Profile returns the read-only view of the user handed to callers.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Profile is a user record without credential material.
type Profile struct {
	ID        ulid.ULID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore persists users. Implementations enforce email uniqueness
// atomically with the insert: a duplicate email fails Create with an error
// wrapping ErrAlreadyExists, never a second record.
type UserStore interface {
	// Create inserts a user and assigns its ID and creation time.
	Create(ctx context.Context, name, email, passwordHash string) (*User, error)

	// FindByEmail returns the user with the exact (case-sensitive) email.
	// Returns an error wrapping ErrNotFound if no such user exists.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePasswordHash replaces the stored hash of the user.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error
}
