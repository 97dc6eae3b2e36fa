// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

// usersEmailConstraint is the UNIQUE constraint on users.email.
const usersEmailConstraint = "users_email_key"

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool Pool
	now  func() time.Time
}

var _ auth.UserStore = (*UserStore)(nil)

// NewUserStore creates a new UserStore.
func NewUserStore(pool Pool) *UserStore {
	return &UserStore{pool: pool, now: time.Now}
}

// Create inserts a user. Email uniqueness is enforced by the
// users_email_key constraint, so concurrent inserts cannot both succeed.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (*auth.User, error) {
	user := &auth.User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if isUniqueViolation(err, usersEmailConstraint) {
		return nil, auth.AlreadyExistsError(email)
	}
	if err != nil {
		return nil, oops.Code(auth.CodeStorageFailure).
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

// FindByEmail retrieves a user by exact email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeUserNotFound).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code(auth.CodeStorageFailure).
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the password hash of the user with id.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code(auth.CodeStorageFailure).
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(auth.CodeUserNotFound).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)
	if err := row.Scan(&idStr, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers classify ErrNoRows
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("id", idStr).Wrapf(err, "corrupt user id")
	}
	user.ID = id
	return &user, nil
}

// isUniqueViolation reports whether err is a unique_violation on constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}
