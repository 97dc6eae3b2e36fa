// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// MinSecretLength is the shortest signing secret accepted.
const MinSecretLength = 32

// DefaultSessionIssuer is the iss claim used when none is configured.
const DefaultSessionIssuer = "gatehouse"

// SignedSessions issues HS256-signed tokens carrying the email as subject.
// Each token's ID is also recorded in the store so Revoke can invalidate a
// token that would otherwise verify forever.
type SignedSessions struct {
	store  SessionStore
	secret []byte
	issuer string
	now    func() time.Time
}

var _ SessionManager = (*SignedSessions)(nil)

// SignedSessionsOption configures SignedSessions.
type SignedSessionsOption func(*SignedSessions)

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) SignedSessionsOption {
	return func(s *SignedSessions) {
		s.issuer = issuer
	}
}

// WithClock overrides the clock used for iat.
func WithClock(now func() time.Time) SignedSessionsOption {
	return func(s *SignedSessions) {
		s.now = now
	}
}

// NewSignedSessions creates a SignedSessions. secret must be at least
// MinSecretLength bytes.
func NewSignedSessions(store SessionStore, secret []byte, opts ...SignedSessionsOption) (*SignedSessions, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if len(secret) < MinSecretLength {
		return nil, oops.Code("SESSION_WEAK_SECRET").
			With("min", MinSecretLength).
			Errorf("session secret must be at least %d bytes", MinSecretLength)
	}

	s := &SignedSessions{
		store:  store,
		secret: append([]byte(nil), secret...),
		issuer: DefaultSessionIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a signed token bound to email.
func (s *SignedSessions) Issue(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", oops.Code("SESSION_INVALID_SUBJECT").Errorf("email cannot be empty")
	}

	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Subject:  email,
		Issuer:   s.issuer,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}

	if err := s.store.Save(ctx, claims.ID, email); err != nil {
		return "", StorageFailure("save session", err)
	}
	return signed, nil
}

// Resolve verifies token and returns its subject if the token is still
// recorded in the store.
func (s *SignedSessions) Resolve(ctx context.Context, token string) (string, error) {
	claims, ok := s.parse(token)
	if !ok {
		return "", sessionInvalid("signature")
	}

	email, err := s.store.Lookup(ctx, claims.ID)
	if errors.Is(err, ErrNotFound) {
		return "", sessionInvalid("revoked")
	}
	if err != nil {
		return "", StorageFailure("lookup session", err)
	}
	if email != claims.Subject {
		return "", sessionInvalid("subject mismatch")
	}
	return email, nil
}

// Revoke forgets the token's ID. Tokens that fail verification are ignored.
func (s *SignedSessions) Revoke(ctx context.Context, token string) error {
	claims, ok := s.parse(token)
	if !ok {
		return nil
	}
	if err := s.store.Delete(ctx, claims.ID); err != nil {
		return StorageFailure("delete session", err)
	}
	return nil
}

func (s *SignedSessions) parse(token string) (*jwt.RegisteredClaims, bool) {
	if token == "" {
		return nil, false
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, false
	}
	return claims, true
}
