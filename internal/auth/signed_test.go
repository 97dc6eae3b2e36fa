// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/auth/memory"
	"github.com/holomush/gatehouse/pkg/errutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newSignedSessions(t *testing.T, opts ...auth.SignedSessionsOption) (*auth.SignedSessions, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	sessions, err := auth.NewSignedSessions(store, testSecret, opts...)
	require.NoError(t, err)
	return sessions, store
}

func TestNewSignedSessions(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		_, err := auth.NewSignedSessions(nil, testSecret)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session store is required")
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := auth.NewSignedSessions(memory.NewSessionStore(), nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_WEAK_SECRET")
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := auth.NewSignedSessions(memory.NewSessionStore(), []byte("short"))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_WEAK_SECRET")
	})
}

func TestSignedSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("issue then resolve round-trips", func(t *testing.T) {
		sessions, store := newSignedSessions(t)

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(token, "."), "compact JWS")
		assert.Equal(t, 1, store.Len())

		email, err := sessions.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", email)
	})

	t.Run("token carries subject and no expiry", func(t *testing.T) {
		issuedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		sessions, _ := newSignedSessions(t, auth.WithClock(func() time.Time { return issuedAt }))

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)

		claims := &jwt.RegisteredClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", claims.Subject)
		assert.Equal(t, auth.DefaultSessionIssuer, claims.Issuer)
		assert.NotEmpty(t, claims.ID)
		assert.Nil(t, claims.ExpiresAt)
		assert.Equal(t, issuedAt, claims.IssuedAt.UTC())
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		sessions, _ := newSignedSessions(t)

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)

		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject: "mallory@x.com",
			Issuer:  auth.DefaultSessionIssuer,
			ID:      "forged",
		})
		forgedToken, err := forged.SignedString([]byte("a-different-secret-of-enough-length"))
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		forgedParts := strings.Split(forgedToken, ".")
		spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

		for name, bad := range map[string]string{
			"empty":         "",
			"garbage":       "not.a.jwt",
			"wrong secret":  forgedToken,
			"spliced claim": spliced,
			"truncated sig": token[:len(token)-2],
		} {
			t.Run(name, func(t *testing.T) {
				_, err := sessions.Resolve(ctx, bad)
				require.Error(t, err)
				assert.ErrorIs(t, err, auth.ErrSessionInvalid)
			})
		}
	})

	t.Run("alg none is rejected", func(t *testing.T) {
		sessions, store := newSignedSessions(t)

		require.NoError(t, store.Save(ctx, "jti-none", "ann@x.com"))
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject: "ann@x.com",
			Issuer:  auth.DefaultSessionIssuer,
			ID:      "jti-none",
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = sessions.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})

	t.Run("other issuer is rejected", func(t *testing.T) {
		foreign, _ := newSignedSessions(t, auth.WithIssuer("elsewhere"))
		sessions, _ := newSignedSessions(t)

		token, err := foreign.Issue(ctx, "ann@x.com")
		require.NoError(t, err)

		_, err = sessions.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})

	t.Run("revoke then resolve is invalid", func(t *testing.T) {
		sessions, store := newSignedSessions(t)

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)

		require.NoError(t, sessions.Revoke(ctx, token))
		assert.Equal(t, 0, store.Len())

		_, err = sessions.Resolve(ctx, token)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
		errutil.AssertErrorContext(t, err, "reason", "revoked")
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		sessions, _ := newSignedSessions(t)

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)

		require.NoError(t, sessions.Revoke(ctx, token))
		require.NoError(t, sessions.Revoke(ctx, token))
		require.NoError(t, sessions.Revoke(ctx, "garbage"))
	})

	t.Run("binding for a different subject is rejected", func(t *testing.T) {
		sessions, store := newSignedSessions(t)

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)

		claims := &jwt.RegisteredClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, claims.ID, "bob@x.com"))

		_, err = sessions.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})
}
