// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/auth/redis"
	"github.com/holomush/gatehouse/pkg/errutil"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and lookup", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := redis.NewSessionStore(client, "")

		require.NoError(t, store.Save(ctx, "abc", "ann@x.com"))
		email, err := store.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", email)

		assert.True(t, mr.Exists(redis.DefaultKeyPrefix+"abc"))
		assert.Zero(t, mr.TTL(redis.DefaultKeyPrefix+"abc"), "sessions do not expire")
	})

	t.Run("save replaces binding", func(t *testing.T) {
		_, client := newTestRedis(t)
		store := redis.NewSessionStore(client, "")

		require.NoError(t, store.Save(ctx, "abc", "ann@x.com"))
		require.NoError(t, store.Save(ctx, "abc", "bob@x.com"))
		email, err := store.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "bob@x.com", email)
	})

	t.Run("missing key is not found", func(t *testing.T) {
		_, client := newTestRedis(t)
		store := redis.NewSessionStore(client, "")

		_, err := store.Lookup(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := redis.NewSessionStore(client, "")

		require.NoError(t, store.Save(ctx, "abc", "ann@x.com"))
		require.NoError(t, store.Delete(ctx, "abc"))
		require.NoError(t, store.Delete(ctx, "abc"))
		assert.False(t, mr.Exists(redis.DefaultKeyPrefix+"abc"))
	})

	t.Run("custom prefix", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := redis.NewSessionStore(client, "test:")

		require.NoError(t, store.Save(ctx, "abc", "ann@x.com"))
		got, err := mr.Get("test:abc")
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", got)
	})

	t.Run("unavailable server is a storage failure", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := redis.NewSessionStore(client, "")
		mr.Close()

		err := store.Save(ctx, "abc", "ann@x.com")
		errutil.AssertErrorCode(t, err, auth.CodeStorageFailure)

		_, err = store.Lookup(ctx, "abc")
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		assert.True(t, auth.IsStorageFailure(err))

		assert.Error(t, store.Ping(ctx))
	})

	t.Run("backs token sessions", func(t *testing.T) {
		_, client := newTestRedis(t)
		sessions, err := auth.NewTokenSessions(redis.NewSessionStore(client, ""))
		require.NoError(t, err)

		token, err := sessions.Issue(ctx, "ann@x.com")
		require.NoError(t, err)
		email, err := sessions.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", email)
	})
}
