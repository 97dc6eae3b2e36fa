// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/pkg/errutil"
)

// fastParams keeps argon2id cheap enough for table tests.
var fastParams = auth.Argon2Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func newFastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(fastParams)
	require.NoError(t, err)
	return h
}

func bcryptHash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(b), err
}

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("hash never contains the plaintext", func(t *testing.T) {
		hash, err := hasher.Hash("plaintext-marker")
		require.NoError(t, err)
		assert.NotContains(t, hash, "plaintext-marker")
	})
}

func TestVerifyPassword_RoundTrip(t *testing.T) {
	hasher := newFastHasher(t)

	passwords := map[string]string{
		"ascii":              "secret1",
		"minimum length":     "abcdef",
		"unicode":            "pässwörd-日本語-🔐",
		"combining marks":    "éééééé",
		"longer than bcrypt": strings.Repeat("x", 100),
		"one kibibyte":       strings.Repeat("å", 512),
		"inner whitespace":   "pass word\twith\nspaces",
	}

	for name, password := range passwords {
		t.Run(name, func(t *testing.T) {
			hash, err := hasher.Hash(password)
			require.NoError(t, err)
			assert.True(t, hasher.Verify(password, hash))
			assert.False(t, hasher.Verify(password+"x", hash))
			assert.False(t, hasher.Verify(strings.ToUpper(password)+"!", hash))
		})
	}
}

func TestVerifyPassword_DefaultParams(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	assert.True(t, hasher.Verify("correctpassword", hash))
	assert.False(t, hasher.Verify("wrongpassword", hash))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	hasher := newFastHasher(t)

	valid, err := hasher.Hash("password")
	require.NoError(t, err)
	parts := strings.Split(valid, "$")
	salt, key := parts[4], parts[5]

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "not-a-valid-hash"},
		{"too few fields", "$argon2id$v=19$m=1024,t=1,p=1$" + salt},
		{"too many fields", valid + "$extra"},
		{"wrong algorithm", "$argon2i$v=19$m=1024,t=1,p=1$" + salt + "$" + key},
		{"wrong version", "$argon2id$v=16$m=1024,t=1,p=1$" + salt + "$" + key},
		{"malformed version", "$argon2id$vXX$m=1024,t=1,p=1$" + salt + "$" + key},
		{"malformed params", "$argon2id$v=19$invalid$" + salt + "$" + key},
		{"params out of order", "$argon2id$v=19$t=1,m=1024,p=1$" + salt + "$" + key},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$" + salt + "$" + key},
		{"zero threads", "$argon2id$v=19$m=1024,t=0,p=0$" + salt + "$" + key},
		{"huge memory", "$argon2id$v=19$m=4294967295,t=1,p=1$" + salt + "$" + key},
		{"huge iterations", "$argon2id$v=19$m=1024,t=100000,p=1$" + salt + "$" + key},
		{"invalid salt base64", "$argon2id$v=19$m=1024,t=1,p=1$!!!invalid!!!$" + key},
		{"invalid key base64", "$argon2id$v=19$m=1024,t=1,p=1$" + salt + "$!!!invalid!!!"},
		{"short salt", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$" + key},
		{"short key", "$argon2id$v=19$m=1024,t=1,p=1$" + salt + "$aGFzaA"},
		{"missing leading separator", strings.TrimPrefix(valid, "$")},
		{"truncated bcrypt", "$2b$10$short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, hasher.Verify("password", tt.hash))
			})
		})
	}
}

func TestVerifyPassword_LegacyBcrypt(t *testing.T) {
	hasher := newFastHasher(t)

	legacy, err := bcryptHash("secret1")
	require.NoError(t, err)

	assert.True(t, hasher.Verify("secret1", legacy))
	assert.False(t, hasher.Verify("secret2", legacy))
	assert.True(t, hasher.NeedsUpgrade(legacy))
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := newFastHasher(t)

	t.Run("current parameters do not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("different parameters need upgrade", func(t *testing.T) {
		stronger := fastParams
		stronger.Iterations = 2
		other, err := auth.NewArgon2idHasherWithParams(stronger)
		require.NoError(t, err)

		hash, err := other.Hash("password")
		require.NoError(t, err)
		assert.True(t, hasher.NeedsUpgrade(hash))
		assert.True(t, hasher.Verify("password", hash), "old parameters still verify")
	})

	t.Run("garbage needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("garbage"))
	})
}

func TestArgon2Params_Validate(t *testing.T) {
	assert.NoError(t, auth.DefaultArgon2Params().Validate())

	tests := []struct {
		name   string
		mutate func(p *auth.Argon2Params)
	}{
		{"zero memory", func(p *auth.Argon2Params) { p.Memory = 0 }},
		{"memory below parallelism floor", func(p *auth.Argon2Params) { p.Memory = 16; p.Parallelism = 4 }},
		{"zero iterations", func(p *auth.Argon2Params) { p.Iterations = 0 }},
		{"zero parallelism", func(p *auth.Argon2Params) { p.Parallelism = 0 }},
		{"short salt", func(p *auth.Argon2Params) { p.SaltLength = 4 }},
		{"short key", func(p *auth.Argon2Params) { p.KeyLength = 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := auth.DefaultArgon2Params()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_PARAMS")

			_, err = auth.NewArgon2idHasherWithParams(p)
			assert.Error(t, err)
		})
	}
}
