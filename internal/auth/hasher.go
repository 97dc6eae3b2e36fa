// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Default argon2id parameters.
const (
	DefaultArgon2Memory      = 64 * 1024 // KiB (64 MB)
	DefaultArgon2Iterations  = 1
	DefaultArgon2Parallelism = 4
	DefaultArgon2SaltLength  = 16
	DefaultArgon2KeyLength   = 32
)

// Bounds applied to parameters read back out of a stored hash. A hash whose
// parameters fall outside them is treated as malformed.
const (
	maxArgon2Memory     = 1024 * 1024 // 1 GiB in KiB
	maxArgon2Iterations = 64
	minSaltLength       = 8
	maxSaltLength       = 64
	minKeyLength        = 16
	maxKeyLength        = 128
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing, salted hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A malformed hash never
	// matches.
	Verify(password, hash string) bool

	// NeedsUpgrade reports whether hash should be replaced by a fresh Hash.
	NeedsUpgrade(hash string) bool
}

// Argon2Params controls the cost of argon2id hashing.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the parameters used by NewArgon2idHasher.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      DefaultArgon2Memory,
		Iterations:  DefaultArgon2Iterations,
		Parallelism: DefaultArgon2Parallelism,
		SaltLength:  DefaultArgon2SaltLength,
		KeyLength:   DefaultArgon2KeyLength,
	}
}

// Validate checks that the parameters are usable for hashing.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < 8*uint32(p.Parallelism) || p.Memory > maxArgon2Memory:
		return oops.Code("AUTH_INVALID_PARAMS").With("memory", p.Memory).Errorf("memory must be between 8*parallelism and %d KiB", maxArgon2Memory)
	case p.Iterations < 1 || p.Iterations > maxArgon2Iterations:
		return oops.Code("AUTH_INVALID_PARAMS").With("iterations", p.Iterations).Errorf("iterations must be between 1 and %d", maxArgon2Iterations)
	case p.Parallelism < 1:
		return oops.Code("AUTH_INVALID_PARAMS").Errorf("parallelism must be at least 1")
	case p.SaltLength < minSaltLength || p.SaltLength > maxSaltLength:
		return oops.Code("AUTH_INVALID_PARAMS").With("salt_length", p.SaltLength).Errorf("salt length must be between %d and %d", minSaltLength, maxSaltLength)
	case p.KeyLength < minKeyLength || p.KeyLength > maxKeyLength:
		return oops.Code("AUTH_INVALID_PARAMS").With("key_length", p.KeyLength).Errorf("key length must be between %d and %d", minKeyLength, maxKeyLength)
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using argon2id. Hashes produced by
// bcrypt are still accepted by Verify and always reported by NeedsUpgrade.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the parameters new hashes are produced with.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	if isBcryptHash(encodedHash) {
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	}

	decoded, ok := decodeArgon2id(encodedHash)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(password), decoded.salt, decoded.params.Iterations, decoded.params.Memory, decoded.params.Parallelism, decoded.params.KeyLength)
	return subtle.ConstantTimeCompare(computed, decoded.key) == 1
}

// NeedsUpgrade returns true for non-argon2id hashes and for argon2id hashes
// produced with parameters other than the hasher's own.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	decoded, ok := decodeArgon2id(encodedHash)
	if !ok {
		return true
	}
	return decoded.params != h.params
}

type argon2idHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

// decodeArgon2id parses a PHC-formatted argon2id string. Any deviation from
// the format, or parameters outside the accepted bounds, fails the parse.
func decodeArgon2id(encoded string) (argon2idHash, bool) {
	var out argon2idHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return out, false
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return out, false
	}

	memory, iterations, parallelism, ok := parseArgon2Params(parts[3])
	if !ok {
		return out, false
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength || len(salt) > maxSaltLength {
		return out, false
	}
	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil || len(key) < minKeyLength || len(key) > maxKeyLength {
		return out, false
	}

	out.params = Argon2Params{
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: parallelism,
		SaltLength:  uint32(len(salt)), //nolint:gosec // bounded above
		KeyLength:   uint32(len(key)),  //nolint:gosec // bounded above
	}
	out.salt = salt
	out.key = key
	return out, true
}

// parseArgon2Params parses "m=<kib>,t=<iters>,p=<threads>" in that order.
func parseArgon2Params(s string) (memory, iterations uint32, parallelism uint8, ok bool) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return 0, 0, 0, false
	}

	values := make([]uint64, 3)
	for i, prefix := range []string{"m=", "t=", "p="} {
		raw, found := strings.CutPrefix(fields[i], prefix)
		if !found {
			return 0, 0, 0, false
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		values[i] = v
	}

	m, t, p := values[0], values[1], values[2]
	if p < 1 || p > 255 {
		return 0, 0, 0, false
	}
	if m < 8*p || m > maxArgon2Memory {
		return 0, 0, 0, false
	}
	if t < 1 || t > maxArgon2Iterations {
		return 0, 0, 0, false
	}
	return uint32(m), uint32(t), uint8(p), true
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
