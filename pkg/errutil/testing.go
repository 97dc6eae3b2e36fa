// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is satisfied by *testing.T and by GinkgoT().
type TestingT interface {
	require.TestingT
	Helper()
}

// AssertErrorCode fails t unless err carries code.
func AssertErrorCode(t TestingT, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.Truef(t, ok, "want a coded error, got %T: %v", err, err)
	assert.Equalf(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails t unless err carries key with value in its
// context.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oe, ok := oops.AsOops(err)
	require.Truef(t, ok, "want a coded error, got %T: %v", err, err)
	got, found := oe.Context()[key]
	require.Truef(t, found, "context key %q missing from %v", key, oe.Context())
	assert.Equal(t, value, got)
}
