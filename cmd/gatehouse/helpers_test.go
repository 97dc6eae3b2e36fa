// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"path/filepath"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolateEnv points config discovery at empty locations, clears the legacy
// variables and keeps argon2id cheap.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{"PORT", "DATABASE_URL", "SECRET_KEY"} {
		t.Setenv(name, "")
	}
	t.Setenv("GATEHOUSE_PASSWORD__MEMORY_KIB", "1024")
	t.Setenv("GATEHOUSE_PASSWORD__ITERATIONS", "1")
	t.Setenv("GATEHOUSE_PASSWORD__PARALLELISM", "1")

	oldDotEnv, oldConfig := dotEnvFile, configFile
	dotEnvFile = filepath.Join(t.TempDir(), "missing.env")
	configFile = ""
	t.Cleanup(func() {
		dotEnvFile, configFile = oldDotEnv, oldConfig
	})
}
