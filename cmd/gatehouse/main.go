// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package main is the gatehouse account server.
package main

import (
	"os"
)

// Set by the release build through -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func versionString() string {
	return version + " (commit " + commit + ", built " + date + ")"
}

func main() {
	root := NewRootCmd()
	root.Version = versionString()
	if root.Execute() != nil {
		os.Exit(1)
	}
}
