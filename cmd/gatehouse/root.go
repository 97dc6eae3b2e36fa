// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// dotEnvFile is loaded into the environment before configuration when it
// exists.
var dotEnvFile = ".env"

// NewRootCmd creates the root command for the gatehouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "gatehouse - account registration and login server",
		Long: `gatehouse serves user registration, login and a session-protected
dashboard, backed by PostgreSQL or in-memory storage.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/gatehouse/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads the configuration using the flags registered on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.Options{ //nolint:wrapcheck // already coded
		Flags:  cmd.Flags(),
		File:   configFile,
		DotEnv: dotEnvFile,
	})
}
