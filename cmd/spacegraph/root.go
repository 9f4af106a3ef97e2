// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spacegraph-dev/spacegraph/internal/config"
	"github.com/spacegraph-dev/spacegraph/internal/secrets"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// cliState is shared by every subcommand of one root command. Each root owns
// its viper instance so repeated executions in tests start clean.
type cliState struct {
	v      *viper.Viper
	logger *slog.Logger
}

// config decodes and validates the loaded configuration.
func (s *cliState) config() (*config.Config, error) {
	return config.FromViper(s.v)
}

// NewRootCmd creates the root spacegraph command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	st := &cliState{v: viper.New(), logger: slog.Default()}

	root := &cobra.Command{
		Use:           "spacegraph",
		Short:         "Spacegraph: graph search and dual-store sync for space knowledge graphs",
		Long:          "Spacegraph serves subgraph search over per-space knowledge graphs kept in a relational store and mirrored into a property graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(st),
		newP31Cmd(st),
		newMigrateCmd(st),
		newGraphCmd(st),
		newSnapshotCmd(st),
		newSecretCmd(st),
		newVersionCmd(),
	)

	return root
}

// init sets up viper with defaults, env bindings and an optional config file
// so the standard precedence (flag > env > file > defaults) is handled
// uniformly, then resolves keyring references.
func (s *cliState) init(cmd *cobra.Command) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	s.logger = newLogger(cmd.ErrOrStderr(), verbose)

	v := s.v
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return sgerr.Errorf(sgerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted: with it set, viper also tries the bare
		// name, which collides with a ./spacegraph binary.
		v.SetConfigName("spacegraph")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/spacegraph")
		v.AddConfigPath("/etc/spacegraph")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return sgerr.Errorf(sgerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				s.logger.Info("wrote default config", "path", path)
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return sgerr.Errorf(sgerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	// Unresolved secrets are not fatal here: `secret set` must work before
	// the secret exists. Wiring rejects a graph password left unresolved.
	if err := secrets.ResolveViper(v, secretStoreFactory()); err != nil {
		s.logger.Debug("config secrets left unresolved", "error", err)
	}

	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
