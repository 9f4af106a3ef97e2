// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

//go:embed spacegraph.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/spacegraph/spacegraph.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", sgerr.Errorf(sgerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "spacegraph", "spacegraph.yaml"), nil
}

// BootstrapConfig writes the default commented config to the default path if
// it does not already exist. It returns the path written, or "" if the file
// already existed or could not be written.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return bootstrapAt(cfgPath)
}

func bootstrapAt(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
