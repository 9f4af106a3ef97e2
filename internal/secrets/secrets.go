// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package secrets keeps credentials such as the graph password out of the
// config file. Config values of the form keyring://service/key are
// replaced by the secret stored under that service and key.
package secrets

// DefaultService is the keyring service used by the CLI.
const DefaultService = "spacegraph"

// Store reads and writes named secrets.
type Store interface {
	// Set saves value under service and key, replacing any previous value.
	Set(service, key, value string) error
	// Get returns the secret, or an error with CodeSecretNotFound.
	Get(service, key string) (string, error)
	// Delete removes the secret, or returns an error with CodeSecretNotFound.
	Delete(service, key string) error
}
