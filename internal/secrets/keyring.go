// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

var _ Store = (*KeyringStore)(nil)

// KeyringStore implements Store on the OS keyring (Keychain on macOS,
// secret-service on Linux, Credential Manager on Windows).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkName("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return sgerr.Wrapf(err, sgerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkName("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", sgerr.Errorf(sgerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", sgerr.Wrapf(err, sgerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkName("delete", service, key); err != nil {
		return err
	}
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return sgerr.Errorf(sgerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return sgerr.Wrapf(err, sgerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

func checkName(op, service, key string) error {
	if service == "" {
		return sgerr.Errorf(sgerr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return sgerr.Errorf(sgerr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}
