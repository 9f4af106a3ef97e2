// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package secrets

import (
	"errors"
	"sort"
	"strings"

	"github.com/spf13/viper"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// URI builds the keyring reference for service and key.
func URI(service, key string) string {
	return keyringScheme + service + "/" + key
}

// ParseKeyringURI splits keyring://service/key. The key may contain slashes.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", sgerr.Errorf(sgerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", sgerr.Errorf(sgerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret referenced by value, or value unchanged when it
// is not a keyring URI.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Get(service, key)
	if err != nil {
		return "", sgerr.Wrapf(err, sgerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring:// string value held by v with its
// secret. Values that cannot be resolved are left in place and reported
// together in the returned error.
func ResolveViper(v *viper.Viper, store Store) error {
	keys := v.AllKeys()
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, sgerr.Wrapf(err, sgerr.CodeSecretResolveFailure, "config key %s", key))
			continue
		}
		v.Set(key, resolved)
	}

	if len(errs) > 0 {
		return sgerr.Errorf(sgerr.CodeSecretResolveFailure, "resolving config secrets: %w", errors.Join(errs...))
	}
	return nil
}
