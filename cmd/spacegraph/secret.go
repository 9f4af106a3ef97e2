// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacegraph-dev/spacegraph/internal/secrets"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newSecretCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store credentials under the spacegraph keyring service. Reference them from the config as " +
			secrets.URI(secrets.DefaultService, "<name>") + ".",
		// Secrets are managed before the config can be resolved, so skip
		// the root config loading.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			st.logger = newLogger(cmd.ErrOrStderr(), verbose)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret, prompting for the value unless --value is given",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretSet,
	}
	set.Flags().String("value", "", "secret value (visible in shell history; prefer the prompt)")

	cmd.AddCommand(
		set,
		&cobra.Command{
			Use:   "get <name>",
			Short: "Report whether a secret is stored and print its config reference",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretGet,
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a secret by name",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretDelete,
		},
	)

	return cmd
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	value, _ := cmd.Flags().GetString("value")
	if !cmd.Flags().Changed("value") {
		var err error
		value, err = runPrompt(cmd.InOrStdin(), cmd.ErrOrStderr(),
			newPromptModel("", fmt.Sprintf("Value for %s:", name), "", true))
		if err != nil {
			return err
		}
	}
	if value == "" {
		return sgerr.Errorf(sgerr.CodeCLIInputInvalid, "no value given for secret %q", name)
	}

	if err := secretStoreFactory().Set(secrets.DefaultService, name, value); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s; reference it as %s\n",
		name, secrets.URI(secrets.DefaultService, name))
	return nil
}

func runSecretGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, err := secretStoreFactory().Get(secrets.DefaultService, name); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is set (%s)\n", name, secrets.URI(secrets.DefaultService, name))
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := secretStoreFactory().Delete(secrets.DefaultService, name); err != nil {
		if sgerr.IsNotFound(err) {
			return sgerr.Errorf(sgerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
