// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Open both stores and serve search, instance-type and Wikidata routes until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.withApp(func(app *App) error {
				srv, err := app.Server()
				if err != nil {
					return err
				}
				defer func() { _ = srv.Close() }()

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return srv.Start(ctx)
			})
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = st.v.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}
