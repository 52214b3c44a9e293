// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/rentradar/users"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserSetStatusCommand(rootOpts))
	return cmd
}

func newUserSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var uid, status string

	cmd := &cobra.Command{
		Use:   "set-status",
		Short: "Set an account to active, restricted or banned",
		Long: `Set an account's status. Restricted and banned users can no longer
create reports or vote. The user must have signed in at least once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := users.NewService(store).SetStatus(cmd.Context(), uid, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s is now %s\n", uid, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user ID")
	cmd.Flags().StringVar(&status, "status", "", "active, restricted or banned")
	cmd.MarkFlagRequired("uid")
	cmd.MarkFlagRequired("status")

	return cmd
}
