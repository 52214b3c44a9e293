// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/rentradar/auth"
)

type tokenIssueOptions struct {
	UID   string
	Name  string
	Admin bool
	TTL   time.Duration
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage identity tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts))
	return cmd
}

func newTokenIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenIssueOptions{}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an identity token",
		Long: `Mint a signed identity token for a user.

With --admin the token carries the admin claim that the moderation
endpoints require. The claim lives only in the token; revoke it by
letting the token expire.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.TokenSecret == "" {
				return errors.New("token secret required (use --token-secret or TOKEN_SECRET env)")
			}
			token, err := auth.NewTokens(rootOpts.TokenSecret).Issue(auth.Identity{
				UID:         opts.UID,
				DisplayName: opts.Name,
				Elevated:    opts.Admin,
			}, opts.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UID, "uid", "", "user ID (token subject)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().BoolVar(&opts.Admin, "admin", false, "grant the admin claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultTTL, "token lifetime")
	cmd.MarkFlagRequired("uid")

	return cmd
}
