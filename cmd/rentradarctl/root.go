// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/rentradar/backend"
	"github.com/danielhkuo/rentradar/cliparse"
	"github.com/danielhkuo/rentradar/docstore"
)

// RootOptions holds global flags for all commands. Defaults come from the
// same environment variables the server reads.
type RootOptions struct {
	DatabaseType  string
	DatabaseURL   string
	MongoDatabase string
	TokenSecret   string
}

// NewRootCommand creates the root command for rentradarctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rentradarctl",
		Short:         "Operate a RentRadar deployment",
		Long:          "Mint identity tokens, manage account status and migrate the RentRadar store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.DatabaseType, "type", "t", envOr("DATABASE_TYPE", cliparse.BackendSQLite), "database type (sqlite|postgres|mongo)")
	cmd.PersistentFlags().StringVarP(&opts.DatabaseURL, "database-url", "d", os.Getenv("DATABASE_URL"), "database URL or file path")
	cmd.PersistentFlags().StringVar(&opts.MongoDatabase, "mongo-db", envOr("MONGO_DB", "rentradar"), "MongoDB database name")
	cmd.PersistentFlags().StringVar(&opts.TokenSecret, "token-secret", os.Getenv("TOKEN_SECRET"), "identity token signing secret")

	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openStore opens the configured persistent store. The memory backend is
// refused since nothing would outlive the command.
func (o *RootOptions) openStore(ctx context.Context) (docstore.Store, error) {
	if o.DatabaseType == cliparse.BackendMemory {
		return nil, errors.New("the memory backend cannot be managed from the command line")
	}
	if o.DatabaseURL == "" {
		return nil, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return backend.Open(ctx, cliparse.Config{
		DatabaseType:  o.DatabaseType,
		DatabaseURL:   o.DatabaseURL,
		MongoDatabase: o.MongoDatabase,
	})
}
