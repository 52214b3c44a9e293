// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package backend opens the document store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/rentradar/cliparse"
	"github.com/danielhkuo/rentradar/db"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/docstore/mongostore"
	"github.com/danielhkuo/rentradar/docstore/sqlstore"
)

// Open returns a ready store for cfg.DatabaseType. SQL databases are
// migrated before use. The caller closes the store.
func Open(ctx context.Context, cfg cliparse.Config) (docstore.Store, error) {
	switch cfg.DatabaseType {
	case cliparse.BackendMemory:
		slog.Warn("using in-memory store, data is lost on exit")
		return docstore.NewMemoryStore(), nil

	case cliparse.BackendSQLite, cliparse.BackendPostgres:
		conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(conn, cfg.DatabaseType); err != nil {
			conn.Close()
			return nil, err
		}
		return sqlstore.New(conn), nil

	case cliparse.BackendMongo:
		store, err := mongostore.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
}
