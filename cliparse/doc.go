// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	if err := cliparse.LoadEnvFile(".env"); err != nil {
		return err
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadEnvFile never overrides variables already set in the environment.

# CLI Flags and Environment Variables

	-p             PORT               Server port (default 3318)
	-t             DATABASE_TYPE      sqlite, postgres, mongo or memory (default sqlite)
	-d             DATABASE_URL       Connection string or file path
	-mongo-db      MONGO_DB           MongoDB database name (default rentradar)
	-rate          VOTE_RATE_PER_MIN  Write requests per client per minute (default 30, 0 disables)
	-token-secret  TOKEN_SECRET       Identity token signing secret
	-ip-salt       IP_HASH_SALT       Salt for rate limiter keys

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL is missing for any backend but memory
  - TOKEN_SECRET or IP_HASH_SALT is missing
  - the database type is not supported
*/
package cliparse
