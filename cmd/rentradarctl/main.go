// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command rentradarctl is the operator tool for a RentRadar deployment.
// It mints identity tokens, changes account status and prepares the store.
package main

import (
	"fmt"
	"os"

	"github.com/danielhkuo/rentradar/cliparse"
)

func main() {
	if err := cliparse.LoadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
