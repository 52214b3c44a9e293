// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package users manages profiles: creation on first sign-in, the account
// status that gates report and vote creation, and contribution counts.
package users
