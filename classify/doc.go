// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package classify derives a report's display status from its vote counters.
// Status is never stored; every reader calls Classify on the snapshot it holds.
package classify
