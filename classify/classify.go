// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package classify

import "github.com/danielhkuo/rentradar/models"

// Hard thresholds that override the plurality rule.
const (
	FraudThreshold    = 3
	InactiveThreshold = 2
)

// precedence breaks plurality ties: earlier entries win.
var precedence = []struct {
	status models.DisplayStatus
	count  func(models.Counters) int64
}{
	{models.DisplayConfirm, func(c models.Counters) int64 { return c.Confirmations }},
	{models.DisplayPossible, func(c models.Counters) int64 { return c.PossibleFraudVotes }},
	{models.DisplayInactive, func(c models.Counters) int64 { return c.InactiveVotes }},
	{models.DisplayFraud, func(c models.Counters) int64 { return c.FraudVotes }},
}

// Classify derives the display status of a report from its counters.
// Rules, first match wins:
//  1. fraudVotes >= 3 -> fraud
//  2. inactiveVotes >= 2 -> inactive
//  3. every counter zero -> neutral
//  4. the largest counter, ties going confirm, possible, inactive, fraud
func Classify(c models.Counters) models.DisplayStatus {
	if c.FraudVotes >= FraudThreshold {
		return models.DisplayFraud
	}
	if c.InactiveVotes >= InactiveThreshold {
		return models.DisplayInactive
	}

	best := models.DisplayNeutral
	var max int64
	for _, p := range precedence {
		if n := p.count(c); n > max {
			best, max = p.status, n
		}
	}
	return best
}
