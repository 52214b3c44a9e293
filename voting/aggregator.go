// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/metrics"
	"github.com/danielhkuo/rentradar/models"
)

// Aggregator is the only writer of report counters. Every change is a
// single atomic increment of one field; values are never overwritten.
type Aggregator struct {
	store docstore.Store
}

func NewAggregator(store docstore.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Apply adds delta to the counter of category on the report. A decrement
// the store refuses because the counter is already zero leaves it at zero.
func (a *Aggregator) Apply(ctx context.Context, reportID string, category models.VoteCategory, delta int64) error {
	field := category.Field()
	err := a.store.Increment(ctx, models.CollectionReports, reportID, field, delta)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrPreconditionFailed):
		metrics.CounterFloorHits.WithLabelValues(field).Inc()
		slog.Warn("counter already at zero", "report_id", reportID, "field", field, "delta", delta)
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: report %s", apperr.ErrNotFound, reportID)
	default:
		return apperr.Store("apply counter delta", err)
	}
}
