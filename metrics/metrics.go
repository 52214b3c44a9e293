// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors shared by the service.
// They register with the default registry, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var VoteTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rentradar_vote_transitions_total",
	Help: "Votes applied by the ledger, by transition and category",
}, []string{"transition", "category"})

var VoteRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rentradar_vote_retries_total",
	Help: "Ledger transitions retried after a concurrent change to the same vote",
})

var CounterFloorHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rentradar_counter_floor_hits_total",
	Help: "Decrements refused because the counter was already zero",
}, []string{"field"})

var ReportsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rentradar_reports_created_total",
	Help: "Reports created",
})

var ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rentradar_moderation_actions_total",
	Help: "Privileged moderation transitions, by action",
}, []string{"action"})

var StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "rentradar_stream_clients",
	Help: "Connected report stream websocket clients",
})

var RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rentradar_rate_limited_total",
	Help: "Requests rejected by the rate limiter, by path",
}, []string{"path"})

var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "http_request_duration_seconds",
	Help:    "A histogram of latencies for requests.",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
}, []string{"code", "method", "path"})

var RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "A counter for requests to the wrapped handler.",
}, []string{"code", "method", "path"})
