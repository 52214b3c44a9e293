// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/cliparse"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/handlers"
	"github.com/danielhkuo/rentradar/middleware"
	"github.com/danielhkuo/rentradar/moderation"
	"github.com/danielhkuo/rentradar/reports"
	"github.com/danielhkuo/rentradar/users"
	"github.com/danielhkuo/rentradar/voting"
)

func NewRouter(store docstore.Store, cfg cliparse.Config) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	limiter, err := middleware.NewRateLimiter(cfg.VoteRatePerMin, cfg.IPHashSalt, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	// Engine services
	tokens := auth.NewTokens(cfg.TokenSecret)
	userService := users.NewService(store)
	reportManager := reports.NewManager(store, userService)
	ledger := voting.NewLedger(store, voting.NewAggregator(store), userService)
	modService := moderation.NewService(store, tokens, reportManager)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, tokens)
	reportHandler := handlers.NewReportHandler(reportManager, tokens)
	voteHandler := handlers.NewVoteHandler(ledger, tokens)
	streamHandler := handlers.NewStreamHandler(store, reportManager)
	adminHandler := handlers.NewAdminHandler(modService, tokens)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Session and profile
	mux.HandleFunc("POST /session", middleware.WithLogging(userHandler.StartSession))
	mux.HandleFunc("GET /me", middleware.WithLogging(userHandler.GetMe))

	// Reports (public reads, signed-in writes)
	mux.HandleFunc("GET /reports", middleware.WithLogging(reportHandler.ListReports))
	mux.HandleFunc("POST /reports", middleware.WithLogging(limiter.Limit(reportHandler.CreateReport)))
	mux.HandleFunc("GET /reports/stream", middleware.WithLogging(streamHandler.StreamReports))
	mux.HandleFunc("GET /reports/{id}", middleware.WithLogging(reportHandler.GetReport))
	mux.HandleFunc("PATCH /reports/{id}", middleware.WithLogging(reportHandler.EditReport))

	// Voting
	mux.HandleFunc("POST /reports/{id}/votes", middleware.WithLogging(limiter.Limit(voteHandler.CastVote)))
	mux.HandleFunc("GET /reports/{id}/my-vote", middleware.WithLogging(voteHandler.GetMyVote))

	// Feedback (anonymous allowed)
	mux.HandleFunc("POST /feedback", middleware.WithLogging(limiter.Limit(adminHandler.SubmitFeedback)))

	// Moderation (admin claim verified per call)
	mux.HandleFunc("GET /admin/stats", middleware.WithLogging(adminHandler.GetStats))
	mux.HandleFunc("GET /admin/reports", middleware.WithLogging(adminHandler.ListReports))
	mux.HandleFunc("GET /admin/feedback", middleware.WithLogging(adminHandler.ListFeedback))
	mux.HandleFunc("POST /admin/reports/{id}/status", middleware.WithLogging(adminHandler.SetReportStatus))
	mux.HandleFunc("POST /admin/feedback/{id}/resolved", middleware.WithLogging(adminHandler.SetFeedbackResolved))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("rentradar API v1"))
	})

	return mux, nil
}
