// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/moderation"
	"github.com/danielhkuo/rentradar/reports"
	"github.com/danielhkuo/rentradar/testutil"
	"github.com/danielhkuo/rentradar/users"
	"github.com/danielhkuo/rentradar/voting"
)

// setupHandlers wires every handler onto a mux with the production patterns
func setupHandlers(t *testing.T) (*http.ServeMux, *docstore.MemoryStore) {
	t.Helper()
	store := testutil.SetupTestStore(t)
	tokens := testutil.Tokens()

	userService := users.NewService(store)
	manager := reports.NewManager(store, userService)
	ledger := voting.NewLedger(store, voting.NewAggregator(store), userService)

	userHandler := NewUserHandler(userService, tokens)
	reportHandler := NewReportHandler(manager, tokens)
	voteHandler := NewVoteHandler(ledger, tokens)
	streamHandler := NewStreamHandler(store, manager)
	adminHandler := NewAdminHandler(moderation.NewService(store, tokens, manager), tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", userHandler.StartSession)
	mux.HandleFunc("GET /me", userHandler.GetMe)
	mux.HandleFunc("GET /reports", reportHandler.ListReports)
	mux.HandleFunc("POST /reports", reportHandler.CreateReport)
	mux.HandleFunc("GET /reports/stream", streamHandler.StreamReports)
	mux.HandleFunc("GET /reports/{id}", reportHandler.GetReport)
	mux.HandleFunc("PATCH /reports/{id}", reportHandler.EditReport)
	mux.HandleFunc("POST /reports/{id}/votes", voteHandler.CastVote)
	mux.HandleFunc("GET /reports/{id}/my-vote", voteHandler.GetMyVote)
	mux.HandleFunc("POST /feedback", adminHandler.SubmitFeedback)
	mux.HandleFunc("GET /admin/stats", adminHandler.GetStats)
	mux.HandleFunc("GET /admin/reports", adminHandler.ListReports)
	mux.HandleFunc("GET /admin/feedback", adminHandler.ListFeedback)
	mux.HandleFunc("POST /admin/reports/{id}/status", adminHandler.SetReportStatus)
	mux.HandleFunc("POST /admin/feedback/{id}/resolved", adminHandler.SetFeedbackResolved)
	return mux, store
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestCreateReport(t *testing.T) {
	mux, _ := setupHandlers(t)
	token := testutil.CreateTestToken(t, "creator", false)
	loc := &models.Location{Lat: 19.43, Lng: -99.13}

	testCases := []struct {
		name           string
		headers        map[string]string
		body           interface{}
		expectedStatus int
	}{
		{"no token", nil, models.CreateReportRequest{Location: loc, Price: "9000"}, http.StatusUnauthorized},
		{"bad token", testutil.AuthHeader("garbage"), models.CreateReportRequest{Location: loc, Price: "9000"}, http.StatusUnauthorized},
		{"invalid JSON", testutil.AuthHeader(token), "not an object", http.StatusBadRequest},
		{"missing location", testutil.AuthHeader(token), models.CreateReportRequest{Price: "9000"}, http.StatusBadRequest},
		{"bad phone", testutil.AuthHeader(token), models.CreateReportRequest{Location: loc, Phone: "12345"}, http.StatusBadRequest},
		{"no details", testutil.AuthHeader(token), models.CreateReportRequest{Location: loc}, http.StatusBadRequest},
		{"valid", testutil.AuthHeader(token), models.CreateReportRequest{Location: loc, Price: "9000", Phone: "55-1234-5678"}, http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(mux, testutil.MakeRequest("POST", "/reports", tc.body, tc.headers))
			testutil.AssertStatus(t, w, tc.expectedStatus)

			if tc.expectedStatus == http.StatusCreated {
				var resp models.CreateReportResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.ReportID == "" || resp.ExpiresAt.IsZero() {
					t.Errorf("Incomplete create response: %+v", resp)
				}
			}
		})
	}
}

func TestCreateReport_BannedUser(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.SetTestUserStatus(t, store, "spammer", models.UserBanned)

	w := serve(mux, testutil.MakeRequest("POST", "/reports",
		models.CreateReportRequest{Location: &models.Location{Lat: 1, Lng: 1}, Description: "x"},
		testutil.AuthHeader(testutil.CreateTestToken(t, "spammer", false))))
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestGetAndListReports(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")

	w := serve(mux, testutil.MakeRequest("GET", "/reports/r1", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var view models.ReportView
	testutil.AssertJSON(t, w, &view)
	if view.ID != "r1" || !view.Visible || view.DisplayStatus != models.DisplayNeutral {
		t.Errorf("Unexpected report view: %+v", view)
	}

	w = serve(mux, testutil.MakeRequest("GET", "/reports/missing", nil, nil))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = serve(mux, testutil.MakeRequest("GET", "/reports/r1", nil, map[string]string{"Authorization": "Bearer garbage"}))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = serve(mux, testutil.MakeRequest("GET", "/reports?limit=abc", nil, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = serve(mux, testutil.MakeRequest("GET", "/reports?limit=5", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var list models.ListReportsResponse
	testutil.AssertJSON(t, w, &list)
	if len(list.Reports) != 1 {
		t.Errorf("Expected 1 report, got %d", len(list.Reports))
	}
}

func TestGetHiddenReport(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")
	if err := store.Put(context.Background(), models.CollectionReports, "r1",
		docstore.Fields{"status": models.StatusInactive}, docstore.PutOptions{Merge: true}); err != nil {
		t.Fatalf("Failed to hide report: %v", err)
	}

	testCases := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{"anonymous", nil, http.StatusNotFound},
		{"other user", testutil.AuthHeader(testutil.CreateTestToken(t, "u1", false)), http.StatusNotFound},
		{"creator", testutil.AuthHeader(testutil.CreateTestToken(t, "creator", false)), http.StatusOK},
		{"admin", testutil.AuthHeader(testutil.CreateTestToken(t, "mod", true)), http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(mux, testutil.MakeRequest("GET", "/reports/r1", nil, tc.headers))
			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedStatus != http.StatusOK {
				if strings.Contains(w.Body.String(), "Test listing") {
					t.Errorf("Hidden report content leaked: %s", w.Body.String())
				}
				return
			}
			var view models.ReportView
			testutil.AssertJSON(t, w, &view)
			if view.Visible {
				t.Errorf("Expected visible=false, got %+v", view)
			}
		})
	}
}

func TestEditReport(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")

	testCases := []struct {
		name           string
		uid            string
		body           models.EditReportRequest
		expectedStatus int
	}{
		{"not the creator", "someone", models.EditReportRequest{Price: "100"}, http.StatusForbidden},
		{"clears everything", "creator", models.EditReportRequest{}, http.StatusBadRequest},
		{"bad phone", "creator", models.EditReportRequest{Phone: "555"}, http.StatusBadRequest},
		{"creator edit", "creator", models.EditReportRequest{Price: "8500", Description: "Updated"}, http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(mux, testutil.MakeRequest("PATCH", "/reports/r1", tc.body,
				testutil.AuthHeader(testutil.CreateTestToken(t, tc.uid, false))))
			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}

	w := serve(mux, testutil.MakeRequest("GET", "/reports/r1", nil, nil))
	var view models.ReportView
	testutil.AssertJSON(t, w, &view)
	if view.Price == nil || *view.Price != "8500" {
		t.Errorf("Expected edited price, got %v", view.Price)
	}
}

func TestModerationChecksTokenBeforeBody(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")
	user := testutil.AuthHeader(testutil.CreateTestToken(t, "u1", false))

	paths := []string{"/admin/reports/r1/status", "/admin/feedback/f1/resolved"}
	testCases := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"regular user", user, http.StatusForbidden},
	}

	for _, path := range paths {
		for _, tc := range testCases {
			t.Run(path+" "+tc.name, func(t *testing.T) {
				req := httptest.NewRequest("POST", path, strings.NewReader("{not json"))
				req.Header.Set("Content-Type", "application/json")
				for k, v := range tc.headers {
					req.Header.Set(k, v)
				}
				w := serve(mux, req)
				testutil.AssertStatus(t, w, tc.expectedStatus)
			})
		}
	}
}

func TestCastVote(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")
	auth := testutil.AuthHeader(testutil.CreateTestToken(t, "voter", false))

	steps := []struct {
		name               string
		voteType           string
		expectedStatus     int
		expectedTransition string
		expectedMine       *models.VoteCategory
	}{
		{"unknown category", "spam", http.StatusBadRequest, "", nil},
		{"first vote", "confirm", http.StatusOK, models.TransitionCreated, categoryPtr(models.VoteConfirm)},
		{"switch", "inactive", http.StatusOK, models.TransitionSwitched, categoryPtr(models.VoteInactive)},
		{"withdraw", "inactive", http.StatusOK, models.TransitionWithdrawn, nil},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			w := serve(mux, testutil.MakeRequest("POST", "/reports/r1/votes", models.CastVoteRequest{VoteType: step.voteType}, auth))
			testutil.AssertStatus(t, w, step.expectedStatus)
			if step.expectedStatus != http.StatusOK {
				return
			}
			var resp models.CastVoteResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Transition != step.expectedTransition || resp.Message == "" {
				t.Errorf("Unexpected vote response: %+v", resp)
			}

			w = serve(mux, testutil.MakeRequest("GET", "/reports/r1/my-vote", nil, auth))
			testutil.AssertStatus(t, w, http.StatusOK)
			var mine models.MyVoteResponse
			testutil.AssertJSON(t, w, &mine)
			if (mine.VoteType == nil) != (step.expectedMine == nil) ||
				(mine.VoteType != nil && *mine.VoteType != *step.expectedMine) {
				t.Errorf("Expected my vote %v, got %v", step.expectedMine, mine.VoteType)
			}
		})
	}

	t.Run("missing report", func(t *testing.T) {
		w := serve(mux, testutil.MakeRequest("POST", "/reports/nope/votes", models.CastVoteRequest{VoteType: "fraud"}, auth))
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := serve(mux, testutil.MakeRequest("POST", "/reports/r1/votes", models.CastVoteRequest{VoteType: "fraud"}, nil))
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}

func categoryPtr(c models.VoteCategory) *models.VoteCategory { return &c }

// TestConcurrentVoteSubmissions verifies that simultaneous votes from
// different voters are all counted exactly once
func TestConcurrentVoteSubmissions(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")

	const numVoters = 25
	tokens := make([]string, numVoters)
	for i := range tokens {
		tokens[i] = testutil.CreateTestToken(t, fmt.Sprintf("voter-%d", i), false)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := serve(mux, testutil.MakeRequest("POST", "/reports/r1/votes",
				models.CastVoteRequest{VoteType: "possible"}, testutil.AuthHeader(tokens[i])))
			if w.Code == http.StatusOK {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := successCount.Load(); got != numVoters {
		t.Fatalf("Expected %d successful votes, got %d", numVoters, got)
	}

	doc, err := store.Get(context.Background(), models.CollectionReports, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got := models.CountersFromFields(doc.Fields).PossibleFraudVotes; got != numVoters {
		t.Errorf("Expected %d possible-fraud votes, got %d", numVoters, got)
	}
}

func TestSessionAndProfile(t *testing.T) {
	mux, _ := setupHandlers(t)
	auth := testutil.AuthHeader(testutil.CreateTestToken(t, "u1", false))

	w := serve(mux, testutil.MakeRequest("GET", "/me", nil, auth))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = serve(mux, testutil.MakeRequest("POST", "/session", nil, auth))
	testutil.AssertStatus(t, w, http.StatusOK)

	w = serve(mux, testutil.MakeRequest("POST", "/session", models.SessionRequest{Email: "u1@example.com"}, auth))
	testutil.AssertStatus(t, w, http.StatusOK)

	w = serve(mux, testutil.MakeRequest("GET", "/me", nil, auth))
	testutil.AssertStatus(t, w, http.StatusOK)
	var profile models.Profile
	testutil.AssertJSON(t, w, &profile)
	if profile.ID != "u1" || profile.Email != "u1@example.com" || profile.Status != models.UserActive {
		t.Errorf("Unexpected profile: %+v", profile)
	}

	w = serve(mux, testutil.MakeRequest("GET", "/me", nil, nil))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestFeedbackAndModeration(t *testing.T) {
	mux, store := setupHandlers(t)
	testutil.CreateTestReport(t, store, "r1", "creator")
	admin := testutil.AuthHeader(testutil.CreateTestToken(t, "mod", true))
	user := testutil.AuthHeader(testutil.CreateTestToken(t, "u1", false))

	// Anonymous and signed-in submissions
	w := serve(mux, testutil.MakeRequest("POST", "/feedback", models.SubmitFeedbackRequest{Message: "Great app"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	w = serve(mux, testutil.MakeRequest("POST", "/feedback", models.SubmitFeedbackRequest{Message: "Map is slow", Type: "bug"}, user))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var submitted models.SubmitFeedbackResponse
	testutil.AssertJSON(t, w, &submitted)

	w = serve(mux, testutil.MakeRequest("POST", "/feedback", models.SubmitFeedbackRequest{}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	accessCases := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"regular user", user, http.StatusForbidden},
		{"admin", admin, http.StatusOK},
	}
	for _, tc := range accessCases {
		t.Run("stats "+tc.name, func(t *testing.T) {
			w := serve(mux, testutil.MakeRequest("GET", "/admin/stats", nil, tc.headers))
			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}

	w = serve(mux, testutil.MakeRequest("GET", "/admin/feedback?status=pending&q=map", nil, admin))
	testutil.AssertStatus(t, w, http.StatusOK)
	var page models.FeedbackPageResponse
	testutil.AssertJSON(t, w, &page)
	if len(page.Items) != 1 || page.Items[0].ID != submitted.FeedbackID {
		t.Fatalf("Expected the bug ticket, got %+v", page.Items)
	}

	w = serve(mux, testutil.MakeRequest("POST", "/admin/feedback/"+submitted.FeedbackID+"/resolved", models.SetResolvedRequest{Resolved: true}, admin))
	testutil.AssertStatus(t, w, http.StatusNoContent)
	w = serve(mux, testutil.MakeRequest("POST", "/admin/feedback/missing/resolved", models.SetResolvedRequest{Resolved: true}, admin))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = serve(mux, testutil.MakeRequest("GET", "/admin/stats", nil, admin))
	var stats models.StatsResponse
	testutil.AssertJSON(t, w, &stats)
	if stats.TotalFeedback != 2 || stats.PendingFeedback != 1 || stats.ActiveReports != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	w = serve(mux, testutil.MakeRequest("GET", "/admin/reports?cursor=not-a-cursor", nil, admin))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = serve(mux, testutil.MakeRequest("POST", "/admin/reports/r1/status", models.SetStatusRequest{Status: "archived"}, admin))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	w = serve(mux, testutil.MakeRequest("POST", "/admin/reports/r1/status", models.SetStatusRequest{Status: models.StatusInactive}, admin))
	testutil.AssertStatus(t, w, http.StatusNoContent)

	w = serve(mux, testutil.MakeRequest("GET", "/admin/reports?status=inactive", nil, admin))
	testutil.AssertStatus(t, w, http.StatusOK)
	var reportsPage models.ReportPageResponse
	testutil.AssertJSON(t, w, &reportsPage)
	if len(reportsPage.Items) != 1 || reportsPage.Items[0].Status != models.StatusInactive {
		t.Errorf("Expected the disabled report, got %+v", reportsPage.Items)
	}
}
