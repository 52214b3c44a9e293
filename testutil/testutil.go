// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/cliparse"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/models"
)

// TestTokenSecret signs every identity token minted in tests
const TestTokenSecret = "test-token-secret"

// SetupTestStore returns an empty in-memory store closed at test cleanup
func SetupTestStore(t *testing.T) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return store
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseType:   cliparse.BackendMemory,
		MongoDatabase:  "rentradar",
		TokenSecret:    TestTokenSecret,
		IPHashSalt:     "test-ip-salt",
		VoteRatePerMin: 0,
	}
}

// Tokens returns the token issuer matching GetTestConfig
func Tokens() *auth.Tokens {
	return auth.NewTokens(TestTokenSecret)
}

// CreateTestToken mints an identity token for uid, with the admin claim
// when admin is set
func CreateTestToken(t *testing.T, uid string, admin bool) string {
	t.Helper()
	token, err := Tokens().Issue(auth.Identity{UID: uid, DisplayName: "Tester " + uid, Elevated: admin}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}

// AuthHeader builds the Authorization header for MakeRequest
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestReport stores an active report created by creator and returns its ID
func CreateTestReport(t *testing.T, store docstore.Store, id, creator string) string {
	t.Helper()

	now := models.Now()
	desc := "Test listing"
	r := models.Report{
		ID:          id,
		CreatedBy:   creator,
		CreatedAt:   now,
		ExpiresAt:   now.Add(models.ReportTTL),
		Location:    models.Location{Lat: 19.43, Lng: -99.13},
		Description: &desc,
		Status:      models.StatusActive,
	}
	if err := store.Put(context.Background(), models.CollectionReports, id, r.Fields(), docstore.PutOptions{}); err != nil {
		t.Fatalf("Failed to create test report: %v", err)
	}
	return id
}

// SetTestUserStatus creates or replaces uid's profile with the given status
func SetTestUserStatus(t *testing.T, store docstore.Store, uid, status string) {
	t.Helper()

	p := models.Profile{ID: uid, Status: status, CreatedAt: models.Now()}
	if err := store.Put(context.Background(), models.CollectionUsers, uid, p.Fields(), docstore.PutOptions{}); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
