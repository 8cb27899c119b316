// ABOUTME: Tests for the support query client.
// ABOUTME: Covers remote pushes, auth params, and the local JSON fallback.
package storage

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2389-research/attest/internal/models"
)

func testQuery() models.SupportQuery {
	return models.SupportQuery{
		Name:      "Ada",
		Contact:   "ada@example.com",
		Message:   "Evidence upload keeps timing out.",
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestSupportClientPush(t *testing.T) {
	var gotPath string
	var gotBody models.SupportQuery

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"-Nabc123"}`))
	}))
	defer server.Close()

	client := NewSupportClient(server.URL, "")
	if err := client.Push(testQuery()); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if gotPath != "/support_queries.json" {
		t.Errorf("path = %q, want /support_queries.json", gotPath)
	}
	if gotBody.Name != "Ada" {
		t.Errorf("Name = %q, want Ada", gotBody.Name)
	}
	if gotBody.Message != "Evidence upload keeps timing out." {
		t.Errorf("Message = %q", gotBody.Message)
	}
}

func TestSupportClientPushSendsAuth(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.URL.Query().Get("auth")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewSupportClient(server.URL, "secret-key")
	if err := client.Push(testQuery()); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if gotAuth != "secret-key" {
		t.Errorf("auth param = %q, want secret-key", gotAuth)
	}
}

func TestSupportClientPushServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission denied"}`))
	}))
	defer server.Close()

	client := NewSupportClient(server.URL, "")
	if err := client.Push(testQuery()); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestSubmitWithFallbackRemoteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dataDir := t.TempDir()
	client := NewSupportClient(server.URL, "")

	outcome, err := client.SubmitWithFallback(dataDir, testQuery())
	if err != nil {
		t.Fatalf("SubmitWithFallback failed: %v", err)
	}
	if !outcome.Remote {
		t.Error("expected remote outcome")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "support_queries.json")); !os.IsNotExist(err) {
		t.Error("fallback file should not exist after remote success")
	}
}

func TestSubmitWithFallbackUnreachable(t *testing.T) {
	dataDir := t.TempDir()
	// Nothing listens here, so the push fails and falls back to disk.
	client := NewSupportClient("http://127.0.0.1:1", "")

	outcome, err := client.SubmitWithFallback(dataDir, testQuery())
	if err != nil {
		t.Fatalf("SubmitWithFallback failed: %v", err)
	}
	if outcome.Remote {
		t.Error("expected fallback outcome")
	}

	data, err := os.ReadFile(outcome.FallbackPath)
	if err != nil {
		t.Fatalf("failed to read fallback log: %v", err)
	}
	var queries []models.SupportQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		t.Fatalf("failed to parse fallback log: %v", err)
	}
	if len(queries) != 1 || queries[0].Name != "Ada" {
		t.Errorf("unexpected fallback contents: %+v", queries)
	}

	// A second failed submission appends rather than overwrites.
	second := testQuery()
	second.Name = "Grace"
	if _, err := client.SubmitWithFallback(dataDir, second); err != nil {
		t.Fatalf("second SubmitWithFallback failed: %v", err)
	}
	data, err = os.ReadFile(outcome.FallbackPath)
	if err != nil {
		t.Fatalf("failed to reread fallback log: %v", err)
	}
	if err := json.Unmarshal(data, &queries); err != nil {
		t.Fatalf("failed to reparse fallback log: %v", err)
	}
	if len(queries) != 2 || queries[1].Name != "Grace" {
		t.Errorf("unexpected fallback contents after second submit: %+v", queries)
	}
}

func TestSupportClientNoDatabase(t *testing.T) {
	client := NewSupportClient("", "")
	if err := client.Push(testQuery()); err == nil {
		t.Error("expected error when no database URL is configured")
	}
}
