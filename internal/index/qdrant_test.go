// ABOUTME: Tests for the Qdrant REST index client against a mock server.
// ABOUTME: Covers collection setup, point upserts, search mapping, and auth headers.
package index

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type qdrantCapture struct {
	collectionBody map[string]any
	pointsBody     map[string]any
	searchBody     map[string]any
	apiKeys        []string
}

func newMockQdrant(t *testing.T, captured *qdrantCapture, searchResult string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.apiKeys = append(captured.apiKeys, r.Header.Get("api-key"))

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding %s %s body: %v", r.Method, r.URL.Path, err)
		}

		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/attest":
			captured.collectionBody = body
		case r.Method == http.MethodPut && r.URL.Path == "/collections/attest/points":
			captured.pointsBody = body
		case r.Method == http.MethodPost && r.URL.Path == "/collections/attest/points/search":
			captured.searchBody = body
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(searchResult))
			return
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	}))
}

func TestQdrantLoadCreatesCollectionAndUpserts(t *testing.T) {
	captured := &qdrantCapture{}
	srv := newMockQdrant(t, captured, `{"result":[]}`)
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL, APIKey: "secret"})
	vectors := [][]float64{{1, 0, 0}, {0, 1, 0}}
	if err := q.Load(vectors); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if captured.collectionBody == nil {
		t.Fatal("collection was not created")
	}
	vecCfg, ok := captured.collectionBody["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected collection body: %v", captured.collectionBody)
	}
	if vecCfg["size"] != float64(3) {
		t.Errorf("expected vector size 3, got %v", vecCfg["size"])
	}
	if vecCfg["distance"] != "Cosine" {
		t.Errorf("expected Cosine distance, got %v", vecCfg["distance"])
	}

	if captured.pointsBody == nil {
		t.Fatal("points were not upserted")
	}
	points, ok := captured.pointsBody["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("expected 2 points, got %v", captured.pointsBody["points"])
	}
	first := points[0].(map[string]any)
	payload := first["payload"].(map[string]any)
	if payload["row"] != float64(0) {
		t.Errorf("expected row 0 in payload, got %v", payload["row"])
	}

	for _, key := range captured.apiKeys {
		if key != "secret" {
			t.Errorf("expected api-key header on every request, got %q", key)
		}
	}
}

func TestQdrantSearchMapsRowsAndClampsScores(t *testing.T) {
	captured := &qdrantCapture{}
	srv := newMockQdrant(t, captured, `{"result":[
		{"score":1.0000002,"payload":{"row":2}},
		{"score":0.5,"payload":{"row":0}}
	]}`)
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	if err := q.Load([][]float64{{1, 0}, {0, 1}, {1, 1}}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	results, err := q.Search([]float64{1, 1}, 2)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Row != 2 || results[1].Row != 0 {
		t.Errorf("unexpected rows: %d, %d", results[0].Row, results[1].Row)
	}
	if results[0].Score != 1 {
		t.Errorf("expected score clamped to 1, got %f", results[0].Score)
	}

	if captured.searchBody["with_payload"] != true {
		t.Error("expected with_payload in search request")
	}
	if captured.searchBody["limit"] != float64(2) {
		t.Errorf("expected limit 2, got %v", captured.searchBody["limit"])
	}
}

func TestQdrantSearchEmptyIndex(t *testing.T) {
	q := NewQdrant(QdrantConfig{URL: "http://127.0.0.1:1"})
	if err := q.Load(nil); err != nil {
		t.Fatalf("Load(nil) error: %v", err)
	}
	if _, err := q.Search([]float64{1, 0}, 5); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestQdrantSearchNoHits(t *testing.T) {
	captured := &qdrantCapture{}
	srv := newMockQdrant(t, captured, `{"result":[]}`)
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	if err := q.Load([][]float64{{1, 0}}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := q.Search([]float64{0, 1}, 3); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty on zero hits, got %v", err)
	}
}

func TestQdrantServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	if err := q.Load([][]float64{{1, 0}}); err == nil {
		t.Fatal("expected error from forbidden response")
	}
}
