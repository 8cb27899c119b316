// ABOUTME: Minimal Qdrant REST client implementing the Index interface.
// ABOUTME: Points carry their reference row position in the payload.
package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Qdrant is a similarity index backed by a Qdrant collection over REST.
// It assumes cosine distance and creates the collection if missing.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	count      int
	client     *http.Client
}

// QdrantConfig holds connection details for a Qdrant index.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrant creates a Qdrant-backed index client.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "attest"
	}
	return &Qdrant{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Load replaces the collection contents with the given vectors, storing each
// vector's row position in its payload.
func (q *Qdrant) Load(vectors [][]float64) error {
	if len(vectors) == 0 {
		q.count = 0
		return nil
	}
	q.dimension = len(vectors[0])
	q.count = len(vectors)

	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": "Cosine",
		},
	}
	if err := q.putJSON(fmt.Sprintf("%s/collections/%s", q.url, q.collection), body); err != nil {
		return err
	}

	points := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		points[i] = map[string]any{
			"id":      i,
			"vector":  v,
			"payload": map[string]any{"row": i},
		}
	}
	return q.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection), map[string]any{"points": points})
}

// Search queries the collection for the topK nearest vectors.
func (q *Qdrant) Search(vector []float64, topK int) ([]Result, error) {
	if q.count == 0 {
		return nil, ErrEmpty
	}
	if topK <= 0 {
		topK = 10
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.postJSON(fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, ErrEmpty
	}

	results := make([]Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		row, ok := r.Payload["row"].(float64)
		if !ok {
			return nil, errors.New("qdrant point missing row payload")
		}
		score := r.Score
		if score > 1 {
			score = 1
		}
		if score < -1 {
			score = -1
		}
		results = append(results, Result{Row: int(row), Score: score})
	}
	return results, nil
}

func (q *Qdrant) putJSON(url string, body any) error {
	return q.doJSON(http.MethodPut, url, body, nil)
}

func (q *Qdrant) postJSON(url string, body any, out any) error {
	return q.doJSON(http.MethodPost, url, body, out)
}

func (q *Qdrant) doJSON(method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal qdrant request: %w", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
