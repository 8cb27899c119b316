// ABOUTME: HTTP client for submitting support queries to a Firebase-style RTDB.
// ABOUTME: Falls back to a local JSON log when the remote store is unreachable.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2389-research/attest/internal/models"
)

const (
	supportPath        = "support_queries"
	supportFallback    = "support_queries.json"
	supportHTTPTimeout = 15 * time.Second
)

// SupportClient pushes support queries to a Realtime-Database-style REST
// endpoint under the support_queries node.
type SupportClient struct {
	databaseURL string
	apiKey      string
	client      *http.Client
}

// NewSupportClient creates a support client for the given database URL.
// An empty URL yields a client whose Push always fails, which routes
// every submission through the local fallback.
func NewSupportClient(databaseURL, apiKey string) *SupportClient {
	return &SupportClient{
		databaseURL: strings.TrimRight(databaseURL, "/"),
		apiKey:      apiKey,
		client:      &http.Client{Timeout: supportHTTPTimeout},
	}
}

// Push submits one query to the remote store.
func (c *SupportClient) Push(query models.SupportQuery) error {
	if c.databaseURL == "" {
		return fmt.Errorf("no support database configured")
	}

	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal support query: %w", err)
	}

	url := c.databaseURL + "/" + supportPath + ".json"
	if c.apiKey != "" {
		url += "?auth=" + c.apiKey
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("support store request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("support store returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// SupportOutcome reports where a submission ended up.
type SupportOutcome struct {
	Remote       bool
	FallbackPath string
}

// SubmitWithFallback tries the remote store first and saves the query to
// a local JSON log when the push fails. The query is never dropped.
func (c *SupportClient) SubmitWithFallback(dataDir string, query models.SupportQuery) (SupportOutcome, error) {
	if err := c.Push(query); err == nil {
		return SupportOutcome{Remote: true}, nil
	}

	path := filepath.Join(dataDir, supportFallback)
	queries, err := readFallbackQueries(path)
	if err != nil {
		return SupportOutcome{}, err
	}
	queries = append(queries, query)

	data, err := json.MarshalIndent(queries, "", "  ")
	if err != nil {
		return SupportOutcome{}, fmt.Errorf("failed to marshal fallback log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return SupportOutcome{}, fmt.Errorf("failed to write fallback log: %w", err)
	}
	return SupportOutcome{FallbackPath: path}, nil
}

func readFallbackQueries(path string) ([]models.SupportQuery, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback log: %w", err)
	}
	var queries []models.SupportQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse fallback log: %w", err)
	}
	return queries, nil
}
