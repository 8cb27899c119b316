// ABOUTME: OpenAI-compatible HTTP embeddings client with retry and backoff.
// ABOUTME: Works against OpenAI, Ollama, and other /v1/embeddings endpoints.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// OpenAIClient is an embeddings client for OpenAI-compatible APIs.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	dimension  int
	client     *http.Client
	maxRetries int
}

// NewOpenAIClient creates an embeddings client from the given configuration.
// The API key is read from the configured environment variable.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &OpenAIClient{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: 5,
	}, nil
}

// Name identifies the embedder implementation and model.
func (c *OpenAIClient) Name() string { return "openai:" + c.model }

// Dimension returns the vector size, lazily set on first successful embed.
func (c *OpenAIClient) Dimension() int { return c.dimension }

// Embed returns an embedding vector for a single text. Blank text yields the
// zero vector without a request, matching the local embedder contract.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request batches, preserving input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))

	// Blank inputs never hit the API; their slots get zero vectors after
	// the dimension is known. Whitespace-only text counts as blank, matching
	// the local embedder.
	var pending []string
	var pendingIdx []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		pending = append(pending, t)
		pendingIdx = append(pendingIdx, i)
	}
	if len(texts) > 0 && len(pending) == 0 && c.dimension == 0 {
		return nil, fmt.Errorf("cannot embed an all-blank batch before the model dimension is known")
	}

	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		vecs, err := c.embedRequest(ctx, pending[start:end])
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			out[pendingIdx[start+j]] = v
		}
	}

	for i := range out {
		if out[i] == nil {
			out[i] = make([]float64, c.dimension)
		}
	}
	return out, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAIClient) embedRequest(ctx context.Context, texts []string) ([][]float64, error) {
	url := c.baseURL + "/embeddings"
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embeddings request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				if werr := sleepCtx(ctx, retryDelay(attempt)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("embeddings request failed: %w", lastErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings endpoint returned %s", resp.Status)
			if attempt < c.maxRetries {
				if werr := sleepCtx(ctx, delay); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, lastErr
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read embeddings response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("embeddings endpoint returned %s: %s", resp.Status, string(payload))
		}

		return c.decodeResponse(payload, len(texts))
	}
	return nil, lastErr
}

func (c *OpenAIClient) decodeResponse(payload []byte, want int) ([][]float64, error) {
	var out embeddingsResponse
	if err := json.Unmarshal(payload, &out); err == nil && len(out.Data) == want {
		// The API may return entries out of order; the index field is
		// authoritative.
		sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
		vecs := make([][]float64, want)
		for i, d := range out.Data {
			if len(d.Embedding) == 0 {
				return nil, fmt.Errorf("empty embedding at index %d", i)
			}
			vecs[i] = d.Embedding
		}
		if c.dimension == 0 {
			c.dimension = len(vecs[0])
		}
		return vecs, nil
	}

	// Ollama-native single shape: { "embedding": [...] }
	var ollama struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollama); err == nil && len(ollama.Embedding) > 0 && want == 1 {
		if c.dimension == 0 {
			c.dimension = len(ollama.Embedding)
		}
		return [][]float64{ollama.Embedding}, nil
	}

	return nil, fmt.Errorf("embeddings response did not contain %d vectors", want)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
