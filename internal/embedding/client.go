// Package embedding provides a client for an Ollama-compatible embedding
// service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// errBodyPlaceholder stands in for an error body that could not be read.
const errBodyPlaceholder = "<unreadable response body>"

// maxErrBodyBytes caps how much of a failed response we echo into errors.
const maxErrBodyBytes = 4096

// Client calls the embedding endpoint of an Ollama-compatible server.
// It performs no retries or backoff; failures surface to the caller,
// which owns the retry policy.
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
}

// NewClient creates an embedding client for the given server base URL
// and model identifier.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Model returns the embedding model identifier the client sends with
// every request. Comparing it against a dataset's recorded model detects
// mismatched embedding spaces before they silently degrade scores.
func (c *Client) Model() string {
	return c.model
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends one batched request and returns one vector per input, in
// input order. A response whose vector count disagrees with the input
// count is an error: silently misaligned pairs would poison the corpus.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service returned status %d: %s",
			resp.StatusCode, readErrorBody(resp.Body))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if out.Embeddings == nil {
		return nil, fmt.Errorf("embed response has no embeddings field")
	}
	if len(out.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs",
			len(out.Embeddings), len(inputs))
	}

	return out.Embeddings, nil
}

// Health probes the server's version endpoint to verify reachability.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("build version request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}
	return nil
}

// readErrorBody extracts a failed response's body for error reporting,
// degrading to a placeholder instead of raising a secondary failure.
func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrBodyBytes))
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return errBodyPlaceholder
	}
	return string(bytes.TrimSpace(b))
}
