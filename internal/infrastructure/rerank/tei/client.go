package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

// Client scores query/passage pairs against a text-embeddings-inference
// rerank endpoint backed by a cross-encoder model.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Score returns one relevance score per passage, positionally aligned with
// the input. The endpoint replies in descending-score order with the
// original index attached, so scores are mapped back before returning.
func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"query": query,
		"texts": passages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "rerank", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, domain.WrapError(domain.ErrExternalCall, "rerank",
			fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(respBody))))
	}

	var ranked []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ranked); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(ranked) != len(passages) {
		return nil, domain.WrapError(domain.ErrExternalCall, "rerank",
			fmt.Errorf("got %d scores for %d passages", len(ranked), len(passages)))
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(passages) || seen[r.Index] {
			return nil, domain.WrapError(domain.ErrExternalCall, "rerank",
				fmt.Errorf("invalid passage index %d", r.Index))
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	return scores, nil
}

var _ ports.Reranker = (*Client)(nil)
