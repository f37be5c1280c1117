package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corvelia/finrag/internal/core/domain"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "lexical"
)

// pointNamespace makes qdrant point ids a pure function of the chunk id, so
// re-ingesting the same chunk replaces its point instead of duplicating it.
var pointNamespace = uuid.MustParse("7f1c3c0a-92d4-4b3e-9a41-6f2a8f0d5e71")

// Schema describes one collection's vector layout.
type Schema struct {
	VectorSize      int
	HNSWM           int
	HNSWEfConstruct int
}

// Collection is an HTTP client scoped to a single qdrant collection. One
// collection per document type keeps payloads homogeneous and lets search
// fan out per type.
type Collection struct {
	baseURL    string
	name       string
	schema     Schema
	httpClient *http.Client
}

func NewCollection(baseURL, name string, schema Schema) *Collection {
	return &Collection{
		baseURL:    strings.TrimRight(baseURL, "/"),
		name:       name,
		schema:     schema,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Collection) Name() string { return c.name }

// Exists reports whether the collection is already provisioned.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/collections/%s/exists", c.baseURL, c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create exists request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, domain.WrapError(domain.ErrExternalCall, "qdrant collection exists", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return false, domain.WrapError(domain.ErrExternalCall, "qdrant collection exists", statusError(resp))
	}

	var existsResp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&existsResp); err != nil {
		return false, fmt.Errorf("decode exists response: %w", err)
	}
	return existsResp.Result.Exists, nil
}

// Create provisions the collection with a named dense vector and a named
// sparse vector for lexical search. Conflict means another writer won the
// race, which is fine.
func (c *Collection) Create(ctx context.Context) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     c.schema.VectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
		"hnsw_config": map[string]any{
			"m":            c.schema.HNSWM,
			"ef_construct": c.schema.HNSWEfConstruct,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrExternalCall, "qdrant create collection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrExternalCall, "qdrant create collection", statusError(resp))
	}
	return nil
}

// Upsert writes records with deterministic point ids derived from the chunk
// id, so the same chunk always lands on the same point.
func (c *Collection) Upsert(ctx context.Context, records []domain.DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(records))
	for _, record := range records {
		points = append(points, point{
			ID: PointID(record.ID),
			Vector: map[string]any{
				denseVectorName:  record.Embedding,
				sparseVectorName: encodeSparseDocument(record.Content, record.Source),
			},
			Payload: recordPayload(record),
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrExternalCall, "qdrant upsert", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrExternalCall, "qdrant upsert", statusError(resp))
	}
	return nil
}

// Search runs dense similarity search over the named dense vector.
func (c *Collection) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievalCandidate, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":        queryVector,
		"using":        denseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	return c.query(ctx, reqBody, "qdrant dense search")
}

// SearchLexical runs sparse search with a BM25-style query encoding.
func (c *Collection) SearchLexical(ctx context.Context, query string, limit int) ([]domain.RetrievalCandidate, error) {
	sparse := encodeSparseQuery(query)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":        sparse,
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	return c.query(ctx, reqBody, "qdrant lexical search")
}

func (c *Collection) query(ctx context.Context, reqBody map[string]any, operation string) ([]domain.RetrievalCandidate, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrExternalCall, operation, statusError(resp))
	}

	var queryResp struct {
		Result struct {
			Points []struct {
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	out := make([]domain.RetrievalCandidate, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		out = append(out, domain.RetrievalCandidate{
			ID:      getStringPayload(p.Payload, "chunk_id"),
			Content: getStringPayload(p.Payload, "content"),
			Score:   p.Score,
		})
	}
	return out, nil
}

// PointID maps a chunk id onto a stable UUIDv5, which is the only string id
// shape qdrant accepts.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func recordPayload(record domain.DocumentRecord) map[string]any {
	payload := map[string]any{
		"chunk_id": record.ID,
		"source":   record.Source,
		"content":  record.Content,
		"doc_type": string(record.Metadata.DocType),
	}
	if record.Metadata.Company != "" {
		payload["company"] = record.Metadata.Company
		payload["year"] = record.Metadata.Year
		payload["quarter"] = record.Metadata.Quarter
	}
	if record.Metadata.ReportDate != nil {
		payload["report_date"] = record.Metadata.ReportDate.Format(time.RFC3339)
	}
	if record.Metadata.MeetingDate != "" {
		payload["meeting_date"] = record.Metadata.MeetingDate
	}
	if record.Metadata.Author != "" {
		payload["author"] = record.Metadata.Author
	}
	return payload
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("status %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("status %s", resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
