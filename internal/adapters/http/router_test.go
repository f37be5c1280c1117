package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corvelia/finrag/internal/core/domain"
)

type submitterFake struct {
	batchID string
	err     error
	chunks  []domain.Chunk
}

func (f *submitterFake) SubmitChunks(_ context.Context, chunks []domain.Chunk) (string, error) {
	f.chunks = chunks
	if f.err != nil {
		return "", f.err
	}
	return f.batchID, nil
}

type retrieverFake struct {
	results []domain.RetrievalCandidate
	err     error
	req     domain.RetrievalRequest
}

func (f *retrieverFake) Retrieve(_ context.Context, req domain.RetrievalRequest) ([]domain.RetrievalCandidate, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestRouter(submitter *submitterFake, retriever *retrieverFake) http.Handler {
	return NewRouter(submitter, retriever, nil).Handler()
}

func TestSubmitChunksAccepted(t *testing.T) {
	submitter := &submitterFake{batchID: "batch-1"}
	handler := newTestRouter(submitter, &retrieverFake{})

	body := `{"chunks":[{"source":"aapl-2024-2.txt","ordinal":0,"content":"revenue","doc_type":"earnings_call"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chunks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["batch_id"] != "batch-1" {
		t.Fatalf("expected batch id, got %v", resp)
	}
	if len(submitter.chunks) != 1 || submitter.chunks[0].DocType != domain.DocTypeEarningsCall {
		t.Fatalf("unexpected chunks: %+v", submitter.chunks)
	}
}

func TestSubmitChunksInvalidInputIs400(t *testing.T) {
	submitter := &submitterFake{err: domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("empty batch"))}
	handler := newTestRouter(submitter, &retrieverFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chunks", strings.NewReader(`{"chunks":[]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRetrievePassesRequestThrough(t *testing.T) {
	retriever := &retrieverFake{results: []domain.RetrievalCandidate{{ID: "c-1", Content: "revenue", Score: 0.9}}}
	handler := newTestRouter(&submitterFake{}, retriever)

	body := `{"query":"apple revenue","k_final":3,"doc_types":["earnings_call"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if retriever.req.KFinal != 3 || len(retriever.req.DocTypes) != 1 {
		t.Fatalf("unexpected request: %+v", retriever.req)
	}
	var resp struct {
		Results []domain.RetrievalCandidate `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "c-1" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestRetrieveBlankQueryIs400(t *testing.T) {
	handler := newTestRouter(&submitterFake{}, &retrieverFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRetrieveIndexNotReadyIs503(t *testing.T) {
	retriever := &retrieverFake{err: domain.WrapError(domain.ErrIndexNotReady, "ensure index", errors.New("provisioned"))}
	handler := newTestRouter(&submitterFake{}, retriever)

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query":"q"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(&submitterFake{}, &retrieverFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestRequestIDHeaderIsPropagated(t *testing.T) {
	handler := newTestRouter(&submitterFake{}, &retrieverFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestErrorPayloadCarriesRequestID(t *testing.T) {
	retriever := &retrieverFake{err: domain.WrapError(domain.ErrIndexNotReady, "ensure index", errors.New("provisioned"))}
	handler := newTestRouter(&submitterFake{}, retriever)

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query":"q"}`))
	req.Header.Set(requestIDHeader, "req-err-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["request_id"] != "req-err-7" {
		t.Fatalf("error payload must echo the request id, got %v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&submitterFake{}, &retrieverFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/retrieve", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
