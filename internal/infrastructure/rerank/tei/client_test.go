package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corvelia/finrag/internal/core/domain"
)

func TestScoreMapsRankedResponseBackToInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Query != "revenue" || len(payload.Texts) != 3 {
			t.Errorf("unexpected request: %+v", payload)
		}
		// Descending score order, as the service replies.
		_, _ = w.Write([]byte(`[{"index":2,"score":0.9},{"index":0,"score":0.5},{"index":1,"score":0.1}]`))
	}))
	defer server.Close()

	scores, err := New(server.URL).Score(context.Background(), "revenue", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	want := []float64{0.5, 0.1, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, scores)
		}
	}
}

func TestScoreRejectsIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":0.5}]`))
	}))
	defer server.Close()

	_, err := New(server.URL).Score(context.Background(), "q", []string{"a", "b"})
	if !domain.IsKind(err, domain.ErrExternalCall) {
		t.Fatalf("expected ErrExternalCall, got %v", err)
	}
}

func TestScoreRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":5,"score":0.5}]`))
	}))
	defer server.Close()

	_, err := New(server.URL).Score(context.Background(), "q", []string{"a"})
	if !domain.IsKind(err, domain.ErrExternalCall) {
		t.Fatalf("expected ErrExternalCall, got %v", err)
	}
}

func TestScoreEmptyPassages(t *testing.T) {
	scores, err := New("http://unused").Score(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Fatalf("empty input must short-circuit, got %v %v", scores, err)
	}
}
