package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
	"github.com/corvelia/finrag/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	submitter ports.ChunkSubmitter
	retriever ports.Retriever
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(submitter ports.ChunkSubmitter, retriever ports.Retriever, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		submitter: submitter,
		retriever: retriever,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chunks", rt.submitChunks)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitChunkPayload struct {
	Source  string `json:"source"`
	Ordinal int    `json:"ordinal"`
	Content string `json:"content"`
	DocType string `json:"doc_type"`
}

func (rt *Router) submitChunks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Chunks []submitChunkPayload `json:"chunks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	chunks := make([]domain.Chunk, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		chunks = append(chunks, domain.Chunk{
			Source:  c.Source,
			Ordinal: c.Ordinal,
			Content: c.Content,
			DocType: domain.DocType(c.DocType),
		})
	}

	batchID, err := rt.submitter.SubmitChunks(r.Context(), chunks)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		perType := map[string]int{}
		for _, c := range chunks {
			perType[string(c.DocType)]++
		}
		for docType, count := range perType {
			rt.metrics.RecordSubmittedChunks(serviceName, docType, count)
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id": batchID,
		"chunks":   len(chunks),
	})
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query       string   `json:"query"`
		KCandidates int      `json:"k_candidates"`
		KFinal      int      `json:"k_final"`
		DocTypes    []string `json:"doc_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	docTypes := make([]domain.DocType, 0, len(req.DocTypes))
	for _, dt := range req.DocTypes {
		docTypes = append(docTypes, domain.DocType(dt))
	}

	start := time.Now()
	results, err := rt.retriever.Retrieve(r.Context(), domain.RetrievalRequest{
		Query:       req.Query,
		KCandidates: req.KCandidates,
		KFinal:      req.KFinal,
		DocTypes:    docTypes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, len(results), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// writeError maps the error kind to a status and echoes the request id so
// callers can quote it when reporting a failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	payload := map[string]string{"error": err.Error()}
	if requestID := requestIDFromContext(r.Context()); requestID != "" {
		payload["request_id"] = requestID
	}
	writeJSON(w, mapErrorToHTTPStatus(err), payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
