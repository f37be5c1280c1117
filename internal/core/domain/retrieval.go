package domain

const (
	// DefaultCandidateWidth is the stage-1 broad recall width.
	DefaultCandidateWidth = 30
	// DefaultFinalK is the working-set size emitted after reranking.
	DefaultFinalK = 6
)

// RetrievalCandidate is one scored passage. Request-scoped, never persisted.
type RetrievalCandidate struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// RetrievalRequest describes one retrieval call. Zero KCandidates/KFinal
// fall back to the defaults; empty DocTypes searches every known index.
type RetrievalRequest struct {
	Query       string    `json:"query"`
	KCandidates int       `json:"k_candidates"`
	KFinal      int       `json:"k_final"`
	DocTypes    []DocType `json:"doc_types,omitempty"`
}
