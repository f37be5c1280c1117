package ports

import (
	"context"

	"github.com/corvelia/finrag/internal/core/domain"
)

// Embedder builds fixed-dimensionality vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchIndex is one logical index holding the records of a single document
// type. Upsert replaces by record id, so re-ingestion is idempotent.
type SearchIndex interface {
	Upsert(ctx context.Context, records []domain.DocumentRecord) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievalCandidate, error)
	SearchLexical(ctx context.Context, queryText string, limit int) ([]domain.RetrievalCandidate, error)
}

// IndexRouter maps a document type to its index and guards schema readiness.
// EnsureIndexExists provisions schemas for every known type when the target
// is absent and reports ErrIndexNotReady so the caller retries; it never
// silently creates an index mid-batch.
type IndexRouter interface {
	Resolve(docType domain.DocType) (SearchIndex, error)
	EnsureIndexExists(ctx context.Context, docType domain.DocType) error
	Types() []domain.DocType
}

// MetadataExtractor parses a source identifier into structured attributes.
type MetadataExtractor interface {
	Extract(sourceName string, docType domain.DocType) (domain.Metadata, error)
}

// Reranker scores (query, passage) pairs with a cross-encoder relevance
// model. The returned slice is positional: scores[i] belongs to passages[i].
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// JudgeModel performs one structured elicitation call and returns the raw
// model output; schema validation happens at the caller.
type JudgeModel interface {
	JudgeJSON(ctx context.Context, prompt string) (string, error)
}

// ExampleStore reads the gold evaluation dataset and records verdicts.
type ExampleStore interface {
	ListExamples(ctx context.Context) ([]domain.EvaluationExample, error)
	SaveVerdicts(ctx context.Context, runID, exampleID string, verdicts []domain.JudgeVerdict) error
}

// MessageQueue carries chunk-batch ingestion events between api and worker.
type MessageQueue interface {
	PublishChunkBatch(ctx context.Context, batchID string) error
	SubscribeChunkBatch(ctx context.Context, handler func(context.Context, string) error) error
}

// BatchStorage stages submitted chunk batches until the worker ingests them.
type BatchStorage interface {
	SaveBatch(ctx context.Context, batchID string, chunks []domain.Chunk) error
	LoadBatch(ctx context.Context, batchID string) ([]domain.Chunk, error)
}
