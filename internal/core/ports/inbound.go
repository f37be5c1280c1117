package ports

import (
	"context"

	"github.com/corvelia/finrag/internal/core/domain"
)

// ChunkSubmitter is the inbound contract for accepting chunk batches.
type ChunkSubmitter interface {
	SubmitChunks(ctx context.Context, chunks []domain.Chunk) (string, error)
}

// ChunkIngestor is the inbound contract for asynchronous batch ingestion.
type ChunkIngestor interface {
	IngestBatch(ctx context.Context, batchID string) (*domain.IngestReport, error)
}

// Retriever is the inbound contract for two-stage retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest) ([]domain.RetrievalCandidate, error)
}
