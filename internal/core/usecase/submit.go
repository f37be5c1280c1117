package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

// SubmitChunksUseCase stages an incoming chunk batch and hands it to the
// ingestion worker through the queue. Validation here is shallow; per-chunk
// contract checks happen during ingestion so one bad chunk cannot block the
// rest of the batch.
type SubmitChunksUseCase struct {
	storage ports.BatchStorage
	queue   ports.MessageQueue
}

func NewSubmitChunksUseCase(storage ports.BatchStorage, queue ports.MessageQueue) *SubmitChunksUseCase {
	return &SubmitChunksUseCase{storage: storage, queue: queue}
}

func (uc *SubmitChunksUseCase) SubmitChunks(ctx context.Context, chunks []domain.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "submit chunks", errors.New("empty batch"))
	}
	for i, chunk := range chunks {
		if chunk.Source == "" {
			return "", domain.WrapError(domain.ErrInvalidInput, "submit chunks", fmt.Errorf("chunk %d missing source", i))
		}
		if chunk.DocType == "" {
			return "", domain.WrapError(domain.ErrInvalidInput, "submit chunks", fmt.Errorf("chunk %d missing docType", i))
		}
	}

	batchID := uuid.NewString()
	if err := uc.storage.SaveBatch(ctx, batchID, chunks); err != nil {
		return "", fmt.Errorf("stage chunk batch: %w", err)
	}
	if err := uc.queue.PublishChunkBatch(ctx, batchID); err != nil {
		return "", fmt.Errorf("publish chunk batch: %w", err)
	}
	return batchID, nil
}
