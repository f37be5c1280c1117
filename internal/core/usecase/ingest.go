package usecase

import (
	"context"
	"fmt"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

// IngestChunksUseCase turns a staged chunk batch into index records:
// group by document type, verify the target index, extract metadata, derive
// content-addressed ids, embed, upsert. Upserts replace by id, so re-running
// a batch converges to the same index state.
type IngestChunksUseCase struct {
	storage  ports.BatchStorage
	metadata ports.MetadataExtractor
	embedder ports.Embedder
	router   ports.IndexRouter
}

func NewIngestChunksUseCase(
	storage ports.BatchStorage,
	metadata ports.MetadataExtractor,
	embedder ports.Embedder,
	router ports.IndexRouter,
) *IngestChunksUseCase {
	return &IngestChunksUseCase{
		storage:  storage,
		metadata: metadata,
		embedder: embedder,
		router:   router,
	}
}

// IngestBatch processes one staged batch. Chunks violating their metadata
// contract are rejected individually and reported; an absent index aborts
// the whole batch with ErrIndexNotReady so the caller retries after
// provisioning.
func (uc *IngestChunksUseCase) IngestBatch(ctx context.Context, batchID string) (*domain.IngestReport, error) {
	chunks, err := uc.storage.LoadBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load chunk batch: %w", err)
	}

	report := &domain.IngestReport{BatchID: batchID}

	grouped, order := groupByDocType(chunks)
	for _, docType := range order {
		group := grouped[docType]

		index, err := uc.router.Resolve(docType)
		if err != nil {
			rejectAll(report, group, err)
			continue
		}
		if err := uc.router.EnsureIndexExists(ctx, docType); err != nil {
			// Fail closed for the batch: a half-provisioned schema must not
			// absorb writes.
			return report, fmt.Errorf("ensure index for %s: %w", docType, err)
		}

		records := uc.buildRecords(report, group)
		if len(records) == 0 {
			continue
		}

		if err := uc.embedAndUpsert(ctx, index, records); err != nil {
			return report, err
		}
		report.Indexed += len(records)
	}

	return report, nil
}

// buildRecords extracts metadata and derives ids, rejecting contract
// violations per chunk.
func (uc *IngestChunksUseCase) buildRecords(report *domain.IngestReport, chunks []domain.Chunk) []domain.DocumentRecord {
	records := make([]domain.DocumentRecord, 0, len(chunks))
	for _, chunk := range chunks {
		meta, err := uc.metadata.Extract(chunk.Source, chunk.DocType)
		if err != nil {
			report.Rejected = append(report.Rejected, domain.IngestRejection{
				Source:  chunk.Source,
				Ordinal: chunk.Ordinal,
				Reason:  err.Error(),
			})
			continue
		}
		records = append(records, domain.DocumentRecord{
			ID:       domain.MakeChunkID(chunk.Source, chunk.Content, chunk.DocType),
			Source:   chunk.Source,
			Content:  chunk.Content,
			Metadata: meta,
		})
	}
	return records
}

func (uc *IngestChunksUseCase) embedAndUpsert(ctx context.Context, index ports.SearchIndex, records []domain.DocumentRecord) error {
	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Content
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(records) {
		return domain.WrapError(
			domain.ErrExternalCall,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(records)),
		)
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}

	if err := index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	return nil
}

func groupByDocType(chunks []domain.Chunk) (map[domain.DocType][]domain.Chunk, []domain.DocType) {
	grouped := make(map[domain.DocType][]domain.Chunk, 2)
	order := make([]domain.DocType, 0, 2)
	for _, chunk := range chunks {
		if _, seen := grouped[chunk.DocType]; !seen {
			order = append(order, chunk.DocType)
		}
		grouped[chunk.DocType] = append(grouped[chunk.DocType], chunk)
	}
	return grouped, order
}

func rejectAll(report *domain.IngestReport, chunks []domain.Chunk, err error) {
	for _, chunk := range chunks {
		report.Rejected = append(report.Rejected, domain.IngestRejection{
			Source:  chunk.Source,
			Ordinal: chunk.Ordinal,
			Reason:  err.Error(),
		})
	}
}
