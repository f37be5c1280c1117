package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

// Storage stages submitted chunk batches on disk until a worker picks them
// up. One JSON file per batch, named by batch id.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/batches"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create batch dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) SaveBatch(_ context.Context, batchID string, chunks []domain.Chunk) error {
	path, err := s.batchPath(batchID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	// Write-then-rename so a worker never reads a half-written batch.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write batch file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit batch file: %w", err)
	}
	return nil
}

func (s *Storage) LoadBatch(_ context.Context, batchID string) ([]domain.Chunk, error) {
	path, err := s.batchPath(batchID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}
	return chunks, nil
}

func (s *Storage) batchPath(batchID string) (string, error) {
	if batchID == "" || strings.ContainsAny(batchID, `/\`) || strings.Contains(batchID, "..") {
		return "", domain.WrapError(domain.ErrInvalidInput, "batch path", fmt.Errorf("invalid batch id %q", batchID))
	}
	return filepath.Join(s.basePath, batchID+".json"), nil
}

var _ ports.BatchStorage = (*Storage)(nil)
