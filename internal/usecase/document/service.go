package document

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Service handles owner-scoped document reads and deletion.
type Service struct {
	repo   Repository
	index  VectorIndex
	logger *zap.Logger
}

// New creates a document service.
func New(repo Repository, index VectorIndex) *Service {
	return &Service{repo: repo, index: index, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	s.logger = l
	return s
}

// Get returns a document owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domdoc.Document, error) {
	docs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Chunks returns the chunks of an owned document in index order.
func (s *Service) Chunks(ctx context.Context, userID, id string) ([]chunk.Chunk, error) {
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	chunks, err := s.repo.Chunks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

// Status returns the ingest status record of an owned document.
func (s *Service) Status(ctx context.Context, userID, id string) (domdoc.IngestStatus, error) {
	st, err := s.repo.IngestStatus(ctx, userID, id)
	if err != nil {
		return domdoc.IngestStatus{}, fmt.Errorf("get ingest status: %w", err)
	}
	return st, nil
}

// Delete removes an owned document with its chunks and vectors.
// Returns the number of chunks removed.
func (s *Service) Delete(ctx context.Context, userID, id string) (int, error) {
	removed, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	if s.index != nil && len(removed) > 0 {
		if err := s.index.Forget(ctx, removed); err != nil {
			return len(removed), fmt.Errorf("forget vectors: %w", err)
		}
	}
	s.logger.Info("Document deleted",
		zap.String("document_id", id),
		zap.String("user_id", userID),
		zap.Int("chunks", len(removed)),
	)
	return len(removed), nil
}
