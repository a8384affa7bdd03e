// Package batch implements bulk document upsert and delete with per-item outcomes.
package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// Item is one document of a bulk upsert.
type Item struct {
	ID       string
	Filename string
	MimeType string
	Content  []byte
}

// Service handles batch document operations with per-item error reporting.
type Service struct {
	ingester     Ingester
	del          DocumentDeleter
	maxBatchSize int
	logger       *zap.Logger
}

// New creates a batch service.
func New(ingester Ingester, del DocumentDeleter) *Service {
	return &Service{
		ingester:     ingester,
		del:          del,
		maxBatchSize: MaxBatchSize,
		logger:       zap.NewNop(),
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	s.logger = l
	return s
}

// Upsert ingests documents one by one for userID. A provider-wide failure
// (rate limit, unsupported model, stub provider, storage down) fails the
// remaining items without calling the provider again.
func (s *Service) Upsert(ctx context.Context, userID string, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if err := s.checkSize(len(items)); err != nil {
		for i, item := range items {
			results[i] = dombatch.NewError(item.ID, err)
		}
		return results
	}

	for i, item := range items {
		res, err := s.ingester.Ingest(ctx, &ingest.Request{
			UserID:     userID,
			DocumentID: item.ID,
			Filename:   item.Filename,
			MimeType:   item.MimeType,
			Data:       item.Content,
		})
		if err != nil {
			results[i] = dombatch.NewError(item.ID, err)
			if cascades(err) {
				s.logger.Warn("Batch upsert aborted",
					zap.String("user_id", userID),
					zap.Int("remaining", len(items)-i-1),
					zap.Error(err),
				)
				for j := i + 1; j < len(items); j++ {
					results[j] = dombatch.NewError(items[j].ID, err)
				}
				return results
			}
			continue
		}
		results[i] = dombatch.NewOK(res.DocumentID, res.ChunksInserted)
	}

	return results
}

// Delete removes documents by ID in batch.
func (s *Service) Delete(ctx context.Context, userID string, ids []string) []dombatch.Result {
	results := make([]dombatch.Result, len(ids))

	if err := s.checkSize(len(ids)); err != nil {
		for i, id := range ids {
			results[i] = dombatch.NewError(id, err)
		}
		return results
	}

	for i, id := range ids {
		n, err := s.del.Delete(ctx, userID, id)
		if err != nil {
			results[i] = dombatch.NewError(id, fmt.Errorf("delete: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(id, n)
	}

	return results
}

func (s *Service) checkSize(n int) error {
	if n == 0 {
		return nil
	}
	if n > s.maxBatchSize {
		return fmt.Errorf("%w: batch size %d exceeds %d", domain.ErrInvalidInput, n, s.maxBatchSize)
	}
	return nil
}

// cascades reports whether err will fail every following item too.
func cascades(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrUnsupportedModel) ||
		errors.Is(err, domain.ErrNotImplemented) ||
		errors.Is(err, domain.ErrDBUnavailable)
}
