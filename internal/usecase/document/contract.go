package document

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Get(ctx context.Context, userID, id string) (domdoc.Document, error)
	List(ctx context.Context, userID string) ([]domdoc.Document, error)
	Delete(ctx context.Context, userID, id string) ([]string, error)
	Chunks(ctx context.Context, documentID string) ([]chunk.Chunk, error)
	IngestStatus(ctx context.Context, userID, documentID string) (domdoc.IngestStatus, error)
}

// VectorIndex drops vectors of deleted chunks from an external index.
type VectorIndex interface {
	Forget(ctx context.Context, chunkIDs []string) error
}
