package ingest

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/extract"
)

// Extractor turns raw bytes into text, per page when the format has pages.
type Extractor interface {
	Extract(ctx context.Context, mimeType, filename string, data []byte) (extract.Result, error)
}

// Documents persists documents and their ingest status.
type Documents interface {
	Upsert(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error)
	SetStatus(ctx context.Context, id string, status domdoc.Status) error
	SaveIngestStatus(ctx context.Context, st *domdoc.IngestStatus) error
}

// VectorStore replaces a document's chunks and vectors atomically.
type VectorStore interface {
	ReplaceChunks(ctx context.Context, userID, documentID string, chunks []chunk.Chunk, vectors []chunk.Vector) error
}
