package queue

import (
	"context"

	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// Ingester runs one ingestion to completion.
type Ingester interface {
	Ingest(ctx context.Context, req *ingest.Request) (ingest.Result, error)
}

// StatusRecorder persists the per-document ingest status.
type StatusRecorder interface {
	SaveIngestStatus(ctx context.Context, st *domdoc.IngestStatus) error
	// ReleaseIngestStatus withdraws the row jobID recorded for documentID.
	ReleaseIngestStatus(ctx context.Context, documentID, jobID string) error
}
