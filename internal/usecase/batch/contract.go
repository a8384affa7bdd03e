package batch

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// Ingester indexes one document synchronously.
type Ingester interface {
	Ingest(ctx context.Context, req *ingest.Request) (ingest.Result, error)
}

// DocumentDeleter removes one owned document and returns the number of chunks removed.
type DocumentDeleter interface {
	Delete(ctx context.Context, userID, id string) (int, error)
}
