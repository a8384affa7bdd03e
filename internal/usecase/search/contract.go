package search

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
)

// VectorStore runs owner-scoped nearest-neighbor queries.
type VectorStore interface {
	Search(ctx context.Context, q *searchrepo.Query) ([]result.Result, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
