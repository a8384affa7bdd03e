package search

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
)

type mockStore struct {
	results []result.Result
	err     error
	lastQ   *searchrepo.Query
}

func (m *mockStore) Search(_ context.Context, q *searchrepo.Query) ([]result.Result, error) {
	m.lastQ = q
	if m.err != nil {
		return nil, m.err
	}
	return append([]result.Result(nil), m.results...), nil
}

// mockEmbedder maps known texts to vectors; unknown texts get fallback.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	called   bool
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: m.fallback}, nil
}

func hit(id, docID string, score float64, content string) result.Result {
	return result.New(id, docID, docID+".txt", 0, 0, 0, score, content)
}

func mustRequest(text string, topK int) *request.Request {
	req, err := request.New("u1", text, topK, nil)
	if err != nil {
		panic(err)
	}
	return &req
}
