package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	insertChunksFn  func(ctx context.Context, chunks []db.ChunkRow) error
	replaceChunksFn func(
		ctx context.Context, documentID string, chunks []db.ChunkRow, vectors []db.VectorRecord,
	) ([]string, error)
	chunkHitsFn func(ctx context.Context, ids []string) (map[string]db.ChunkHit, error)
	upsertFn    func(ctx context.Context, records []db.VectorRecord) error
	deleteFn    func(ctx context.Context, ids []string) error
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) ([]db.Neighbor, error)
}

func (m *mockStore) InsertChunks(ctx context.Context, chunks []db.ChunkRow) error {
	if m.insertChunksFn != nil {
		return m.insertChunksFn(ctx, chunks)
	}
	return nil
}

func (m *mockStore) ReplaceChunks(
	ctx context.Context, documentID string, chunks []db.ChunkRow, vectors []db.VectorRecord,
) ([]string, error) {
	if m.replaceChunksFn != nil {
		return m.replaceChunksFn(ctx, documentID, chunks, vectors)
	}
	return nil, nil
}

func (m *mockStore) ChunkHits(ctx context.Context, ids []string) (map[string]db.ChunkHit, error) {
	if m.chunkHitsFn != nil {
		return m.chunkHitsFn(ctx, ids)
	}
	return map[string]db.ChunkHit{}, nil
}

func (m *mockStore) Upsert(ctx context.Context, records []db.VectorRecord) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, records)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, ids []string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ids)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.Neighbor, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return nil, nil
}

// mockIndex records calls made to an external vector index.
type mockIndex struct {
	upserted []db.VectorRecord
	deleted  []string
	searchFn func(ctx context.Context, q *db.KNNQuery) ([]db.Neighbor, error)
	err      error
}

func (m *mockIndex) Upsert(_ context.Context, records []db.VectorRecord) error {
	m.upserted = append(m.upserted, records...)
	return m.err
}

func (m *mockIndex) Delete(_ context.Context, ids []string) error {
	m.deleted = append(m.deleted, ids...)
	return m.err
}

func (m *mockIndex) SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.Neighbor, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, m.err
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, 3), ms
}

func intPtr(v int) *int { return &v }
