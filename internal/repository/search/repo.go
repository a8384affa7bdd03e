package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// store is the consumer interface for chunk and vector persistence (ISP).
// The store doubles as the embedded vector index.
type store interface {
	db.VectorIndex
	InsertChunks(ctx context.Context, chunks []db.ChunkRow) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []db.ChunkRow, vectors []db.VectorRecord) ([]string, error)
	ChunkHits(ctx context.Context, ids []string) (map[string]db.ChunkHit, error)
}

// Query is an owner-scoped nearest-neighbor request.
type Query struct {
	Vector      []float32
	UserID      string
	DocumentIDs []string
	TopK        int
}

// Repo is the vector store: chunk vectors written unit-length, searched by L2
// distance and scored as cosine similarity.
type Repo struct {
	store    store
	external db.VectorIndex
	dim      int
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a vector store repository for vectors of length dim.
func New(s store, dim int) *Repo {
	return &Repo{store: s, dim: dim, logger: zap.NewNop(), now: time.Now}
}

// WithIndex routes KNN queries to an external index. Writes are mirrored to it
// after they commit to the store.
func (r *Repo) WithIndex(idx db.VectorIndex) *Repo {
	r.external = idx
	return r
}

// WithLogger sets the logger.
func (r *Repo) WithLogger(l *zap.Logger) *Repo {
	r.logger = l
	return r
}

// Dimensions returns the configured embedding dimension.
func (r *Repo) Dimensions() int {
	return r.dim
}

// InsertChunks stores chunks without vectors.
func (r *Repo) InsertChunks(ctx context.Context, chunks []chunk.Chunk) error {
	if err := r.store.InsertChunks(ctx, r.toChunkRows(chunks)); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

// UpsertChunkVectors normalizes and stores vectors for existing chunks of one document.
// Any vector of the wrong length or with non-finite components fails the whole call.
func (r *Repo) UpsertChunkVectors(ctx context.Context, userID, documentID string, vectors []chunk.Vector) error {
	records, err := r.toRecords(userID, documentID, vectors)
	if err != nil {
		return err
	}
	if err := r.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	if r.external != nil {
		if err := r.external.Upsert(ctx, records); err != nil {
			return fmt.Errorf("mirror vectors: %w", err)
		}
	}
	return nil
}

// ReplaceChunks swaps all chunks and vectors of a document in one transaction.
// Vectors are validated and normalized before anything is written.
func (r *Repo) ReplaceChunks(
	ctx context.Context, userID, documentID string, chunks []chunk.Chunk, vectors []chunk.Vector,
) error {
	records, err := r.toRecords(userID, documentID, vectors)
	if err != nil {
		return err
	}
	removed, err := r.store.ReplaceChunks(ctx, documentID, r.toChunkRows(chunks), records)
	if err != nil {
		return fmt.Errorf("replace chunks %s: %w", documentID, err)
	}
	if r.external == nil {
		return nil
	}

	if err := r.external.Upsert(ctx, records); err != nil {
		return fmt.Errorf("mirror vectors %s: %w", documentID, err)
	}
	if stale := staleIDs(removed, records); len(stale) > 0 {
		if err := r.external.Delete(ctx, stale); err != nil {
			return fmt.Errorf("drop stale vectors %s: %w", documentID, err)
		}
	}
	return nil
}

// Forget drops chunk vectors from the external index after their chunks were
// deleted from the store.
func (r *Repo) Forget(ctx context.Context, chunkIDs []string) error {
	if r.external == nil || len(chunkIDs) == 0 {
		return nil
	}
	if err := r.external.Delete(ctx, chunkIDs); err != nil {
		return fmt.Errorf("forget vectors: %w", err)
	}
	return nil
}

// Search returns up to TopK owner-scoped hits ordered by ascending distance.
// Hits whose chunk no longer exists or belongs to another owner are dropped.
func (r *Repo) Search(ctx context.Context, q *Query) ([]result.Result, error) {
	vec, err := domain.NormalizeVector(q.Vector, r.dim)
	if err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}
	if q.TopK <= 0 {
		return nil, nil
	}

	knn := &db.KNNQuery{Vector: vec, UserID: q.UserID, DocumentIDs: q.DocumentIDs, K: q.TopK}
	var idx db.VectorIndex = r.store
	if r.external != nil {
		idx = r.external
	}
	neighbors, err := idx.SearchKNN(ctx, knn)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ChunkID
	}
	hits, err := r.store.ChunkHits(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	results := make([]result.Result, 0, len(neighbors))
	for _, n := range neighbors {
		h, ok := hits[n.ChunkID]
		if !ok || h.UserID != q.UserID {
			r.logger.Debug("dropping stale neighbor", zap.String("chunk_id", n.ChunkID))
			continue
		}
		results = append(results, toResult(&h, domain.ScoreFromL2(n.Distance)))
	}
	return results, nil
}

func (r *Repo) toRecords(userID, documentID string, vectors []chunk.Vector) ([]db.VectorRecord, error) {
	records := make([]db.VectorRecord, len(vectors))
	for i, v := range vectors {
		norm, err := domain.NormalizeVector(v.Embedding, r.dim)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", v.ChunkID, err)
		}
		records[i] = db.VectorRecord{
			ChunkID:    v.ChunkID,
			DocumentID: documentID,
			UserID:     userID,
			Vector:     norm,
		}
	}
	return records, nil
}

func (r *Repo) toChunkRows(chunks []chunk.Chunk) []db.ChunkRow {
	rows := make([]db.ChunkRow, len(chunks))
	now := r.now().UTC()
	for i := range chunks {
		c := &chunks[i]
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows[i] = db.ChunkRow{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Index:      c.Index,
			Content:    c.Content,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
			CharStart:  c.CharStart,
			CharEnd:    c.CharEnd,
			CreatedAt:  created,
		}
	}
	return rows
}

func toResult(h *db.ChunkHit, score float64) result.Result {
	var pageStart, pageEnd int
	if h.PageStart != nil {
		pageStart = *h.PageStart
	}
	if h.PageEnd != nil {
		pageEnd = *h.PageEnd
	}
	return result.New(h.ID, h.DocumentID, h.Filename, h.Index, pageStart, pageEnd, score, h.Content)
}

// staleIDs returns removed ids that are not part of the new record set.
func staleIDs(removed []string, records []db.VectorRecord) []string {
	if len(removed) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(records))
	for _, r := range records {
		keep[r.ChunkID] = struct{}{}
	}
	var out []string
	for _, id := range removed {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
