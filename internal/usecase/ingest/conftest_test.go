package ingest

import (
	"context"
	"sync"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/extract"
)

type mockExtractor struct {
	extractFn func(ctx context.Context, mimeType, filename string, data []byte) (extract.Result, error)
}

func (m *mockExtractor) Extract(ctx context.Context, mimeType, filename string, data []byte) (extract.Result, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, mimeType, filename, data)
	}
	return extract.Result{Kind: extract.KindText, Text: string(data)}, nil
}

// mockDocs records statuses in memory.
type mockDocs struct {
	mu        sync.Mutex
	upsertFn  func(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error)
	statuses  []domdoc.Status
	ingest    []domdoc.IngestStatus
	setErr    error
	saveCalls int
}

func (m *mockDocs) Upsert(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, doc)
	}
	return *doc, true, nil
}

func (m *mockDocs) SetStatus(_ context.Context, _ string, status domdoc.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return m.setErr
}

func (m *mockDocs) SaveIngestStatus(_ context.Context, st *domdoc.IngestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	m.ingest = append(m.ingest, *st)
	return nil
}

func (m *mockDocs) lastStatus() domdoc.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

func (m *mockDocs) lastIngest() domdoc.IngestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ingest) == 0 {
		return domdoc.IngestStatus{}
	}
	return m.ingest[len(m.ingest)-1]
}

type mockVectors struct {
	replaceFn func(ctx context.Context, userID, documentID string, chunks []chunk.Chunk, vectors []chunk.Vector) error
	chunks    []chunk.Chunk
	vectors   []chunk.Vector
	calls     int
}

func (m *mockVectors) ReplaceChunks(
	ctx context.Context, userID, documentID string, chunks []chunk.Chunk, vectors []chunk.Vector,
) error {
	m.calls++
	if m.replaceFn != nil {
		return m.replaceFn(ctx, userID, documentID, chunks, vectors)
	}
	m.chunks, m.vectors = chunks, vectors
	return nil
}

// fakeEmbedder returns a fixed 3-dim vector per text and counts batches.
type fakeEmbedder struct {
	batches [][]string
	err     error
	short   bool
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}
