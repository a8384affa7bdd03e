package ragdex

import (
	"context"
	"sync/atomic"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/job"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
)

// --- batchUseCase mock ---

type mockBatchUC struct {
	upsertFn func(ctx context.Context, userID string, items []batchuc.Item) []dombatch.Result
	deleteFn func(ctx context.Context, userID string, ids []string) []dombatch.Result
}

func (m *mockBatchUC) Upsert(ctx context.Context, userID string, items []batchuc.Item) []dombatch.Result {
	return m.upsertFn(ctx, userID, items)
}

func (m *mockBatchUC) Delete(ctx context.Context, userID string, ids []string) []dombatch.Result {
	return m.deleteFn(ctx, userID, ids)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	getFn    func(ctx context.Context, userID, id string) (domdoc.Document, error)
	listFn   func(ctx context.Context, userID string) ([]domdoc.Document, error)
	statusFn func(ctx context.Context, userID, id string) (domdoc.IngestStatus, error)
}

func (m *mockDocumentUC) Get(ctx context.Context, userID, id string) (domdoc.Document, error) {
	return m.getFn(ctx, userID, id)
}

func (m *mockDocumentUC) List(ctx context.Context, userID string) ([]domdoc.Document, error) {
	return m.listFn(ctx, userID)
}

func (m *mockDocumentUC) Status(ctx context.Context, userID, id string) (domdoc.IngestStatus, error) {
	return m.statusFn(ctx, userID, id)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	queryFn func(ctx context.Context, req *request.Request) (result.Response, error)
}

func (m *mockSearchUC) Query(ctx context.Context, req *request.Request) (result.Response, error) {
	return m.queryFn(ctx, req)
}

// --- queueUseCase mock ---

type mockQueue struct {
	enqueueFn func(ctx context.Context, req job.Request) (string, error)
	statusFn  func(id string) (job.Status, error)
	drainErr  error
	stopped   bool
}

func (m *mockQueue) Enqueue(ctx context.Context, req job.Request) (string, error) {
	return m.enqueueFn(ctx, req)
}

func (m *mockQueue) Status(id string) (job.Status, error) {
	return m.statusFn(id)
}

func (m *mockQueue) Drain(context.Context) error { return m.drainErr }

func (m *mockQueue) Stop() { m.stopped = true }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// unitEmbedder maps each text to a fixed 3-dim vector and supports batching.
type unitEmbedder struct {
	batches atomic.Int32
	err     error
}

func (u *unitEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	if u.err != nil {
		return EmbeddingResult{}, u.err
	}
	return EmbeddingResult{Embedding: []float32{0, 1, 0}, TotalTokens: 1}, nil
}

func (u *unitEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	u.batches.Add(1)
	if u.err != nil {
		return BatchEmbeddingResult{}, u.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0, 1, 0}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}
