package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/db/sqlite"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/extract"
	docrepo "github.com/kailas-cloud/ragdex/internal/repository/document"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/ragdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	"github.com/kailas-cloud/ragdex/internal/usecase/queue"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// fakeEmbedder maps every text to the same 3-dim unit vector.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

type testEnv struct {
	handler  http.Handler
	queue    *queue.Queue
	store    *sqlite.Store
	embedder *fakeEmbedder
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "ragdex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb := &fakeEmbedder{}
	docs := docrepo.New(store)
	vectors := searchrepo.New(store, 3)

	ingester := ingest.New(extract.New(), docs, vectors, emb).
		WithChunking(chunker.Options{MaxChars: 200, MinChunkChars: 1})
	q := queue.New(ingester).WithStatusRecorder(docs)
	q.Start(ctx)
	t.Cleanup(q.Stop)

	srv := NewServer(
		documentuc.New(docs, nil),
		batchuc.New(ingester, documentuc.New(docs, nil)),
		searchuc.New(vectors, emb),
		q,
		healthuc.New(store, nil).WithQueue(q),
		nil,
	).WithAPIKeys(apiKeys)

	return &testEnv{handler: srv.Router(), queue: q, store: store, embedder: emb}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(strings.NewReader(rr.Body.String())).Decode(&v), rr.Body.String())
	return v
}
