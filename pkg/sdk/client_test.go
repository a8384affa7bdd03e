package ragdex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func newTestClient(t *testing.T, emb Embedder, extra ...Option) *Client {
	t.Helper()
	opts := []Option{
		WithDatabase(filepath.Join(t.TempDir(), "ragdex.db")),
		WithVectorDimensions(3),
		WithChunking(5, 0, 0),
	}
	if emb != nil {
		opts = append(opts, WithEmbedder(emb))
	}
	c, err := New(context.Background(), append(opts, extra...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_RequiresDatabase(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error without a database path")
	}
}

func TestNew_RejectsBadDimensions(t *testing.T) {
	_, err := New(context.Background(),
		WithDatabase(filepath.Join(t.TempDir(), "x.db")),
		WithVectorDimensions(0),
	)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestClient_UpsertQueryDelete(t *testing.T) {
	emb := &unitEmbedder{}
	c := newTestClient(t, emb)
	ctx := context.Background()

	up := c.UpsertDocuments(ctx, "u1", []Document{
		{ID: "doc-1", Filename: "a.txt", Content: []byte("AaaaaBbbbb")},
	})
	if !up.OK {
		t.Fatalf("upsert failed: %+v", up.Error)
	}
	if up.Items[0].Chunks != 2 {
		t.Errorf("chunks = %d, want 2", up.Items[0].Chunks)
	}
	if emb.batches.Load() == 0 {
		t.Error("expected batch embedding to be used")
	}

	res := c.Query(ctx, "u1", "aaaaa")
	if !res.OK {
		t.Fatalf("query failed: %+v", res.Error)
	}
	if len(res.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(res.Results))
	}
	for _, h := range res.Results {
		if h.DocumentID != "doc-1" || h.Filename != "a.txt" {
			t.Errorf("unexpected hit: %+v", h)
		}
	}

	other := c.Query(ctx, "u2", "aaaaa")
	if !other.OK || len(other.Results) != 0 {
		t.Errorf("other owner should see nothing, got %+v", other)
	}

	docs, err := c.Documents(ctx, "u1")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Status != "indexed" {
		t.Errorf("unexpected documents: %+v", docs)
	}

	del := c.DeleteDocuments(ctx, "u1", []string{"doc-1"})
	if !del.OK || del.Deleted != 1 {
		t.Fatalf("delete failed: %+v", del)
	}
	if _, err := c.Document(ctx, "u1", "doc-1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestClient_EnqueueAndWait(t *testing.T) {
	c := newTestClient(t, &unitEmbedder{})
	ctx := context.Background()

	id, err := c.Enqueue(ctx, "u1", Document{ID: "doc-q", Filename: "q.md", Content: []byte("# Title")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	j, err := c.Job(id)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if j.State != JobDone {
		t.Errorf("state = %q (error %q), want done", j.State, j.Error)
	}
	if j.DocumentID != "doc-q" || j.ChunksInserted == 0 {
		t.Errorf("unexpected job: %+v", j)
	}

	st, err := c.Status(ctx, "u1", "doc-q")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != "indexed" || st.JobID != id {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestClient_EnqueueWhileUpserting(t *testing.T) {
	c := newTestClient(t, &unitEmbedder{})
	ctx := context.Background()

	for i := range 10 {
		queuedID := fmt.Sprintf("doc-q%d", i)
		syncID := fmt.Sprintf("doc-s%d", i)

		var (
			wg     sync.WaitGroup
			jobID  string
			enqErr error
			up     UpsertResult
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			jobID, enqErr = c.Enqueue(ctx, "u1", Document{
				ID: queuedID, Filename: "q.txt", Content: []byte(fmt.Sprintf("queued %d", i)),
			})
		}()
		go func() {
			defer wg.Done()
			up = c.UpsertDocuments(ctx, "u1", []Document{
				{ID: syncID, Filename: "s.txt", Content: []byte(fmt.Sprintf("synced %d", i))},
			})
		}()
		wg.Wait()
		if enqErr != nil {
			t.Fatalf("round %d: Enqueue: %v", i, enqErr)
		}
		if !up.OK {
			t.Fatalf("round %d: upsert failed: %+v", i, up.Error)
		}

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Wait(waitCtx)
		cancel()
		if err != nil {
			t.Fatalf("round %d: Wait: %v", i, err)
		}
		j, err := c.Job(jobID)
		if err != nil {
			t.Fatalf("round %d: Job: %v", i, err)
		}
		if j.State != JobDone {
			t.Fatalf("round %d: state = %q (%s: %q), want done", i, j.State, j.ErrorCode, j.Error)
		}
		st, err := c.Status(ctx, "u1", queuedID)
		if err != nil {
			t.Fatalf("round %d: Status: %v", i, err)
		}
		if st.State != "indexed" {
			t.Errorf("round %d: status = %+v", i, st)
		}
	}
}

func TestClient_EnqueueDuplicateContentResolvesToStoredDocument(t *testing.T) {
	c := newTestClient(t, &unitEmbedder{})
	ctx := context.Background()
	content := []byte("AaaaaBbbbb")

	up := c.UpsertDocuments(ctx, "u1", []Document{{ID: "doc-1", Filename: "a.txt", Content: content}})
	if !up.OK {
		t.Fatalf("upsert failed: %+v", up.Error)
	}

	id, err := c.Enqueue(ctx, "u1", Document{Filename: "copy.txt", Content: content})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	j, err := c.Job(id)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if j.State != JobDone || j.DocumentID != "doc-1" {
		t.Fatalf("job = %+v, want done on doc-1", j)
	}
	if _, err := c.Document(ctx, "u1", j.DocumentID); err != nil {
		t.Errorf("job document is not stored: %v", err)
	}
	st, err := c.Status(ctx, "u1", j.DocumentID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != "indexed" || st.JobID != id {
		t.Errorf("unexpected status: %+v", st)
	}
	docs, err := c.Documents(ctx, "u1")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected one stored document, got %d", len(docs))
	}
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	c := newTestClient(t, &unitEmbedder{})
	c.Close()

	_, err := c.Enqueue(context.Background(), "u1", Document{Content: []byte("x")})
	if !errors.Is(err, ErrQueueStopped) {
		t.Errorf("err = %v, want ErrQueueStopped", err)
	}
}

func TestClient_NoEmbedderIsNotImplemented(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	up := c.UpsertDocuments(ctx, "u1", []Document{{ID: "d", Filename: "a.txt", Content: []byte("hello")}})
	if up.OK || up.Error == nil || up.Error.Code != CodeNotImplemented {
		t.Errorf("upsert = %+v, want not_implemented", up.Error)
	}

	res := c.Query(ctx, "u1", "hello")
	if res.OK || res.Error == nil || res.Error.Code != CodeNotImplemented {
		t.Errorf("query = %+v, want not_implemented", res.Error)
	}
}

func TestClient_HealthAndPing(t *testing.T) {
	c := newTestClient(t, &unitEmbedder{})
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	h := c.Health(ctx)
	if h.Status != "ok" {
		t.Errorf("status = %q, checks %v", h.Status, h.Checks)
	}
	if h.Checks["database"] != "ok" || h.Checks["ingest_queue"] != "ok" {
		t.Errorf("unexpected checks: %v", h.Checks)
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, &unitEmbedder{}, WithPrometheus(reg))

	c.Query(context.Background(), "u1", "  ")

	got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("query", string(CodeInvalidInput)))
	if got != 1 {
		t.Errorf("query invalid_input count = %v, want 1", got)
	}
}

func TestEmbedderAdapter_FallsBackWithoutBatch(t *testing.T) {
	calls := 0
	a := &embedderAdapter{inner: &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		calls++
		return EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
	}}}

	r, err := a.BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 || len(r.Embeddings) != 2 || r.Embeddings[1][0] != 2 {
		t.Errorf("unexpected result: calls=%d %+v", calls, r)
	}
}

func TestEmbedderAdapter_WrapsErrors(t *testing.T) {
	a := &embedderAdapter{inner: &unitEmbedder{err: domain.ErrRateLimited}}

	_, err := a.Embed(context.Background(), "x")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	_, err = a.BatchEmbed(context.Background(), []string{"x"})
	if CodeOf(err) != CodeNetwork {
		t.Errorf("code = %q, want network", CodeOf(err))
	}
	if !strings.Contains(err.Error(), "batch embed") {
		t.Errorf("err = %v, want batch embed prefix", err)
	}
}
