package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/db/sqlite"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
)

func TestQuery_LexicalMatchOutranksCloserVector(t *testing.T) {
	store := &mockStore{results: []result.Result{
		hit("c-near", "windmills", 0.95, "Knights errant rode across La Mancha at dawn."),
		hit("c-dq", "novel", 0.60, "The adventures of Don Quixote begin in a village."),
	}}
	svc := New(store, &mockEmbedder{fallback: []float32{1, 0, 0}})

	resp, err := svc.Query(context.Background(), mustRequest("Don Quixote", 2))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Weak {
		t.Error("expected weak=false")
	}
	top := resp.Results[0]
	if top.ChunkID() != "c-dq" {
		t.Fatalf("expected lexical match first, got %s", top.ChunkID())
	}
	sig := top.Signals()
	if sig == nil || sig.MatchCount != 2 || !sig.HasAllTerms || sig.PhraseBoost != 1 {
		t.Errorf("unexpected signals: %+v", sig)
	}
	if resp.Results[1].MatchCount() != 0 {
		t.Errorf("second result should not match, got %d", resp.Results[1].MatchCount())
	}
}

func TestQuery_NoOverlapIsWeakAndKeepsVectorOrder(t *testing.T) {
	store := &mockStore{results: []result.Result{
		hit("a", "d1", 0.9, "alpha beta gamma"),
		hit("b", "d2", 0.8, "delta epsilon"),
	}}
	svc := New(store, &mockEmbedder{fallback: []float32{1, 0}})

	resp, err := svc.Query(context.Background(), mustRequest("unrelated words", 5))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !resp.Weak {
		t.Error("expected weak=true")
	}
	if resp.Results[0].ChunkID() != "a" || resp.Results[0].MatchCount() != 0 {
		t.Errorf("vector order should be kept, got %s", resp.Results[0].ChunkID())
	}
}

func TestQuery_ShortTokensOnlySkipsSignals(t *testing.T) {
	store := &mockStore{results: []result.Result{hit("a", "d1", 0.9, "it is so")}}
	svc := New(store, &mockEmbedder{fallback: []float32{1}})

	resp, err := svc.Query(context.Background(), mustRequest("is it", 5))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Weak {
		t.Error("a query without tokens is never weak")
	}
	if resp.Results[0].Signals() != nil {
		t.Error("signals should be absent without tokens")
	}
}

func TestQuery_CandidateOverfetch(t *testing.T) {
	tests := []struct {
		name string
		topK int
		want int
	}{
		{"default", 0, 25},
		{"small", 3, 15},
		{"capped", 50, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			svc := New(store, &mockEmbedder{fallback: []float32{1}})
			if _, err := svc.Query(context.Background(), mustRequest("anything", tt.topK)); err != nil {
				t.Fatalf("Query: %v", err)
			}
			if store.lastQ.TopK != tt.want {
				t.Errorf("candidateK = %d, want %d", store.lastQ.TopK, tt.want)
			}
		})
	}
}

func TestQuery_TruncatesToTopK(t *testing.T) {
	var rs []result.Result
	for _, id := range []string{"a", "b", "c", "d"} {
		rs = append(rs, hit(id, "d", 0.5, "text "+id))
	}
	svc := New(&mockStore{results: rs}, &mockEmbedder{fallback: []float32{1}})

	resp, err := svc.Query(context.Background(), mustRequest("text", 2))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestQuery_PassesOwnerAndFilter(t *testing.T) {
	store := &mockStore{}
	svc := New(store, &mockEmbedder{fallback: []float32{1}})
	req, err := request.New("owner-7", "question", 1, []string{"d1", "d2"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Query(context.Background(), &req); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.lastQ.UserID != "owner-7" || len(store.lastQ.DocumentIDs) != 2 {
		t.Errorf("unexpected query: %+v", store.lastQ)
	}
}

func TestQuery_EmbedderErrorCounted(t *testing.T) {
	before := testutil.ToFloat64(metrics.QueryTotal.WithLabelValues("error"))
	store := &mockStore{}
	svc := New(store, &mockEmbedder{err: domain.ErrEmbeddingProviderError})

	_, err := svc.Query(context.Background(), mustRequest("anything", 1))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if store.lastQ != nil {
		t.Error("store must not be queried without a query vector")
	}
	if got := testutil.ToFloat64(metrics.QueryTotal.WithLabelValues("error")); got != before+1 {
		t.Errorf("error counter = %v, want %v", got, before+1)
	}
}

func TestQuery_StoreError(t *testing.T) {
	svc := New(&mockStore{err: domain.NewDimensionError(3, 2)}, &mockEmbedder{fallback: []float32{1, 2}})
	_, err := svc.Query(context.Background(), mustRequest("anything", 1))
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestQuery_ExcerptBounded(t *testing.T) {
	long := strings.Repeat("filler text ", 100) + "needle here " + strings.Repeat("more words ", 100)
	store := &mockStore{results: []result.Result{hit("a", "d1", 0.9, long)}}
	svc := New(store, &mockEmbedder{fallback: []float32{1}}).WithOptions(Options{ExcerptChars: 80})

	resp, err := svc.Query(context.Background(), mustRequest("needle", 1))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	ex := resp.Results[0].Excerpt()
	if !strings.Contains(ex, "needle") {
		t.Errorf("excerpt should surround the match: %q", ex)
	}
	if n := len([]rune(ex)); n > 82 {
		t.Errorf("excerpt has %d runes", n)
	}
	if resp.Results[0].Content() != long {
		t.Error("content must stay intact")
	}
}

func TestQuery_SQLiteHybridRerank(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "ragdex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, id := range []string{"cervantes", "windmills"} {
		_, _, err = s.UpsertDocument(ctx, &db.DocumentRow{
			ID: id, UserID: "u1", Filename: id + ".txt", SHA256: id, Status: "indexed",
		})
		require.NoError(t, err)
	}

	repo := searchrepo.New(s, 3)
	index := func(docID, chunkID, content string, vec []float32) {
		err := repo.ReplaceChunks(ctx, "u1", docID,
			[]chunk.Chunk{{ID: chunkID, DocumentID: docID, Content: content, CharEnd: len(content)}},
			[]chunk.Vector{{ChunkID: chunkID, Embedding: vec}},
		)
		require.NoError(t, err)
	}
	index("cervantes", "c1", "In a village of La Mancha lived Don Quixote.", []float32{0.2, 1, 0})
	index("windmills", "c2", "Giant windmills turned slowly on the plain.", []float32{1, 0.1, 0})

	emb := &mockEmbedder{
		vectors:  map[string][]float32{"Don Quixote": {1, 0, 0}},
		fallback: []float32{0, 0, 1},
	}
	svc := New(repo, emb)

	resp, err := svc.Query(ctx, mustRequest("Don Quixote", 1))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].ChunkID())
	assert.Equal(t, "cervantes", resp.Results[0].DocumentID())
	assert.Equal(t, 1, resp.Results[0].PageStart())
	assert.Positive(t, resp.Results[0].MatchCount())
	assert.False(t, resp.Weak)

	resp, err = svc.Query(ctx, mustRequest("zeppelin", 1))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Weak)
	assert.Equal(t, 0, resp.Results[0].MatchCount())
}
