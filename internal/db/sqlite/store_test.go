package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragdex/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDoc(id, userID, sha string) *db.DocumentRow {
	return &db.DocumentRow{
		ID:        id,
		UserID:    userID,
		Filename:  id + ".txt",
		MimeType:  "text/plain",
		ByteSize:  10,
		SHA256:    sha,
		Status:    "uploaded",
		CreatedAt: time.Now(),
	}
}

func testChunks(docID string, n int) ([]db.ChunkRow, []db.VectorRecord) {
	chunks := make([]db.ChunkRow, n)
	vectors := make([]db.VectorRecord, n)
	for i := range n {
		id := fmt.Sprintf("%s-c%d", docID, i)
		chunks[i] = db.ChunkRow{
			ID:         id,
			DocumentID: docID,
			Index:      i,
			Content:    fmt.Sprintf("chunk %d", i),
			CharStart:  i * 10,
			CharEnd:    i*10 + 9,
		}
		vec := make([]float32, 3)
		vec[i%3] = 1
		vectors[i] = db.VectorRecord{ChunkID: id, DocumentID: docID, Vector: vec}
	}
	return chunks, vectors
}

func TestOpen_FileMigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ragdex.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
	assert.NoError(t, s.Ping(ctx))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestUpsertDocument_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, created, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.UpsertDocument(ctx, testDoc("d2", "u1", "abc"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	docs, err := s.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestUpsertDocument_SameContentDifferentOwners(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	_, created, err := s.UpsertDocument(ctx, testDoc("d2", "u2", "abc"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestUpsertDocument_ForeignIDConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	_, _, err = s.UpsertDocument(ctx, testDoc("d1", "u2", "def"))
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestUpsertDocument_SameIDNewContentUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	row, created, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "def"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "def", row.SHA256)

	got, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "def", got.SHA256)
}

func TestGetDocument_NotFound(t *testing.T) {
	_, err := newTestStore(t).GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSetDocumentStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)

	require.NoError(t, s.SetDocumentStatus(ctx, "d1", "indexed"))
	got, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "indexed", got.Status)

	assert.ErrorIs(t, s.SetDocumentStatus(ctx, "nope", "indexed"), db.ErrNotFound)
}

func TestReplaceChunks_ReingestKeepsCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)

	chunks, vectors := testChunks("d1", 3)
	removed, err := s.ReplaceChunks(ctx, "d1", chunks, vectors)
	require.NoError(t, err)
	assert.Empty(t, removed)

	removed, err = s.ReplaceChunks(ctx, "d1", chunks, vectors)
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	nc, err := s.CountChunks(ctx, "d1")
	require.NoError(t, err)
	nv, err := s.CountVectors(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, nc)
	assert.Equal(t, 3, nv)

	listed, err := s.ListChunks(ctx, "d1")
	require.NoError(t, err)
	for i, c := range listed {
		assert.Equal(t, i, c.Index)
		assert.Nil(t, c.PageStart)
	}
}

func TestReplaceChunks_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)

	chunks, vectors := testChunks("d1", 2)
	_, err = s.ReplaceChunks(ctx, "d1", chunks, vectors)
	require.NoError(t, err)

	// Vector for a chunk that is not part of the new set violates the foreign key.
	bad := []db.VectorRecord{{ChunkID: "ghost", Vector: []float32{1, 0, 0}}}
	next, _ := testChunks("d1", 1)
	_, err = s.ReplaceChunks(ctx, "d1", next, bad)
	require.Error(t, err)

	n, err := s.CountChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSearchKNN_OrdersByDistanceAndScopesOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	_, _, err = s.UpsertDocument(ctx, testDoc("d2", "u2", "def"))
	require.NoError(t, err)

	chunks, vectors := testChunks("d1", 3)
	_, err = s.ReplaceChunks(ctx, "d1", chunks, vectors)
	require.NoError(t, err)
	other, otherVecs := testChunks("d2", 3)
	_, err = s.ReplaceChunks(ctx, "d2", other, otherVecs)
	require.NoError(t, err)

	hits, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0, 1, 0}, UserID: "u1", K: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "d1-c1", hits[0].ChunkID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1.41421356, hits[1].Distance, 1e-6)

	hits, err = s.SearchKNN(ctx, &db.KNNQuery{
		Vector: []float32{0, 1, 0}, UserID: "u2", DocumentIDs: []string{"d1"}, K: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChunkHits_SkipsUnknown(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	page := 2
	chunks, vectors := testChunks("d1", 1)
	chunks[0].PageStart, chunks[0].PageEnd = &page, &page
	_, err = s.ReplaceChunks(ctx, "d1", chunks, vectors)
	require.NoError(t, err)

	hits, err := s.ChunkHits(ctx, []string{"d1-c0", "gone"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	h := hits["d1-c0"]
	assert.Equal(t, "u1", h.UserID)
	assert.Equal(t, "d1.txt", h.Filename)
	require.NotNil(t, h.PageStart)
	assert.Equal(t, 2, *h.PageStart)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _, err := s.UpsertDocument(ctx, testDoc("d1", "u1", "abc"))
	require.NoError(t, err)
	chunks, vectors := testChunks("d1", 2)
	_, err = s.ReplaceChunks(ctx, "d1", chunks, vectors)
	require.NoError(t, err)
	require.NoError(t, s.UpsertIngestStatus(ctx, &db.IngestStatusRow{DocumentID: "d1", UserID: "u1", Status: "indexed"}))

	_, err = s.DeleteDocument(ctx, "u2", "d1")
	assert.ErrorIs(t, err, db.ErrNotFound)

	removed, err := s.DeleteDocument(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1-c0", "d1-c1"}, removed)

	_, err = s.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = s.GetIngestStatus(ctx, "d1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	n, err := s.CountVectors(ctx, "d1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestStatus_PreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertIngestStatus(ctx, &db.IngestStatusRow{
		DocumentID: "d1", UserID: "u1", Status: "queued", JobID: "j1",
		CreatedAt: created, UpdatedAt: created,
	}))
	require.NoError(t, s.UpsertIngestStatus(ctx, &db.IngestStatusRow{
		DocumentID: "d1", UserID: "u1", Status: "failed", LastError: "boom", IsLikelyScanned: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	got, err := s.GetIngestStatus(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "j1", got.JobID)
	assert.Equal(t, "boom", got.LastError)
	assert.True(t, got.IsLikelyScanned)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestFileStore_ConcurrentWritersDoNotBusy(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "ragdex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	const writers = 8
	const rounds = 10
	errs := make(chan error, writers*rounds*2)
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range rounds {
				id := fmt.Sprintf("w%d-r%d", w, r)
				now := time.Now()
				errs <- s.UpsertIngestStatus(ctx, &db.IngestStatusRow{
					DocumentID: id, UserID: "u1", Status: "queued", JobID: "j-" + id,
					CreatedAt: now, UpdatedAt: now,
				})
				_, _, err := s.UpsertDocument(ctx, testDoc(id, "u1", "sha-"+id))
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	docs, err := s.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, writers*rounds)
}

func TestReleaseIngestStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	queued := func(docID, jobID string) *db.IngestStatusRow {
		return &db.IngestStatusRow{
			DocumentID: docID, UserID: "u1", Status: "queued", JobID: jobID,
			CreatedAt: now, UpdatedAt: now,
		}
	}

	t.Run("no document deletes the row", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.UpsertIngestStatus(ctx, queued("minted", "j1")))

		require.NoError(t, s.ReleaseIngestStatus(ctx, "minted", "j1", now))
		_, err := s.GetIngestStatus(ctx, "minted")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("stored document restores its status", func(t *testing.T) {
		s := newTestStore(t)
		doc := testDoc("d1", "u1", "sha1")
		doc.Status = "indexed"
		_, _, err := s.UpsertDocument(ctx, doc)
		require.NoError(t, err)
		require.NoError(t, s.UpsertIngestStatus(ctx, queued("d1", "j1")))

		require.NoError(t, s.ReleaseIngestStatus(ctx, "d1", "j1", now))
		got, err := s.GetIngestStatus(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, "indexed", got.Status)
	})

	t.Run("row of a later job is kept", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.UpsertIngestStatus(ctx, queued("minted", "j2")))

		require.NoError(t, s.ReleaseIngestStatus(ctx, "minted", "j1", now))
		got, err := s.GetIngestStatus(ctx, "minted")
		require.NoError(t, err)
		assert.Equal(t, "j2", got.JobID)
	})
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.SetWithTTL(ctx, "t", []byte("x"), -time.Second))
	got, err = s.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	require.NoError(t, s.SetWithTTL(ctx, "e", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err = s.Get(ctx, "e")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestVectorBlobRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 3.5}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
