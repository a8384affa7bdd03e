package document

import (
	"context"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	upsertFn       func(ctx context.Context, row *db.DocumentRow) (db.DocumentRow, bool, error)
	getFn          func(ctx context.Context, id string) (db.DocumentRow, error)
	listFn         func(ctx context.Context, userID string) ([]db.DocumentRow, error)
	setStatusFn    func(ctx context.Context, id, status string) error
	deleteFn       func(ctx context.Context, userID, id string) ([]string, error)
	listChunksFn   func(ctx context.Context, documentID string) ([]db.ChunkRow, error)
	upsertStatusFn func(ctx context.Context, row *db.IngestStatusRow) error
	getStatusFn    func(ctx context.Context, documentID string) (db.IngestStatusRow, error)
	releaseFn      func(ctx context.Context, documentID, jobID string, at time.Time) error
}

func (m *mockStore) UpsertDocument(ctx context.Context, row *db.DocumentRow) (db.DocumentRow, bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, row)
	}
	return *row, true, nil
}

func (m *mockStore) GetDocument(ctx context.Context, id string) (db.DocumentRow, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return db.DocumentRow{}, &db.Error{Op: db.OpSelect, Err: db.ErrNotFound}
}

func (m *mockStore) ListDocuments(ctx context.Context, userID string) ([]db.DocumentRow, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) SetDocumentStatus(ctx context.Context, id, status string) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, userID, id string) ([]string, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockStore) ListChunks(ctx context.Context, documentID string) ([]db.ChunkRow, error) {
	if m.listChunksFn != nil {
		return m.listChunksFn(ctx, documentID)
	}
	return nil, nil
}

func (m *mockStore) UpsertIngestStatus(ctx context.Context, row *db.IngestStatusRow) error {
	if m.upsertStatusFn != nil {
		return m.upsertStatusFn(ctx, row)
	}
	return nil
}

func (m *mockStore) GetIngestStatus(ctx context.Context, documentID string) (db.IngestStatusRow, error) {
	if m.getStatusFn != nil {
		return m.getStatusFn(ctx, documentID)
	}
	return db.IngestStatusRow{}, &db.Error{Op: db.OpSelect, Err: db.ErrNotFound}
}

func (m *mockStore) ReleaseIngestStatus(ctx context.Context, documentID, jobID string, at time.Time) error {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, documentID, jobID, at)
	}
	return nil
}

func mustDoc(id, userID, content string) domdoc.Document {
	d, err := domdoc.New(id, userID, id+".txt", "text/plain", []byte(content))
	if err != nil {
		panic(err)
	}
	return d
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
