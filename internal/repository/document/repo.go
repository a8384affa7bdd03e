package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	UpsertDocument(ctx context.Context, row *db.DocumentRow) (db.DocumentRow, bool, error)
	GetDocument(ctx context.Context, id string) (db.DocumentRow, error)
	ListDocuments(ctx context.Context, userID string) ([]db.DocumentRow, error)
	SetDocumentStatus(ctx context.Context, id, status string) error
	DeleteDocument(ctx context.Context, userID, id string) ([]string, error)
	ListChunks(ctx context.Context, documentID string) ([]db.ChunkRow, error)
	UpsertIngestStatus(ctx context.Context, row *db.IngestStatusRow) error
	GetIngestStatus(ctx context.Context, documentID string) (db.IngestStatusRow, error)
	ReleaseIngestStatus(ctx context.Context, documentID, jobID string, at time.Time) error
}

// Repo persists documents, their chunk listing and ingest status.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Upsert stores a document. When the owner already has a document with the
// same content hash, that document is returned and created is false.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error) {
	row := toRow(doc)
	stored, created, err := r.store.UpsertDocument(ctx, &row)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return domdoc.Document{}, false, fmt.Errorf("upsert %s: %w", doc.ID(), domain.ErrOwnerMismatch)
		}
		return domdoc.Document{}, false, fmt.Errorf("upsert %s: %w", doc.ID(), err)
	}
	return fromRow(&stored), created, nil
}

// Get returns an owner's document. Documents of other owners read as missing.
func (r *Repo) Get(ctx context.Context, userID, id string) (domdoc.Document, error) {
	row, err := r.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get %s: %w", id, err)
	}
	if row.UserID != userID {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return fromRow(&row), nil
}

// List returns the owner's documents, newest first.
func (r *Repo) List(ctx context.Context, userID string) ([]domdoc.Document, error) {
	rows, err := r.store.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]domdoc.Document, len(rows))
	for i := range rows {
		docs[i] = fromRow(&rows[i])
	}
	return docs, nil
}

// SetStatus updates the document lifecycle status.
func (r *Repo) SetStatus(ctx context.Context, id string, status domdoc.Status) error {
	if err := r.store.SetDocumentStatus(ctx, id, string(status)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("set status %s: %w", id, err)
	}
	return nil
}

// Delete removes an owner's document and returns the ids of its removed chunks.
func (r *Repo) Delete(ctx context.Context, userID, id string) ([]string, error) {
	removed, err := r.store.DeleteDocument(ctx, userID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("delete %s: %w", id, err)
	}
	return removed, nil
}

// Chunks returns a document's chunks ordered by index.
func (r *Repo) Chunks(ctx context.Context, documentID string) ([]chunk.Chunk, error) {
	rows, err := r.store.ListChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks %s: %w", documentID, err)
	}
	out := make([]chunk.Chunk, len(rows))
	for i := range rows {
		out[i] = chunkFromRow(&rows[i])
	}
	return out, nil
}

// SaveIngestStatus records the indexing state of a document, stamping UpdatedAt.
func (r *Repo) SaveIngestStatus(ctx context.Context, st *domdoc.IngestStatus) error {
	now := r.now().UTC()
	row := db.IngestStatusRow{
		DocumentID:      st.DocumentID,
		UserID:          st.UserID,
		Status:          string(st.State),
		JobID:           st.JobID,
		LastError:       st.LastError,
		IsLikelyScanned: st.IsLikelyScanned,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       now,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if err := r.store.UpsertIngestStatus(ctx, &row); err != nil {
		return fmt.Errorf("save ingest status %s: %w", st.DocumentID, err)
	}
	return nil
}

// ReleaseIngestStatus withdraws the status jobID recorded for documentID after
// the job resolved to another document.
func (r *Repo) ReleaseIngestStatus(ctx context.Context, documentID, jobID string) error {
	if err := r.store.ReleaseIngestStatus(ctx, documentID, jobID, r.now().UTC()); err != nil {
		return fmt.Errorf("release ingest status %s: %w", documentID, err)
	}
	return nil
}

// IngestStatus returns the indexing state of an owner's document.
func (r *Repo) IngestStatus(ctx context.Context, userID, documentID string) (domdoc.IngestStatus, error) {
	row, err := r.store.GetIngestStatus(ctx, documentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return domdoc.IngestStatus{}, domain.ErrDocumentNotFound
		}
		return domdoc.IngestStatus{}, fmt.Errorf("get ingest status %s: %w", documentID, err)
	}
	if row.UserID != userID {
		return domdoc.IngestStatus{}, domain.ErrDocumentNotFound
	}
	return domdoc.IngestStatus{
		DocumentID:      row.DocumentID,
		UserID:          row.UserID,
		State:           domdoc.IngestState(row.Status),
		JobID:           row.JobID,
		LastError:       row.LastError,
		IsLikelyScanned: row.IsLikelyScanned,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}
