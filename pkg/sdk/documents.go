package ragdex

import (
	"context"
	"fmt"
	"time"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
)

// UpsertDocuments indexes docs for userID, replacing the chunks of documents
// that already exist. Failures are reported per item, never as a Go error.
func (c *Client) UpsertDocuments(ctx context.Context, userID string, docs []Document) UpsertResult {
	start := time.Now()

	items := make([]batchuc.Item, len(docs))
	for i, d := range docs {
		items[i] = batchuc.Item{ID: d.ID, Filename: d.Filename, MimeType: d.MimeType, Content: d.Content}
	}

	results := c.batchSvc.Upsert(ctx, userID, items)
	sum := dombatch.Summarize(results)
	c.obs.observe("upsert_documents", userID, start, sum.FirstErr)

	return UpsertResult{
		OK:       sum.OK(),
		Upserted: sum.Succeeded,
		Items:    toItemResults(results),
		Error:    toError(sum.FirstErr),
	}
}

// DeleteDocuments removes documents of userID with their chunks and vectors.
func (c *Client) DeleteDocuments(ctx context.Context, userID string, ids []string) DeleteResult {
	start := time.Now()

	results := c.batchSvc.Delete(ctx, userID, ids)
	sum := dombatch.Summarize(results)
	c.obs.observe("delete_documents", userID, start, sum.FirstErr)

	return DeleteResult{
		OK:      sum.OK(),
		Deleted: sum.Succeeded,
		Items:   toItemResults(results),
		Error:   toError(sum.FirstErr),
	}
}

// Document returns one document of userID.
func (c *Client) Document(ctx context.Context, userID, id string) (DocumentInfo, error) {
	d, err := c.docSvc.Get(ctx, userID, id)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(&d), nil
}

// Documents lists the documents of userID, newest first.
func (c *Client) Documents(ctx context.Context, userID string) ([]DocumentInfo, error) {
	docs, err := c.docSvc.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]DocumentInfo, len(docs))
	for i := range docs {
		out[i] = fromInternalDocument(&docs[i])
	}
	return out, nil
}

// Status returns the indexing progress of a document of userID.
func (c *Client) Status(ctx context.Context, userID, id string) (IndexStatus, error) {
	st, err := c.docSvc.Status(ctx, userID, id)
	if err != nil {
		return IndexStatus{}, fmt.Errorf("document status: %w", err)
	}
	return IndexStatus{
		DocumentID:      st.DocumentID,
		State:           string(st.State),
		JobID:           st.JobID,
		LastError:       st.LastError,
		IsLikelyScanned: st.IsLikelyScanned,
		UpdatedAt:       st.UpdatedAt,
	}, nil
}

func toItemResults(results []dombatch.Result) []ItemResult {
	out := make([]ItemResult, len(results))
	for i, r := range results {
		out[i] = ItemResult{
			ID:     r.ID(),
			OK:     r.Status() == dombatch.StatusOK,
			Chunks: r.Chunks(),
			Error:  toError(r.Err()),
		}
	}
	return out
}

func fromInternalDocument(d *domdoc.Document) DocumentInfo {
	return DocumentInfo{
		ID:        d.ID(),
		Filename:  d.Filename(),
		MimeType:  d.MimeType(),
		ByteSize:  d.ByteSize(),
		SHA256:    d.SHA256(),
		Status:    string(d.Status()),
		CreatedAt: d.CreatedAt(),
	}
}
