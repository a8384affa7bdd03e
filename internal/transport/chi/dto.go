package chi

import (
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/job"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

// UpsertDocument is one document of a bulk upsert. Content is plain text;
// ContentBase64 carries binary formats such as PDF or DOCX.
type UpsertDocument struct {
	ID            string `json:"id,omitempty"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type,omitempty"`
	Content       string `json:"content,omitempty"`
	ContentBase64 []byte `json:"content_base64,omitempty"`
}

// UpsertDocumentsRequest is the body of POST /v1/documents.
type UpsertDocumentsRequest struct {
	Documents []UpsertDocument `json:"documents"`
}

// DeleteDocumentsRequest is the body of DELETE /v1/documents.
type DeleteDocumentsRequest struct {
	IDs []string `json:"ids"`
}

// BatchItem is the per-item outcome of a bulk operation.
type BatchItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Chunks int            `json:"chunks,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// UpsertDocumentsResponse reports a bulk upsert.
type UpsertDocumentsResponse struct {
	OK       bool           `json:"ok"`
	Upserted int            `json:"upserted"`
	Items    []BatchItem    `json:"items"`
	Error    *ErrorResponse `json:"error,omitempty"`
}

// DeleteDocumentsResponse reports a bulk delete.
type DeleteDocumentsResponse struct {
	OK      bool           `json:"ok"`
	Deleted int            `json:"deleted"`
	Items   []BatchItem    `json:"items"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// QueryResult is one citable hit.
type QueryResult struct {
	ChunkID      string   `json:"chunk_id"`
	DocumentID   string   `json:"document_id"`
	Filename     string   `json:"filename"`
	ChunkIndex   int      `json:"chunk_index"`
	PageStart    int      `json:"page_start"`
	PageEnd      int      `json:"page_end"`
	Score        float64  `json:"score"`
	Excerpt      string   `json:"excerpt"`
	MatchCount   *int     `json:"match_count,omitempty"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	HasAllTerms  *bool    `json:"has_all_terms,omitempty"`
	PhraseBoost  *int     `json:"phrase_boost,omitempty"`
}

// QueryResponse reports a query. Failures set OK=false and Error.
type QueryResponse struct {
	OK      bool           `json:"ok"`
	Query   string         `json:"query"`
	Results []QueryResult  `json:"results"`
	Weak    bool           `json:"weak"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// Document is a stored document.
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	ByteSize  int64     `json:"byte_size"`
	SHA256    string    `json:"sha256"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentList is the body of GET /v1/documents.
type DocumentList struct {
	Items []Document `json:"items"`
}

// Chunk is one stored chunk.
type Chunk struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Content   string `json:"content"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// ChunkList is the body of GET /v1/documents/{id}/chunks.
type ChunkList struct {
	Items []Chunk `json:"items"`
}

// IngestStatus is the side-channel status of a document.
type IngestStatus struct {
	DocumentID      string    `json:"document_id"`
	Status          string    `json:"status"`
	JobID           string    `json:"job_id,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	IsLikelyScanned bool      `json:"is_likely_scanned"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EnqueueResponse is the body of POST /v1/ingest.
type EnqueueResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
}

// Job is an ingest job snapshot.
type Job struct {
	ID             string     `json:"id"`
	State          string     `json:"state"`
	DocumentID     string     `json:"document_id"`
	Filename       string     `json:"filename"`
	EnqueuedAt     time.Time  `json:"enqueued_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ChunksInserted *int       `json:"chunks_inserted,omitempty"`
	ErrorCode      string     `json:"error_code,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// JobList is the body of GET /v1/ingest/jobs.
type JobList struct {
	Items []Job `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func errorBody(err error) *ErrorResponse {
	return &ErrorResponse{Code: domain.CodeOf(err), Message: domain.PublicMessage(err)}
}

func batchItems(results []dombatch.Result) []BatchItem {
	items := make([]BatchItem, len(results))
	for i, r := range results {
		items[i] = BatchItem{ID: r.ID(), Status: string(r.Status()), Chunks: r.Chunks()}
		if r.Err() != nil {
			items[i].Error = errorBody(r.Err())
		}
	}
	return items
}

func queryResultFromDomain(r *result.Result) QueryResult {
	out := QueryResult{
		ChunkID:    r.ChunkID(),
		DocumentID: r.DocumentID(),
		Filename:   r.Filename(),
		ChunkIndex: r.ChunkIndex(),
		PageStart:  r.PageStart(),
		PageEnd:    r.PageEnd(),
		Score:      r.Score(),
		Excerpt:    r.Excerpt(),
	}
	if s := r.Signals(); s != nil {
		mc, all, pb := s.MatchCount, s.HasAllTerms, s.PhraseBoost
		out.MatchCount, out.HasAllTerms, out.PhraseBoost = &mc, &all, &pb
		out.MatchedTerms = s.MatchedTerms
	}
	return out
}

func documentFromDomain(d *domdoc.Document) Document {
	return Document{
		ID:        d.ID(),
		Filename:  d.Filename(),
		MimeType:  d.MimeType(),
		ByteSize:  d.ByteSize(),
		SHA256:    d.SHA256(),
		Status:    string(d.Status()),
		CreatedAt: d.CreatedAt(),
	}
}

func chunkFromDomain(c *chunk.Chunk) Chunk {
	start, end := c.Pages()
	return Chunk{
		ID:        c.ID,
		Index:     c.Index,
		Content:   c.Content,
		PageStart: start,
		PageEnd:   end,
		CharStart: c.CharStart,
		CharEnd:   c.CharEnd,
	}
}

func ingestStatusFromDomain(st *domdoc.IngestStatus) IngestStatus {
	return IngestStatus{
		DocumentID:      st.DocumentID,
		Status:          string(st.State),
		JobID:           st.JobID,
		LastError:       st.LastError,
		IsLikelyScanned: st.IsLikelyScanned,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
	}
}

func jobFromDomain(st *job.Status) Job {
	out := Job{
		ID:         st.ID,
		State:      string(st.State),
		DocumentID: st.DocumentID,
		Filename:   st.Filename,
		EnqueuedAt: st.EnqueuedAt,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
		ErrorCode:  string(st.ErrorCode),
		Error:      st.Error,
	}
	if st.State == job.StateDone {
		n := st.ChunksInserted
		out.ChunksInserted = &n
	}
	return out
}
