// Package chi exposes the document, query and ingest operations over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	"github.com/kailas-cloud/ragdex/internal/domain/job"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/extract"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/ragdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	"github.com/kailas-cloud/ragdex/internal/usecase/queue"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// maxJSONBody bounds JSON request bodies; base64 content inflates documents by a third.
const maxJSONBody = extract.DefaultMaxBytes * 2

// Server serves the HTTP API.
type Server struct {
	documents      *documentuc.Service
	batch          *batchuc.Service
	search         *searchuc.Service
	queue          *queue.Queue
	health         *healthuc.Service
	apiKeys        []string
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	batch *batchuc.Service,
	search *searchuc.Service,
	q *queue.Queue,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		documents:      documents,
		batch:          batch,
		search:         search,
		queue:          q,
		health:         health,
		maxUploadBytes: extract.DefaultMaxBytes,
		logger:         logger,
	}
}

// WithAPIKeys enables bearer authentication for /v1 routes.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// WithMaxUploadBytes bounds multipart uploads.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Router builds the HTTP handler with middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(jsonRecoverer(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/health", s.getHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/documents", s.upsertDocuments)
		r.Delete("/documents", s.deleteDocuments)
		r.Get("/documents", s.listDocuments)
		r.Get("/documents/{id}", s.getDocument)
		r.Get("/documents/{id}/chunks", s.listChunks)
		r.Get("/documents/{id}/status", s.getIngestStatus)

		r.Post("/query", s.query)

		r.Post("/ingest", s.enqueue)
		r.Get("/ingest/jobs", s.listJobs)
		r.Get("/ingest/jobs/{id}", s.getJob)
	})

	return r
}

func (s *Server) log(r *http.Request) *zap.Logger {
	return logpkg.FromContext(r.Context())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %s", domain.ErrInvalidInput, err.Error())
	}
	return nil
}

// --- Documents ---

func (s *Server) upsertDocuments(w http.ResponseWriter, r *http.Request) {
	var body UpsertDocumentsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]batchuc.Item, len(body.Documents))
	for i, d := range body.Documents {
		content := d.ContentBase64
		if len(content) == 0 {
			content = []byte(d.Content)
		}
		mimeType := d.MimeType
		if mimeType == "" && len(d.ContentBase64) == 0 {
			mimeType = "text/plain"
		}
		items[i] = batchuc.Item{ID: d.ID, Filename: d.Filename, MimeType: mimeType, Content: content}
	}

	results := s.batch.Upsert(r.Context(), userFrom(r), items)
	sum := dombatch.Summarize(results)
	resp := UpsertDocumentsResponse{
		OK:       sum.OK(),
		Upserted: sum.Succeeded,
		Items:    batchItems(results),
	}
	if sum.FirstErr != nil {
		resp.Error = errorBody(sum.FirstErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteDocuments(w http.ResponseWriter, r *http.Request) {
	var body DeleteDocumentsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := s.batch.Delete(r.Context(), userFrom(r), body.IDs)
	sum := dombatch.Summarize(results)
	resp := DeleteDocumentsResponse{
		OK:      sum.OK(),
		Deleted: sum.Succeeded,
		Items:   batchItems(results),
	}
	if sum.FirstErr != nil {
		resp.Error = errorBody(sum.FirstErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), userFrom(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]Document, len(docs))
	for i := range docs {
		items[i] = documentFromDomain(&docs[i])
	}
	writeJSON(w, http.StatusOK, DocumentList{Items: items})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), userFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentFromDomain(&doc))
}

func (s *Server) listChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.documents.Chunks(r.Context(), userFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]Chunk, len(chunks))
	for i := range chunks {
		items[i] = chunkFromDomain(&chunks[i])
	}
	writeJSON(w, http.StatusOK, ChunkList{Items: items})
}

func (s *Server) getIngestStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.documents.Status(r.Context(), userFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestStatusFromDomain(&st))
}

// --- Query ---

// query reports retrieval failures as ok:false so callers can degrade.
// Only malformed requests get a 4xx status.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var body QueryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeQueryError(w, r, body.Query, err)
		return
	}

	req, err := request.New(userFrom(r), body.Query, body.TopK, body.DocumentIDs)
	if err != nil {
		s.writeQueryError(w, r, body.Query, err)
		return
	}

	resp, err := s.search.Query(r.Context(), &req)
	if err != nil {
		s.writeQueryError(w, r, req.Text(), err)
		return
	}

	results := make([]QueryResult, len(resp.Results))
	for i := range resp.Results {
		results[i] = queryResultFromDomain(&resp.Results[i])
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		OK:      true,
		Query:   resp.Query,
		Results: results,
		Weak:    resp.Weak,
	})
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, text string, err error) {
	status := http.StatusOK
	if domain.CodeOf(err) == domain.CodeInvalidInput {
		status = http.StatusBadRequest
	} else {
		s.log(r).Warn("query failed", zap.Error(err))
	}
	writeJSON(w, status, QueryResponse{
		OK:      false,
		Query:   text,
		Results: []QueryResult{},
		Error:   errorBody(err),
	})
}

// --- Ingest jobs ---

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request) {
	req, err := s.readUpload(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req.UserID = userFrom(r)

	id, err := s.queue.Enqueue(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	st, err := s.queue.Status(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, EnqueueResponse{JobID: id, DocumentID: st.DocumentID})
}

// readUpload reads the "file" part of a multipart form plus an optional document_id field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (job.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	mr, err := r.MultipartReader()
	if err != nil {
		return job.Request{}, fmt.Errorf("%w: multipart form expected", domain.ErrInvalidInput)
	}

	var req job.Request
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return job.Request{}, s.uploadErr(err)
		}

		switch part.FormName() {
		case "file":
			data, err := io.ReadAll(io.LimitReader(part, s.maxUploadBytes+1))
			if err != nil {
				return job.Request{}, s.uploadErr(err)
			}
			if int64(len(data)) > s.maxUploadBytes {
				return job.Request{}, domain.ErrDocumentTooLarge
			}
			req.Data = data
			req.Filename = part.FileName()
			req.MimeType = part.Header.Get("Content-Type")
		case "document_id":
			v, err := io.ReadAll(io.LimitReader(part, 256))
			if err != nil {
				return job.Request{}, s.uploadErr(err)
			}
			req.DocumentID = strings.TrimSpace(string(v))
		}
		_ = part.Close()
	}

	if req.Filename == "" && len(req.Data) == 0 {
		return job.Request{}, fmt.Errorf("%w: file part is required", domain.ErrInvalidInput)
	}
	return req, nil
}

func (s *Server) uploadErr(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.ErrDocumentTooLarge
	}
	return fmt.Errorf("%w: read upload: %s", domain.ErrInvalidInput, err.Error())
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	items := []Job{}
	for _, st := range s.queue.List() {
		if st.UserID != userID {
			continue
		}
		items = append(items, jobFromDomain(&st))
	}
	writeJSON(w, http.StatusOK, JobList{Items: items})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	st, err := s.queue.Status(chi.URLParam(r, "id"))
	if err == nil && st.UserID != userFrom(r) {
		err = domain.ErrJobNotFound
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobFromDomain(&st))
}

// --- Health ---

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}
