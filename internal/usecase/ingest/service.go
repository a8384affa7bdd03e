// Package ingest runs the extract, normalize, chunk, embed and store pipeline for one document.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/job"
	"github.com/kailas-cloud/ragdex/internal/extract"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/normalize"
)

// DefaultBatchSize is the number of chunk texts embedded per request.
const DefaultBatchSize = 64

// Request is one document to ingest.
type Request struct {
	UserID     string
	DocumentID string
	Filename   string
	MimeType   string
	Data       []byte
	JobID      string
}

// Result summarizes a completed ingestion.
type Result struct {
	DocumentID      string
	Kind            extract.Kind
	ChunksInserted  int
	IsLikelyScanned bool
}

// Service is the ingestion orchestrator. It owns the document lifecycle status.
type Service struct {
	extractor  Extractor
	docs       Documents
	vectors    VectorStore
	embedder   domain.Embedder
	normalizer *normalize.Normalizer
	chunking   chunker.Options
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an ingestion orchestrator.
func New(extractor Extractor, docs Documents, vectors VectorStore, embedder domain.Embedder) *Service {
	return &Service{
		extractor:  extractor,
		docs:       docs,
		vectors:    vectors,
		embedder:   embedder,
		normalizer: normalize.New(normalize.DefaultHyphenMinPrefix, normalize.DefaultHyphenMinSuffix),
		chunking:   chunker.DefaultOptions(),
		batchSize:  DefaultBatchSize,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

// WithChunking sets the chunk size options.
func (s *Service) WithChunking(opts chunker.Options) *Service {
	s.chunking = opts
	return s
}

// WithNormalizer replaces the text normalizer.
func (s *Service) WithNormalizer(n *normalize.Normalizer) *Service {
	if n != nil {
		s.normalizer = n
	}
	return s
}

// WithBatchSize sets the number of chunks embedded per request.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	s.logger = l
	return s
}

// Ingest stores the document, then extracts, chunks, embeds and indexes it,
// replacing any chunks from a previous run. On failure the document is marked
// failed and the error is returned.
func (s *Service) Ingest(ctx context.Context, req *Request) (Result, error) {
	start := s.now()

	doc, err := domdoc.New(req.DocumentID, req.UserID, req.Filename, req.MimeType, req.Data)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: %w", err)
	}
	stored, _, err := s.docs.Upsert(ctx, &doc)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: store document: %w", err)
	}

	status := domdoc.IngestStatus{
		DocumentID: stored.ID(),
		UserID:     stored.UserID(),
		State:      domdoc.IngestIndexing,
		JobID:      req.JobID,
	}
	s.saveStatus(ctx, &status)

	res, err := s.run(ctx, &stored, req)
	if err != nil {
		s.fail(ctx, &stored, &status, res.Kind, err)
		return res, fmt.Errorf("ingest %s: %w", stored.ID(), err)
	}

	if err := s.docs.SetStatus(ctx, stored.ID(), domdoc.StatusIndexed); err != nil {
		s.fail(ctx, &stored, &status, res.Kind, err)
		return res, fmt.Errorf("ingest %s: mark indexed: %w", stored.ID(), err)
	}
	status.State = domdoc.IngestIndexed
	status.IsLikelyScanned = res.IsLikelyScanned
	status.LastError = ""
	s.saveStatus(ctx, &status)

	metrics.IngestDocumentsTotal.WithLabelValues(string(res.Kind), string(domdoc.StatusIndexed)).Inc()
	metrics.IngestDuration.WithLabelValues(string(res.Kind)).Observe(s.now().Sub(start).Seconds())
	metrics.IngestChunksTotal.Add(float64(res.ChunksInserted))
	if res.IsLikelyScanned {
		metrics.IngestScannedTotal.Inc()
	}

	s.logger.Info("Document indexed",
		zap.String("document_id", stored.ID()),
		zap.String("user_id", stored.UserID()),
		zap.String("kind", string(res.Kind)),
		zap.Int("chunks", res.ChunksInserted),
		zap.Bool("likely_scanned", res.IsLikelyScanned),
		zap.Duration("duration", s.now().Sub(start)),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, doc *domdoc.Document, req *Request) (Result, error) {
	res := Result{DocumentID: doc.ID()}

	extracted, err := s.extractor.Extract(ctx, req.MimeType, req.Filename, req.Data)
	if err != nil {
		return res, fmt.Errorf("extract: %w", err)
	}
	res.Kind = extracted.Kind
	res.IsLikelyScanned = extracted.IsLikelyScanned

	chunks := s.split(doc.ID(), &extracted)
	if len(chunks) == 0 {
		s.logger.Warn("Document produced no chunks",
			zap.String("document_id", doc.ID()),
			zap.Bool("likely_scanned", extracted.IsLikelyScanned),
		)
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return res, err
	}

	if err := s.vectors.ReplaceChunks(ctx, doc.UserID(), doc.ID(), chunks, vectors); err != nil {
		return res, fmt.Errorf("store chunks: %w", err)
	}
	res.ChunksInserted = len(chunks)
	return res, nil
}

// split normalizes and chunks the extracted text, page-aware when pages exist.
func (s *Service) split(documentID string, extracted *extract.Result) []chunk.Chunk {
	var parts []chunker.Chunk
	paged := len(extracted.Pages) > 0
	if paged {
		pages := make([]chunker.Page, len(extracted.Pages))
		for i, p := range extracted.Pages {
			pages[i] = chunker.Page{Number: p.Number, Text: p.Text}
		}
		_, parts = chunker.SplitPages(pages, s.chunking, s.normalizer.Normalize)
	} else {
		parts = chunker.Split(s.normalizer.Normalize(extracted.Text), s.chunking)
	}

	now := s.now().UTC()
	out := make([]chunk.Chunk, len(parts))
	for i, p := range parts {
		c := chunk.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Index:      p.Index,
			Content:    p.Content,
			CharStart:  p.CharStart,
			CharEnd:    p.CharEnd,
			CreatedAt:  now,
		}
		if paged && p.PageStart > 0 {
			start, end := p.PageStart, p.PageEnd
			c.PageStart, c.PageEnd = &start, &end
		}
		out[i] = c
	}
	return out
}

// embed vectorizes chunk contents in fixed-size batches.
func (s *Service) embed(ctx context.Context, chunks []chunk.Chunk) ([]chunk.Vector, error) {
	vectors := make([]chunk.Vector, 0, len(chunks))
	for offset := 0; offset < len(chunks); offset += s.batchSize {
		end := min(offset+s.batchSize, len(chunks))
		texts := make([]string, end-offset)
		for i := range texts {
			texts[i] = chunks[offset+i].Content
		}

		res, err := domain.EmbedBatch(ctx, s.embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", offset, end-1, err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: %w: got %d embeddings for %d texts",
				offset, end-1, domain.ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
		}
		for i, e := range res.Embeddings {
			vectors = append(vectors, chunk.Vector{ChunkID: chunks[offset+i].ID, Embedding: e})
		}
	}
	return vectors, nil
}

func (s *Service) fail(
	ctx context.Context, doc *domdoc.Document, status *domdoc.IngestStatus, kind extract.Kind, cause error,
) {
	if err := s.docs.SetStatus(ctx, doc.ID(), domdoc.StatusFailed); err != nil {
		s.logger.Error("Failed to mark document failed", zap.String("document_id", doc.ID()), zap.Error(err))
	}
	status.State = domdoc.IngestFailed
	status.LastError = job.OneLine(cause)
	s.saveStatus(ctx, status)

	metrics.IngestDocumentsTotal.WithLabelValues(string(kind), string(domdoc.StatusFailed)).Inc()
	s.logger.Error("Ingestion failed",
		zap.String("document_id", doc.ID()),
		zap.String("user_id", doc.UserID()),
		zap.String("code", string(domain.CodeOf(cause))),
		zap.Error(cause),
	)
}

// saveStatus updates the side-channel record. Failures are logged, never returned.
func (s *Service) saveStatus(ctx context.Context, st *domdoc.IngestStatus) {
	if err := s.docs.SaveIngestStatus(ctx, st); err != nil {
		s.logger.Warn("Failed to save ingest status",
			zap.String("document_id", st.DocumentID),
			zap.String("state", string(st.State)),
			zap.Error(err),
		)
	}
}
