// Package search is the hybrid query engine: vector candidates reranked by lexical overlap.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
)

// Service answers retrieval queries.
type Service struct {
	store  VectorStore
	embed  Embedder
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a query engine.
func New(store VectorStore, embed Embedder) *Service {
	return &Service{
		store:  store,
		embed:  embed,
		opts:   DefaultOptions(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// WithOptions sets query tuning. Unset fields keep their defaults.
func (s *Service) WithOptions(o Options) *Service {
	s.opts = o.withDefaults()
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	s.logger = l
	return s
}

// Query embeds the text, over-fetches vector candidates for the owner and
// reranks them by literal overlap with the query.
func (s *Service) Query(ctx context.Context, req *request.Request) (result.Response, error) {
	start := s.now()
	resp, err := s.query(ctx, req)
	metrics.QueryDuration.Observe(s.now().Sub(start).Seconds())

	switch {
	case err != nil:
		metrics.QueryTotal.WithLabelValues("error").Inc()
	case resp.Weak:
		metrics.QueryTotal.WithLabelValues("weak").Inc()
	default:
		metrics.QueryTotal.WithLabelValues("ok").Inc()
	}
	return resp, err
}

func (s *Service) query(ctx context.Context, req *request.Request) (result.Response, error) {
	resp := result.Response{Query: req.Text()}
	topK := s.opts.resolveTopK(req.TopK())

	emb, err := s.embed.Embed(ctx, req.Text())
	if err != nil {
		return resp, fmt.Errorf("vectorize query: %w", err)
	}

	candidateK := s.opts.candidateK(topK)
	candidates, err := s.store.Search(ctx, &searchrepo.Query{
		Vector:      emb.Embedding,
		UserID:      req.UserID(),
		DocumentIDs: req.DocumentIDs(),
		TopK:        candidateK,
	})
	if err != nil {
		return resp, fmt.Errorf("vector search: %w", err)
	}
	metrics.QueryCandidates.Observe(float64(len(candidates)))

	tokens := tokenize(req.Text(), s.opts.MinTokenLen)
	if len(tokens) > 0 {
		phrase := strings.ToLower(req.Text())
		for i := range candidates {
			candidates[i] = candidates[i].WithSignals(signalsFor(candidates[i].Content(), phrase, tokens))
		}
		rerank(candidates)
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	for i := range candidates {
		var terms []string
		if sig := candidates[i].Signals(); sig != nil {
			terms = sig.MatchedTerms
		}
		candidates[i] = candidates[i].WithExcerpt(excerpt(candidates[i].Content(), terms, s.opts.ExcerptChars))
	}

	resp.Results = candidates
	resp.Weak = len(tokens) > 0 && (len(candidates) == 0 || candidates[0].MatchCount() == 0)
	if resp.Weak {
		s.logger.Info("Weak retrieval",
			zap.String("user_id", req.UserID()),
			zap.Int("query_len", len(req.Text())),
			zap.Int("candidates", candidateK),
		)
	}
	return resp, nil
}
