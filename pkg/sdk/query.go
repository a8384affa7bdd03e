package ragdex

import (
	"context"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Query retrieves the chunks of userID most relevant to text.
// It never returns a Go error: failures set OK=false and Error.
func (c *Client) Query(ctx context.Context, userID, text string, opts ...QueryOption) QueryResult {
	start := time.Now()
	var err error
	defer func() { c.obs.observe("query", userID, start, err) }()

	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	req, err := request.New(userID, text, o.topK, o.documentIDs)
	if err != nil {
		return QueryResult{Query: text, Results: []Hit{}, Error: toError(err)}
	}

	resp, err := c.searchSvc.Query(ctx, &req)
	if err != nil {
		return QueryResult{Query: req.Text(), Results: []Hit{}, Error: toError(err)}
	}

	hits := make([]Hit, len(resp.Results))
	for i := range resp.Results {
		hits[i] = toHit(&resp.Results[i])
	}
	return QueryResult{OK: true, Query: resp.Query, Results: hits, Weak: resp.Weak}
}

func toHit(r *result.Result) Hit {
	h := Hit{
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
		h.MatchCount, h.HasAllTerms, h.PhraseBoost = &mc, &all, &pb
		h.MatchedTerms = s.MatchedTerms
	}
	return h
}
