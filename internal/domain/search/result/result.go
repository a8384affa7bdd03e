package result

// Signals are the lexical overlap measurements of one candidate against the query tokens.
type Signals struct {
	MatchCount   int
	MatchedTerms []string
	HasAllTerms  bool
	PhraseBoost  int
}

// Result is one citable retrieval hit.
type Result struct {
	chunkID    string
	documentID string
	filename   string
	chunkIndex int
	pageStart  int
	pageEnd    int
	score      float64
	content    string
	excerpt    string
	signals    *Signals
}

// New creates a retrieval hit. Zero page numbers default to 1.
func New(
	chunkID, documentID, filename string, chunkIndex, pageStart, pageEnd int,
	score float64, content string,
) Result {
	if pageStart <= 0 {
		pageStart = 1
	}
	if pageEnd < pageStart {
		pageEnd = pageStart
	}
	return Result{
		chunkID: chunkID, documentID: documentID, filename: filename, chunkIndex: chunkIndex,
		pageStart: pageStart, pageEnd: pageEnd, score: score, content: content,
	}
}

// ChunkID returns the chunk identifier.
func (r *Result) ChunkID() string { return r.chunkID }

// DocumentID returns the source document identifier.
func (r *Result) DocumentID() string { return r.documentID }

// Filename returns the source file name.
func (r *Result) Filename() string { return r.filename }

// ChunkIndex returns the chunk position within its document.
func (r *Result) ChunkIndex() int { return r.chunkIndex }

// PageStart returns the first page covered by the chunk.
func (r *Result) PageStart() int { return r.pageStart }

// PageEnd returns the last page covered by the chunk.
func (r *Result) PageEnd() int { return r.pageEnd }

// Score returns the cosine similarity to the query.
func (r *Result) Score() float64 { return r.score }

// Content returns the full chunk text.
func (r *Result) Content() string { return r.content }

// Excerpt returns the bounded excerpt, or the content when no excerpt was set.
func (r *Result) Excerpt() string {
	if r.excerpt == "" {
		return r.content
	}
	return r.excerpt
}

// Signals returns lexical signals, nil when the query produced no tokens.
func (r *Result) Signals() *Signals { return r.signals }

// MatchCount returns the number of matched query tokens, 0 without signals.
func (r *Result) MatchCount() int {
	if r.signals == nil {
		return 0
	}
	return r.signals.MatchCount
}

// WithExcerpt returns a copy with the given excerpt.
func (r Result) WithExcerpt(excerpt string) Result {
	r.excerpt = excerpt
	return r
}

// WithSignals returns a copy carrying lexical signals.
func (r Result) WithSignals(s Signals) Result {
	r.signals = &s
	return r
}

// Response is the outcome of one query.
// Weak is set when the query had tokens but the top hit matched none of them.
type Response struct {
	Query   string
	Results []Result
	Weak    bool
}
