package ragdex

import "time"

// Document is one file to index. An empty ID derives a new one; an empty
// MimeType is guessed from Filename.
type Document struct {
	ID       string
	Filename string
	MimeType string
	Content  []byte
}

// ItemResult is the outcome of one document of a bulk operation.
type ItemResult struct {
	ID     string
	OK     bool
	Chunks int
	Error  *Error
}

// UpsertResult reports a bulk upsert. Error holds the first failure.
type UpsertResult struct {
	OK       bool
	Upserted int
	Items    []ItemResult
	Error    *Error
}

// DeleteResult reports a bulk delete. Error holds the first failure.
type DeleteResult struct {
	OK      bool
	Deleted int
	Items   []ItemResult
	Error   *Error
}

// QueryOption narrows a query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	topK        int
	documentIDs []string
}

// WithTopK sets the number of results. Zero selects the default.
func WithTopK(k int) QueryOption {
	return func(o *queryOptions) { o.topK = k }
}

// WithDocuments restricts the query to the given document ids.
func WithDocuments(ids ...string) QueryOption {
	return func(o *queryOptions) { o.documentIDs = append(o.documentIDs, ids...) }
}

// Hit is one citable retrieval result.
type Hit struct {
	ChunkID    string
	DocumentID string
	Filename   string
	ChunkIndex int
	PageStart  int // 1 for sources without pages
	PageEnd    int
	Score      float64
	Excerpt    string

	// Lexical signals. Nil when the query had no terms long enough to match.
	MatchCount   *int
	MatchedTerms []string
	HasAllTerms  *bool
	PhraseBoost  *int
}

// QueryResult reports a query. Failures set OK=false and Error instead of
// returning an error, so callers can degrade gracefully.
type QueryResult struct {
	OK      bool
	Query   string
	Results []Hit
	// Weak is set when no result shares a term with the query.
	Weak  bool
	Error *Error
}

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	ID        string
	Filename  string
	MimeType  string
	ByteSize  int64
	SHA256    string
	Status    string // uploaded, indexed, failed
	CreatedAt time.Time
}

// IndexStatus is the indexing progress of a document.
type IndexStatus struct {
	DocumentID      string
	State           string // uploaded, queued, indexing, indexed, failed
	JobID           string
	LastError       string
	IsLikelyScanned bool
	UpdatedAt       time.Time
}

// JobState is the lifecycle state of an ingest job.
type JobState string

// Job states. Done and Failed are terminal.
const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job is a snapshot of an ingest job.
type Job struct {
	ID             string
	State          JobState
	DocumentID     string
	Filename       string
	EnqueuedAt     time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	ChunksInserted int
	ErrorCode      ErrorCode
	Error          string
}
