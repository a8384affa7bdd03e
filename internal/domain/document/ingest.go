package document

import "time"

// IngestState is the polling-facing lifecycle of a document's indexing.
// It is tracked separately from Status so callers can see queue progress.
type IngestState string

// Ingest states.
const (
	IngestUploaded IngestState = "uploaded"
	IngestQueued   IngestState = "queued"
	IngestIndexing IngestState = "indexing"
	IngestIndexed  IngestState = "indexed"
	IngestFailed   IngestState = "failed"
)

// IngestStatus is the side-channel indexing record of one document.
type IngestStatus struct {
	DocumentID      string
	UserID          string
	State           IngestState
	JobID           string
	LastError       string
	IsLikelyScanned bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the state will not change without a new submission.
func (s IngestState) Terminal() bool {
	return s == IngestIndexed || s == IngestFailed
}
