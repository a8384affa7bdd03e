package db

import "time"

// DocumentRow is the stored form of a document.
type DocumentRow struct {
	ID        string
	UserID    string
	Filename  string
	MimeType  string
	ByteSize  int64
	SHA256    string
	Status    string
	CreatedAt time.Time
}

// ChunkRow is the stored form of a chunk. Page bounds are nil for unpaged sources.
type ChunkRow struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	PageStart  *int
	PageEnd    *int
	CharStart  int
	CharEnd    int
	CreatedAt  time.Time
}

// ChunkHit is a chunk joined with the document fields a citation needs.
type ChunkHit struct {
	ChunkRow
	UserID   string
	Filename string
}

// IngestStatusRow is the stored form of a document's indexing side-channel.
type IngestStatusRow struct {
	DocumentID      string
	UserID          string
	Status          string
	JobID           string
	LastError       string
	IsLikelyScanned bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
