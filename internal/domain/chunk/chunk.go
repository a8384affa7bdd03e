package chunk

import "time"

// Chunk is a bounded slice of a document's normalized text, the unit of retrieval.
// PageStart and PageEnd are nil when the source had no page structure.
type Chunk struct {
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

// Pages returns the page span, defaulting to page 1 for unpaged sources.
func (c *Chunk) Pages() (start, end int) {
	start, end = 1, 1
	if c.PageStart != nil {
		start = *c.PageStart
	}
	if c.PageEnd != nil {
		end = *c.PageEnd
	}
	return start, end
}

// Vector is the embedding stored for one chunk.
type Vector struct {
	ChunkID   string
	Embedding []float32
}
