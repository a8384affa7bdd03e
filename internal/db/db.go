package db

import (
	"context"
	"time"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// VectorRecord is one chunk embedding with the tags used for prefiltering.
// Vectors are expected to be unit length.
type VectorRecord struct {
	ChunkID    string
	DocumentID string
	UserID     string
	Vector     []float32
}

// KNNQuery is the input for an owner-scoped nearest-neighbor search.
type KNNQuery struct {
	Vector      []float32
	UserID      string
	DocumentIDs []string
	K           int
}

// Neighbor is one search hit: the Euclidean distance between the query and a stored vector.
type Neighbor struct {
	ChunkID  string
	Distance float64
}

// VectorIndex stores chunk vectors and answers k-nearest-neighbor queries.
// Results are ordered by ascending distance.
type VectorIndex interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	Delete(ctx context.Context, chunkIDs []string) error
	SearchKNN(ctx context.Context, q *KNNQuery) ([]Neighbor, error)
}
