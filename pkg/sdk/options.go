package ragdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dbPath string

	redisAddrs    []string
	redisPassword string
	indexName     string

	embedder Embedder

	vectorDimensions int
	maxChars         int
	overlapChars     int
	minChunkChars    int
	embedBatchSize   int
	maxBatchSize     int
	queueCapacity    int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDatabase sets the SQLite file. Use ":memory:" for a throwaway store.
func WithDatabase(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dbPath = path
	})
}

// WithRedisIndex mirrors chunk vectors into a RediSearch index and answers
// queries from it. SQLite stays the source of truth.
func WithRedisIndex(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithIndexName sets the RediSearch index name.
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithEmbedder sets the text embedding provider.
// Without one, ingestion and queries fail with ErrNotImplemented.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the embedding length. Defaults to 1536.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithChunking sets chunk sizing in characters.
// Defaults: max 1200, overlap 150, min 200.
func WithChunking(maxChars, overlapChars, minChunkChars int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxChars = maxChars
		c.overlapChars = overlapChars
		c.minChunkChars = minChunkChars
	})
}

// WithEmbedBatchSize sets how many chunks are embedded per provider call.
// Default: 64.
func WithEmbedBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedBatchSize = n
	})
}

// WithMaxBatchSize sets the maximum number of items per bulk operation.
// Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithQueueCapacity bounds the number of pending ingest jobs. Default: 256.
func WithQueueCapacity(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.queueCapacity = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
