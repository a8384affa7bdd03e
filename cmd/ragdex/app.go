package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/config"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/db/sqlite"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/extract"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/normalize"
	documentrepo "github.com/kailas-cloud/ragdex/internal/repository/document"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/ragdex/internal/transport/openai"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/ragdex/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	"github.com/kailas-cloud/ragdex/internal/usecase/queue"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// app is the composition root shared by all subcommands.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store *sqlite.Store
	index *dbRedis.Store

	docs   *documentuc.Service
	batch  *batchuc.Service
	search *searchuc.Service
	queue  *queue.Queue
	health *healthuc.Service
}

// kvStore is what the embedding cache needs from either backend.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()
	metrics.RegisterQueryMetrics()
	metrics.RegisterHTTPMetrics()

	store, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %w", domain.ErrDBUnavailable, err)
	}
	logger.Info("Opened document store", zap.String("path", cfg.Database.Path))

	a := &app{cfg: cfg, logger: logger, store: store}

	if cfg.VectorIndex.Backend == config.BackendRedis {
		if a.index, err = openIndex(ctx, cfg); err != nil {
			a.close()
			return nil, err
		}
		logger.Info("Connected to vector index",
			zap.Strings("addrs", cfg.VectorIndex.Addrs),
			zap.String("index", cfg.VectorIndex.IndexName),
		)
	}

	var kv kvStore = store
	if a.index != nil {
		kv = a.index
	}
	docEmbedder := buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, kv, logger)
	queryEmbedder := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, kv, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	dim := cfg.Embedding.Dimensions
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store, dim)
	if a.index != nil {
		searchRepo = searchRepo.WithIndex(a.index)
	}

	extractor := extract.New().
		WithMaxBytes(cfg.Extraction.MaxBytes).
		WithScannedPolicy(extract.ScannedPolicy{
			MinChars:           cfg.Extraction.ScannedMinChars,
			NearEmptyPageChars: cfg.Extraction.NearEmptyPageChars,
			NearEmptyPageRatio: cfg.Extraction.NearEmptyPageRatio,
		}).
		WithLogger(logger)

	ingester := ingest.New(extractor, docRepo, searchRepo, docEmbedder).
		WithChunking(chunker.Options{
			MaxChars:      cfg.Chunking.MaxChars,
			OverlapChars:  cfg.Chunking.OverlapChars,
			MinChunkChars: cfg.Chunking.MinChunkChars,
		}).
		WithNormalizer(normalize.New(cfg.Normalize.HyphenMinPrefix, cfg.Normalize.HyphenMinSuffix)).
		WithBatchSize(cfg.Embedding.BatchSize).
		WithLogger(logger)

	a.docs = documentuc.New(docRepo, searchRepo).WithLogger(logger)
	a.batch = batchuc.New(ingester, a.docs).
		WithMaxBatchSize(cfg.Ingest.MaxBatchSize).
		WithLogger(logger)
	a.search = searchuc.New(searchRepo, queryEmbedder).
		WithOptions(searchuc.Options{
			DefaultTopK:     cfg.Search.DefaultTopK,
			MaxTopK:         cfg.Search.MaxTopK,
			OverfetchFactor: cfg.Search.OverfetchFactor,
			MaxCandidates:   cfg.Search.MaxCandidates,
			MinTokenLen:     cfg.Search.MinTokenLen,
			ExcerptChars:    cfg.Search.ExcerptChars,
		}).
		WithLogger(logger)
	a.queue = queue.New(ingester).
		WithStatusRecorder(docRepo).
		WithCapacity(cfg.Ingest.QueueCapacity).
		WithRetention(cfg.Ingest.JobRetention).
		WithLogger(logger)

	a.health = healthuc.New(store, embeddingHealthChecker{embedder: docEmbedder}).
		WithQueue(a.queue).
		WithLogger(logger)
	if a.index != nil {
		a.health = a.health.WithVectorIndex(a.index)
	}

	return a, nil
}

func openIndex(ctx context.Context, cfg config.Config) (*dbRedis.Store, error) {
	vi := cfg.VectorIndex
	idx, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:     vi.Addrs,
		Password:  vi.Password,
		IndexName: vi.IndexName,
		KeyPrefix: vi.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis index: %w", err)
	}
	if err := idx.WaitForReady(ctx, time.Duration(vi.ReadinessTimeout)*time.Second); err != nil {
		idx.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	if err := idx.EnsureIndex(ctx, cfg.Embedding.Dimensions, vi.HNSWM, vi.HNSWEFConstruct); err != nil {
		idx.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	return idx, nil
}

// close stops the queue before releasing the stores it writes to.
func (a *app) close() {
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.index != nil {
		a.index.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close document store", zap.Error(err))
	}
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented -> instruction.
func buildEmbedder(cfg config.Config, instruction string, kv kvStore, logger *zap.Logger) domain.Embedder {
	ec := cfg.Embedding

	var base domain.Embedder = domain.StubEmbedder{}
	if ec.Provider == config.ProviderOpenAI {
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:            ec.APIKey,
			BaseURL:           ec.BaseURL,
			Model:             ec.Model,
			Dimensions:        ec.Dimensions,
			Provider:          ec.Provider,
			RequestsPerSecond: ec.RequestsPerSecond,
			Timeout:           time.Duration(ec.TimeoutSec) * time.Second,
			Logger:            logger,
		})
	}

	embedder := base
	if ec.Cache.Enabled && ec.Provider != config.ProviderStub {
		embedder = embcache.New(base, kv, ec.Model, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(ec.Cache.TTLSec) * time.Second)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, ec.Dimensions, logger).
		WithBatchSize(ec.BatchSize)

	// Outermost so the cache key includes the instruction.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
